package enrich

import (
	"context"
	"regexp"
	"strings"

	"dealflow/internal/common"
	"dealflow/internal/domain"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"
)

var (
	repoURLRe = regexp.MustCompile(`https?://github\.com/([^/]+)/([^/]+)`)
	// README 里的企业合规关键词
	enterpriseSignalRe = regexp.MustCompile(
		`(?i)\b(SAML|SOC\s?2|on-prem|RBAC|SSO|HIPAA|GDPR|audit.?log|self-hosted|enterprise|compliance|multi-tenant)\b`,
	)
)

// GitHubMetricsEnricher 实现了 port.Enricher 接口
// 给带仓库的线索补齐 stars / 贡献者数 / issue 数和 README 企业信号
type GitHubMetricsEnricher struct {
	client *github.Client
}

// NewGitHubMetricsEnricher 初始化 GitHub 客户端
func NewGitHubMetricsEnricher(token string) *GitHubMetricsEnricher {
	var client *github.Client

	if token == "" {
		client = github.NewClient(nil)
	} else {
		ctx := context.Background()
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(ctx, ts)
		client = github.NewClient(tc)
	}

	return &GitHubMetricsEnricher{client: client}
}

func (e *GitHubMetricsEnricher) Name() string { return "github_metrics" }

// Enrich 拉取仓库指标；已有 stars 数据或没有仓库的线索直接跳过
func (e *GitHubMetricsEnricher) Enrich(ctx context.Context, deal *domain.Deal) error {
	if deal.GitHub == nil || deal.GitHub.RepoURL == "" || deal.GitHub.Stars > 0 {
		return nil
	}

	m := repoURLRe.FindStringSubmatch(deal.GitHub.RepoURL)
	if m == nil {
		return nil // 不是 GitHub 仓库链接，保持原样
	}
	owner, repo := m[1], strings.TrimSuffix(m[2], ".git")

	repoData, _, err := e.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return common.WrapError(common.ErrCodeEnrichment, "仓库信息获取失败: "+deal.GitHub.RepoURL, err)
	}

	metrics := &domain.GitHubMetrics{
		RepoURL:    deal.GitHub.RepoURL,
		Stars:      repoData.GetStargazersCount(),
		OpenIssues: repoData.GetOpenIssuesCount(),
	}

	// 贡献者总数藏在分页的 LastPage 里，每页 1 条就能拿到
	_, resp, err := e.client.Repositories.ListContributors(ctx, owner, repo, &github.ListContributorsOptions{
		Anon:        "true",
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err == nil && resp != nil {
		if resp.LastPage > 0 {
			metrics.Contributors = resp.LastPage
		} else {
			metrics.Contributors = 1
		}
	}

	// README 的企业信号
	readme, _, err := e.client.Repositories.GetReadme(ctx, owner, repo, nil)
	if err == nil {
		if content, cerr := readme.GetContent(); cerr == nil && content != "" {
			metrics.EnterpriseSignals = extractEnterpriseSignals(content)
			metrics.ReadmeSnippet = clipText(content, 1000)
		}
	}

	deal.GitHub = metrics
	return nil
}

// extractEnterpriseSignals 去重后返回 README 里命中的合规关键词 (统一大写)
func extractEnterpriseSignals(readme string) []string {
	seen := make(map[string]struct{})
	var signals []string
	for _, m := range enterpriseSignalRe.FindAllString(readme, -1) {
		upper := strings.ToUpper(m)
		if _, ok := seen[upper]; ok {
			continue
		}
		seen[upper] = struct{}{}
		signals = append(signals, upper)
	}
	return signals
}
