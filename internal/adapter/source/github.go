package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dealflow/internal/common"
	"dealflow/internal/domain"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"
)

// GitHubSource 实现了 port.Sourcer 接口
// 搜索最近 30 天创建、带企业 AI topic 的新仓库
type GitHubSource struct {
	client  *github.Client
	nowFunc func() time.Time
}

// NewGitHubSource 初始化 GitHub 客户端
// token 为空时匿名访问，限制 60 次/小时
func NewGitHubSource(token string) *GitHubSource {
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

	return &GitHubSource{client: client, nowFunc: time.Now}
}

func (s *GitHubSource) Name() string { return string(domain.SourceGitHub) }

// FetchDeals 搜索新的企业向仓库并转换成线索
func (s *GitHubSource) FetchDeals(ctx context.Context, limit int) ([]*domain.Deal, error) {
	if limit <= 0 {
		limit = 20
	}

	// 策略：最近 30 天创建、stars > 50、企业 AI 相关 topic
	sinceDate := s.nowFunc().AddDate(0, 0, -30).Format("2006-01-02")
	query := fmt.Sprintf("created:>%s stars:>50 topic:enterprise-ai OR topic:b2b-saas OR topic:llm-orchestration", sinceDate)

	opts := &github.SearchOptions{
		Sort:  "stars",
		Order: "desc",
		ListOptions: github.ListOptions{
			PerPage: limit,
		},
	}

	var result *github.RepositoriesSearchResult
	err := common.Do(ctx, func() error {
		var apiErr error
		result, _, apiErr = s.client.Search.Repositories(ctx, query, opts)
		return apiErr
	},
		common.WithMaxRetries(3),
		common.WithInitialDelay(time.Second),
	)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSource, "GitHub 搜索失败", err)
	}

	var deals []*domain.Deal
	for _, item := range result.Repositories {
		desc := item.GetDescription()
		if desc == "" {
			continue // 没有描述的仓库无法评分，直接跳过
		}

		fullName := item.GetFullName()
		name := fullName
		if i := strings.LastIndex(fullName, "/"); i >= 0 {
			name = fullName[i+1:]
		}

		deal := domain.NewDeal(name, domain.SourceGitHub)
		deal.Description = desc
		deal.SourceURL = item.GetHTMLURL()
		deal.Website = item.GetHomepage()
		if deal.Website == "" {
			deal.Website = item.GetHTMLURL()
		}
		deal.GitHub = &domain.GitHubMetrics{
			RepoURL:    item.GetHTMLURL(),
			Stars:      item.GetStargazersCount(),
			OpenIssues: item.GetOpenIssuesCount(),
		}

		// 个人仓库的 owner 大概率就是创始人
		if owner := item.GetOwner(); owner != nil && owner.GetType() == "User" {
			deal.Founders = []domain.Founder{{
				Name:       owner.GetLogin(),
				Background: owner.GetHTMLURL(),
			}}
		}

		deals = append(deals, deal)
	}

	return deals, nil
}
