package source

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dealflow/internal/common"
	"dealflow/internal/domain"
)

const arxivListURL = "https://arxiv.org/list/cs.AI/recent"

// 标题+摘要里至少命中两个企业信号才算有落地倾向的论文
var arxivEnterpriseSignals = []string{
	"enterprise", "production", "deployment", "industry",
	"real-world", "scalab", "on-premise", "compliance",
	"security", "privacy", "audit", "regulation",
	"workflow", "automation", "orchestrat",
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// ArxivSource 实现了 port.Sourcer 接口
// 爬 cs.AI 的最新列表页，筛出有企业落地倾向的论文
// 论文本身不是公司，但顶会作者创业是高频事件，值得进评分漏斗
type ArxivSource struct {
	client *http.Client
}

// NewArxivSource 初始化 arXiv 爬虫
func NewArxivSource(client *http.Client) *ArxivSource {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArxivSource{client: client}
}

func (s *ArxivSource) Name() string { return string(domain.SourceArxiv) }

// FetchDeals 抓列表页并抽取论文条目
func (s *ArxivSource) FetchDeals(ctx context.Context, limit int) ([]*domain.Deal, error) {
	if limit <= 0 {
		limit = 20
	}

	doc, err := s.fetchDocument(ctx, arxivListURL)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSource, "arXiv 抓取失败", err)
	}

	var deals []*domain.Deal
	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		if len(deals) >= limit {
			return false
		}

		dd := dt.NextFiltered("dd")
		if dd.Length() == 0 {
			return true
		}

		title := cleanText(dd.Find("div.list-title").Text())
		title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))
		abstract := cleanText(dd.Find("p.mathjax").Text())

		href, ok := dt.Find(`a[title="Abstract"]`).Attr("href")
		if !ok {
			href, _ = dt.Find("a").First().Attr("href")
		}

		if title == "" || !hasEnterpriseFocus(title, abstract) {
			return true
		}

		deal := domain.NewDeal(title, domain.SourceArxiv)
		deal.Description = abstract
		if href != "" {
			deal.SourceURL = "https://arxiv.org" + href
			deal.Website = deal.SourceURL
		}
		deals = append(deals, deal)
		return true
	})

	return deals, nil
}

func (s *ArxivSource) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 DealFlow/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv 返回状态码 %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

func hasEnterpriseFocus(title, abstract string) bool {
	text := strings.ToLower(title + " " + abstract)
	hits := 0
	for _, sig := range arxivEnterpriseSignals {
		if strings.Contains(text, sig) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
