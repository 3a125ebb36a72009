package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dealflow/internal/common"
	"dealflow/internal/domain"
)

const hnSearchURL = "https://hn.algolia.com/api/v1/search_by_date"

// HackerNewsSource 实现了 port.Sourcer 接口
// 通过 Algolia API 抓最近 24 小时带企业关键词的 Show HN
type HackerNewsSource struct {
	client  *http.Client
	nowFunc func() time.Time
}

// NewHackerNewsSource 初始化 HN 客户端
func NewHackerNewsSource(client *http.Client) *HackerNewsSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HackerNewsSource{client: client, nowFunc: time.Now}
}

func (s *HackerNewsSource) Name() string { return string(domain.SourceHackerNews) }

type hnHit struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	StoryText string `json:"story_text"`
	ObjectID  string `json:"objectID"`
}

type hnResponse struct {
	Hits []hnHit `json:"hits"`
}

// FetchDeals 抓取 Show HN 帖子并转换成线索
func (s *HackerNewsSource) FetchDeals(ctx context.Context, limit int) ([]*domain.Deal, error) {
	if limit <= 0 {
		limit = 20
	}

	yesterday := s.nowFunc().Add(-24 * time.Hour).Unix()

	params := url.Values{}
	params.Set("query", `(enterprise OR B2B OR automation OR agent OR LLM) AND "Show HN"`)
	params.Set("tags", "story")
	// points>10 过滤掉完全没有水花的帖子
	params.Set("numericFilters", fmt.Sprintf("created_at_i>%d,points>10", yesterday))
	params.Set("hitsPerPage", fmt.Sprintf("%d", limit))

	var data hnResponse
	err := common.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, hnSearchURL+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("HN Algolia 返回状态码 %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&data)
	}, common.WithMaxRetries(2), common.WithInitialDelay(time.Second))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSource, "Hacker News 抓取失败", err)
	}

	var deals []*domain.Deal
	for _, hit := range data.Hits {
		if !strings.HasPrefix(hit.Title, "Show HN") {
			continue
		}

		name := strings.TrimSpace(strings.TrimPrefix(hit.Title, "Show HN:"))
		deal := domain.NewDeal(name, domain.SourceHackerNews)
		deal.Website = hit.URL
		deal.Description = hit.StoryText
		if deal.Description == "" {
			deal.Description = hit.Title
		}
		deal.SourceURL = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		deals = append(deals, deal)
	}

	return deals, nil
}
