package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dealflow/internal/common"
	"dealflow/internal/domain"
)

const ycAPIURL = "https://api.ycombinator.com/v0.1/companies"

// 描述或标签里出现这些词才算 AI 公司
var ycAIKeywords = []string{
	"ai", "artificial intelligence", "machine learning", "ml",
	"llm", "nlp", "deep learning", "neural", "agent",
	"automation", "rag",
}

// YCSource 实现了 port.Sourcer 接口
// 从 YC 公开 API 拉当前批次公司，只保留 AI + B2B 的
type YCSource struct {
	client *http.Client
}

// NewYCSource 初始化 YC 客户端
func NewYCSource(client *http.Client) *YCSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &YCSource{client: client}
}

func (s *YCSource) Name() string { return string(domain.SourceYC) }

type ycCompany struct {
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	OneLiner        string   `json:"one_liner"`
	LongDescription string   `json:"long_description"`
	Tags            []string `json:"tags"`
	Website         string   `json:"website"`
	Batch           string   `json:"batch"`
}

type ycResponse struct {
	Companies []ycCompany `json:"companies"`
}

// FetchDeals 拉取公司列表并按 AI + B2B 过滤
func (s *YCSource) FetchDeals(ctx context.Context, limit int) ([]*domain.Deal, error) {
	if limit <= 0 {
		limit = 50
	}

	var data ycResponse
	err := common.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ycAPIURL+"?q=AI&page=1", nil)
		if err != nil {
			return err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("YC API 返回状态码 %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&data)
	}, common.WithMaxRetries(2), common.WithInitialDelay(time.Second))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSource, "YC 抓取失败", err)
	}

	var deals []*domain.Deal
	for _, co := range data.Companies {
		if len(deals) >= limit {
			break
		}

		desc := co.OneLiner
		if desc == "" {
			desc = co.LongDescription
		}
		if !isAIB2B(desc, co.Tags) {
			continue
		}

		deal := domain.NewDeal(co.Name, domain.SourceYC)
		deal.Website = co.Website
		deal.Description = desc
		if co.Batch != "" {
			deal.Description = fmt.Sprintf("%s (YC %s)", desc, co.Batch)
		}
		if co.Slug != "" {
			deal.SourceURL = "https://www.ycombinator.com/companies/" + co.Slug
		}
		deals = append(deals, deal)
	}

	return deals, nil
}

func isAIB2B(description string, tags []string) bool {
	text := strings.ToLower(description + " " + strings.Join(tags, " "))

	hasAI := false
	for _, kw := range ycAIKeywords {
		if strings.Contains(text, kw) {
			hasAI = true
			break
		}
	}

	hasB2B := strings.Contains(text, "b2b") ||
		strings.Contains(text, "enterprise") ||
		strings.Contains(text, "saas")

	return hasAI && hasB2B
}
