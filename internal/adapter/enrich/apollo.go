package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dealflow/internal/common"
	"dealflow/internal/domain"
)

const apolloMatchURL = "https://api.apollo.io/v1/people/match"

// ApolloEnricher 实现了 port.Enricher 接口
// 用 LinkedIn 链接反查第一位创始人的邮箱，方便后续 outreach
type ApolloEnricher struct {
	apiKey string
	client *http.Client
}

// NewApolloEnricher 初始化 Apollo 客户端；apiKey 为空时静默跳过
func NewApolloEnricher(apiKey string, client *http.Client) *ApolloEnricher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ApolloEnricher{apiKey: apiKey, client: client}
}

func (e *ApolloEnricher) Name() string { return "apollo" }

type apolloResponse struct {
	Person *struct {
		Email string `json:"email"`
	} `json:"person"`
}

// Enrich 补第一位创始人的邮箱；失败时线索原样返回
func (e *ApolloEnricher) Enrich(ctx context.Context, deal *domain.Deal) error {
	if e.apiKey == "" || len(deal.Founders) == 0 {
		return nil
	}

	founder := &deal.Founders[0]
	if founder.LinkedInURL == "" {
		return nil
	}

	body, _ := json.Marshal(map[string]any{
		"api_key":                e.apiKey,
		"linkedin_url":           founder.LinkedInURL,
		"reveal_personal_emails": true,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apolloMatchURL, bytes.NewReader(body))
	if err != nil {
		return common.WrapError(common.ErrCodeEnrichment, "apollo 请求构造失败", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return common.WrapError(common.ErrCodeEnrichment, "apollo 请求失败", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return common.NewError(common.ErrCodeEnrichment, fmt.Sprintf("apollo 返回状态码 %d", resp.StatusCode))
	}

	var data apolloResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return common.WrapError(common.ErrCodeEnrichment, "apollo 响应解析失败", err)
	}

	if data.Person != nil && data.Person.Email != "" {
		founder.Email = data.Person.Email
	}

	return nil
}
