package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dealflow/internal/common"
	"dealflow/internal/domain"
)

const crunchbaseURL = "https://api.crunchbase.com/api/v4/entities/organizations"

// CrunchbaseEnricher 实现了 port.Enricher 接口
// 按官网域名查融资信息，填 FundingRaised / FundingStage / EmployeeCount / HQLocation
type CrunchbaseEnricher struct {
	apiKey string
	client *http.Client
}

// NewCrunchbaseEnricher 初始化 Crunchbase 客户端；apiKey 为空时整个富化静默跳过
func NewCrunchbaseEnricher(apiKey string, client *http.Client) *CrunchbaseEnricher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CrunchbaseEnricher{apiKey: apiKey, client: client}
}

func (e *CrunchbaseEnricher) Name() string { return "crunchbase" }

type cbResponse struct {
	Entities []struct {
		Properties struct {
			FundingTotal struct {
				ValueUSD float64 `json:"value_usd"`
			} `json:"funding_total"`
			FundingStage     string `json:"funding_stage"`
			NumEmployeesEnum string `json:"num_employees_enum"`
			LocationIdents   []struct {
				Value string `json:"value"`
			} `json:"location_identifiers"`
		} `json:"properties"`
	} `json:"entities"`
}

// Enrich 查融资数据；查不到不算失败
func (e *CrunchbaseEnricher) Enrich(ctx context.Context, deal *domain.Deal) error {
	if e.apiKey == "" || deal.Website == "" {
		return nil
	}

	domainName := normalizeDomain(deal.Website)

	payload := map[string]any{
		"field_ids": []string{
			"name", "website", "funding_total", "num_funding_rounds",
			"last_funding_at", "funding_stage", "num_employees_enum",
			"location_identifiers",
		},
		"query": []map[string]any{
			{
				"type":        "predicate",
				"field_id":    "website_url",
				"operator_id": "includes",
				"values":      []string{domainName},
			},
		},
		"limit": 1,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, crunchbaseURL, bytes.NewReader(body))
	if err != nil {
		return common.WrapError(common.ErrCodeEnrichment, "crunchbase 请求构造失败", err)
	}
	req.Header.Set("X-cb-user-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return common.WrapError(common.ErrCodeEnrichment, "crunchbase 请求失败", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return common.NewError(common.ErrCodeEnrichment, fmt.Sprintf("crunchbase 返回状态码 %d", resp.StatusCode))
	}

	var data cbResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return common.WrapError(common.ErrCodeEnrichment, "crunchbase 响应解析失败", err)
	}

	if len(data.Entities) == 0 {
		return nil
	}

	props := data.Entities[0].Properties
	deal.FundingRaised = props.FundingTotal.ValueUSD
	deal.FundingStage = props.FundingStage
	deal.EmployeeCount = props.NumEmployeesEnum
	if len(props.LocationIdents) > 0 {
		deal.HQLocation = props.LocationIdents[0].Value
	}

	return nil
}

func normalizeDomain(website string) string {
	d := strings.TrimPrefix(strings.TrimPrefix(website, "https://"), "http://")
	if i := strings.Index(d, "/"); i >= 0 {
		d = d[:i]
	}
	return d
}
