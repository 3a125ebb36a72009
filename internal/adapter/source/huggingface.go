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

const hfAPIBase = "https://huggingface.co/api"

// 下载量低于这个数的组织不值得看
const hfMinDownloads = 10_000

// HuggingFaceSource 实现了 port.Sourcer 接口
// 监控高下载量模型背后的组织，它们往往是还没被发现的 ML 创业公司
type HuggingFaceSource struct {
	client *http.Client
}

// NewHuggingFaceSource 初始化 HF 客户端
func NewHuggingFaceSource(client *http.Client) *HuggingFaceSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HuggingFaceSource{client: client}
}

func (s *HuggingFaceSource) Name() string { return string(domain.SourceHuggingFace) }

type hfModel struct {
	ModelID     string   `json:"modelId"` // 例如 "org/model-name"
	Downloads   int      `json:"downloads"`
	Tags        []string `json:"tags"`
	PipelineTag string   `json:"pipeline_tag"`
}

// FetchDeals 按下载量抓 text-generation 模型，每个组织只出一条线索
func (s *HuggingFaceSource) FetchDeals(ctx context.Context, limit int) ([]*domain.Deal, error) {
	if limit <= 0 {
		limit = 30
	}

	params := url.Values{}
	params.Set("sort", "downloads")
	params.Set("direction", "-1")
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("filter", "text-generation")

	var models []hfModel
	err := common.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, hfAPIBase+"/models?"+params.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("HuggingFace API 返回状态码 %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&models)
	}, common.WithMaxRetries(2), common.WithInitialDelay(time.Second))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSource, "HuggingFace 抓取失败", err)
	}

	seenOrgs := make(map[string]struct{})
	var deals []*domain.Deal

	for _, model := range models {
		org, _, found := strings.Cut(model.ModelID, "/")
		if !found {
			continue // 个人用户的模型跳过
		}
		if _, ok := seenOrgs[org]; ok {
			continue
		}
		seenOrgs[org] = struct{}{}

		if model.Downloads < hfMinDownloads {
			continue
		}

		deal := domain.NewDeal(org, domain.SourceHuggingFace)
		deal.Website = "https://huggingface.co/" + org
		deal.SourceURL = deal.Website
		deal.Description = fmt.Sprintf(
			"HuggingFace org with %d+ model downloads. Top model: %s (%s)",
			model.Downloads, model.ModelID, model.PipelineTag,
		)
		deals = append(deals, deal)
	}

	return deals, nil
}
