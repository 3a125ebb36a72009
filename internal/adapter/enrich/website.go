// Package enrich 聚合所有富化适配器：每个适配器就地补充线索的一部分
// 字段，失败时字段保持默认值，线索继续走完管线。
package enrich

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dealflow/internal/common"
	"dealflow/internal/domain"
)

// 正文最多保留 4000 字符，再长 LLM 上下文就浪费了
const maxPageText = 4000

var wsCollapseRe = regexp.MustCompile(`\s+`)

// 信号关键词
var (
	pricingKeywords    = []string{"pricing", "plans", "per month", "/mo", "free tier"}
	bookDemoKeywords   = []string{"book a demo", "book demo", "request demo", "schedule demo"}
	enterpriseKeywords = []string{"enterprise", "custom pricing", "contact sales"}
)

// WebsiteEnricher 实现了 port.Enricher 接口
// 抓官网首页，抽取定价/演示/合规/企业版四个信号和正文节选
type WebsiteEnricher struct {
	client *http.Client
}

// NewWebsiteEnricher 初始化官网爬虫
func NewWebsiteEnricher(client *http.Client) *WebsiteEnricher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WebsiteEnricher{client: client}
}

func (e *WebsiteEnricher) Name() string { return "website" }

// Enrich 填充 deal.Signals；抓取失败时留下默认信号块
func (e *WebsiteEnricher) Enrich(ctx context.Context, deal *domain.Deal) error {
	if deal.Website == "" || deal.Signals != nil {
		return nil
	}

	// 先放一个默认块，失败也算"抓过了"
	deal.Signals = &domain.WebsiteSignals{}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, deal.Website, nil)
	if err != nil {
		return common.WrapError(common.ErrCodeEnrichment, "官网请求构造失败", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 DealFlow/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return common.WrapError(common.ErrCodeEnrichment, "官网抓取失败: "+deal.Website, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return common.NewError(common.ErrCodeEnrichment, "官网返回非 200: "+deal.Website)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return common.WrapError(common.ErrCodeEnrichment, "官网 HTML 解析失败", err)
	}

	// 去掉脚本噪音再取正文
	doc.Find("script, style, noscript, svg").Remove()
	pageText := wsCollapseRe.ReplaceAllString(strings.TrimSpace(doc.Text()), " ")

	signals := &domain.WebsiteSignals{PageText: clipText(pageText, maxPageText)}
	lower := strings.ToLower(pageText)

	signals.HasPricing = containsAny(lower, pricingKeywords)
	signals.HasBookDemo = containsAny(lower, bookDemoKeywords)
	signals.HasSOC2Badge = strings.Contains(lower, "soc 2") || strings.Contains(lower, "soc2")
	signals.HasEnterpriseTier = containsAny(lower, enterpriseKeywords)

	deal.Signals = signals
	return nil
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func clipText(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
