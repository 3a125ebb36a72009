package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"dealflow/internal/common"
	"dealflow/internal/domain"
)

// Notifier 实现了 port.Notifier 接口，往 Incoming Webhook 发卡片消息
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// NewNotifier 创建推送器
func NewNotifier(webhook string) *Notifier {
	if webhook == "" {
		log.Println("⚠️ 警告: Slack Webhook 为空，推送功能将无法工作！")
	}
	return &Notifier{
		webhookURL: webhook,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// NotifyDeal 发送单条线索卡片；dryRun 时只渲染不发送
func (n *Notifier) NotifyDeal(ctx context.Context, scored *domain.ScoredDeal, dryRun bool) (string, error) {
	text := FormatDealCard(scored)
	if dryRun {
		return text, nil
	}
	if err := n.post(ctx, text); err != nil {
		return text, err
	}
	return text, nil
}

// PostText 发送纯文本 (周报等)
func (n *Notifier) PostText(ctx context.Context, text string, dryRun bool) (string, error) {
	if dryRun {
		return text, nil
	}
	if err := n.post(ctx, text); err != nil {
		return text, err
	}
	return text, nil
}

// post 发送请求 (带重试机制)
func (n *Notifier) post(ctx context.Context, text string) error {
	if n.webhookURL == "" {
		return common.NewError(common.ErrCodeNotification, "Webhook URL 为空")
	}

	payload := map[string]any{
		"text":         text,
		"unfurl_links": false,
		"unfurl_media": false,
	}
	body, _ := json.Marshal(payload)

	err := common.Do(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/json")

		resp, postErr := n.client.Do(req)
		if postErr != nil {
			return postErr
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("Slack API 报错: 状态码 %d", resp.StatusCode)
		}
		return nil
	},
		common.WithMaxRetries(3),
		common.WithInitialDelay(500*time.Millisecond),
	)
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "发送请求失败", err)
	}

	return nil
}

// FormatDealCard 渲染线索卡片
func FormatDealCard(scored *domain.ScoredDeal) string {
	deal := scored.Deal

	lines := []string{
		fmt.Sprintf("🔥 *High-Signal Deal: %s* — Score: %d/100", deal.StartupName, scored.TotalScore),
		"",
		fmt.Sprintf("📝 *One-Liner:* %s", scored.Summary),
		"",
	}

	lines = append(lines, "✅ *Why It's Hot:*")
	for _, s := range scored.Strengths {
		lines = append(lines, "  • "+s)
	}
	lines = append(lines, "")

	if len(scored.RedFlags) > 0 {
		lines = append(lines, "⚠️ *Red Flags:*")
		for _, rf := range scored.RedFlags {
			lines = append(lines, "  • "+rf)
		}
		lines = append(lines, "")
	}

	b := scored.Breakdown
	lines = append(lines, fmt.Sprintf(
		"📊 *Breakdown:* Problem: %d/30 | Diff: %d/25 | Team: %d/25 | Market: %d/20",
		b.ProblemSeverity, b.Differentiation, b.Team, b.MarketReadiness,
	))
	lines = append(lines, "")

	var links []string
	if deal.Website != "" {
		links = append(links, fmt.Sprintf("<%s|Website>", deal.Website))
	}
	if deal.GitHub != nil && deal.GitHub.RepoURL != "" {
		links = append(links, fmt.Sprintf("<%s|GitHub>", deal.GitHub.RepoURL))
	}
	if deal.SourceURL != "" && deal.SourceURL != deal.Website {
		links = append(links, fmt.Sprintf("<%s|Source>", deal.SourceURL))
	}
	if len(links) > 0 {
		lines = append(lines, "🔗 *Links:* "+strings.Join(links, " | "))
	}

	return strings.Join(lines, "\n")
}

// FormatDigest 渲染周报文本
func FormatDigest(digest *domain.WeeklyDigest) string {
	lines := []string{
		"📊 *This Week in Enterprise AI Deal Flow*",
		"",
		fmt.Sprintf("✅ Reviewed: %d startups", digest.TotalReviewed),
		fmt.Sprintf("🔥 High Priority (≥85): %d", digest.HighPriority),
		fmt.Sprintf("📌 Worth Watching (75-84): %d", digest.WorthWatching),
		fmt.Sprintf("🗑️ Auto-Filtered: %d", digest.AutoFiltered),
		"",
	}

	if len(digest.TopDeals) > 0 {
		lines = append(lines, "*Top Deals to Discuss:*")
		for i, deal := range digest.TopDeals {
			if i >= 3 {
				break
			}
			lines = append(lines, fmt.Sprintf(
				"%d. *%s* — %d/100 — %s",
				i+1, deal.Deal.StartupName, deal.TotalScore, deal.Summary,
			))
		}
		lines = append(lines, "")
	}

	lines = append(lines, fmt.Sprintf(
		"_Period: %s – %s_",
		digest.WeekStart.Format("Jan 02"),
		digest.WeekEnd.Format("Jan 02, 2006"),
	))

	return strings.Join(lines, "\n")
}
