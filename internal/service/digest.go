package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"dealflow/internal/adapter/slack"
	"dealflow/internal/domain"
	"dealflow/internal/port"
)

// 周报里 Top Deals 最多列出的条数
const digestTopDeals = 3

// DigestService 每周一早上汇总过去一周的评分结果并推送
type DigestService struct {
	store    port.Repository
	notifier port.Notifier
	dryRun   bool
}

// NewDigestService 创建周报服务
func NewDigestService(store port.Repository, notifier port.Notifier, dryRun bool) *DigestService {
	return &DigestService{store: store, notifier: notifier, dryRun: dryRun}
}

// Run 生成并推送本周周报
func (s *DigestService) Run(ctx context.Context) (*domain.WeeklyDigest, error) {
	fmt.Println("📊 [周报模式] 开始汇总本周线索...")

	now := time.Now().UTC()
	weekStart := now.AddDate(0, 0, -7)

	// 取全量 (minScore=0)，档位统计需要包含被过滤掉的低分线索
	allScored, err := s.store.ScoredDealsSince(ctx, weekStart, 0)
	if err != nil {
		return nil, err
	}

	digest := buildDigest(weekStart, now, allScored)
	fmt.Printf("✅ 本周共评审 %d 家: 高优 %d / 观望 %d / 过滤 %d\n",
		digest.TotalReviewed, digest.HighPriority, digest.WorthWatching, digest.AutoFiltered)

	if err := s.store.SaveDigest(ctx, digest); err != nil {
		log.Printf("⚠️ 周报落库失败: %v", err)
	}

	if s.notifier != nil {
		text := slack.FormatDigest(digest)
		if _, err := s.notifier.PostText(ctx, text, s.dryRun); err != nil {
			return digest, err
		}
		fmt.Println("📲 周报已推送")
	}

	return digest, nil
}

// buildDigest 按档位统计并截取最高分的几条
// 输入已按分数降序 (ScoredDealsSince 保证)
func buildDigest(weekStart, weekEnd time.Time, scored []*domain.ScoredDeal) *domain.WeeklyDigest {
	digest := &domain.WeeklyDigest{
		WeekStart:     weekStart,
		WeekEnd:       weekEnd,
		TotalReviewed: len(scored),
	}

	for _, s := range scored {
		switch s.Priority {
		case domain.PriorityHigh:
			digest.HighPriority++
		case domain.PriorityWorthWatching:
			digest.WorthWatching++
		default:
			digest.AutoFiltered++
		}
		if len(digest.TopDeals) < digestTopDeals {
			digest.TopDeals = append(digest.TopDeals, s)
		}
	}

	return digest
}
