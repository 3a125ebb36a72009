package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"dealflow/internal/common"
	"dealflow/internal/dedup"
	"dealflow/internal/domain"
	"dealflow/internal/port"
)

// RunStats 一轮管线的各阶段计数
type RunStats struct {
	Sourced  int // 各数据源抓到的原始线索总数
	Deduped  int // 去重合并后剩余数
	Enriched int // 至少跑完一个富化阶段的线索数
	Scored   int // 成功产出评分的线索数 (含解析失败的占位评分)
	Notified int // 过阈值并推送到 Slack 的数量
	Stored   int // 落库成功的数量
}

// Pipeline 串起 采集 → 去重 → 富化 → 评分 → 推送 → 存储 六个阶段
type Pipeline struct {
	sources   []port.Sourcer
	enrichers []port.Enricher
	scorer    port.Scorer
	notifier  port.Notifier
	store     port.Repository

	threshold   int // 推送阈值，低于此分只存库不推送
	concurrency int // 评分阶段的并发上限
	dryRun      bool
}

// NewPipeline 创建管线；store 和 notifier 允许为 nil (本地调试)
func NewPipeline(
	sources []port.Sourcer,
	enrichers []port.Enricher,
	scorer port.Scorer,
	notifier port.Notifier,
	store port.Repository,
	threshold int,
	concurrency int,
	dryRun bool,
) *Pipeline {
	if threshold <= 0 {
		threshold = domain.WorthWatchingCutoff
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pipeline{
		sources:     sources,
		enrichers:   enrichers,
		scorer:      scorer,
		notifier:    notifier,
		store:       store,
		threshold:   threshold,
		concurrency: concurrency,
		dryRun:      dryRun,
	}
}

// Run 执行一轮完整管线
// 单条线索的失败只影响它自己；评分阶段的传输类失败会把该条线索丢弃
func (p *Pipeline) Run(ctx context.Context, limit int) (*RunStats, error) {
	stats := &RunStats{}

	fmt.Println("🚀 [扫描模式] 开始搜寻企业级 AI 创业线索...")

	// 1. 采集
	var rawDeals []*domain.Deal
	for _, src := range p.sources {
		fmt.Printf("📥 正在抓取数据源 '%s'...\n", src.Name())
		deals, err := src.FetchDeals(ctx, limit)
		if err != nil {
			log.Printf("❌ 数据源 '%s' 抓取失败: %v", src.Name(), err)
			continue
		}
		rawDeals = append(rawDeals, deals...)
		fmt.Printf("✅ 数据源 '%s' 返回 %d 条线索\n", src.Name(), len(deals))
	}
	stats.Sourced = len(rawDeals)

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	// 2. 去重
	fmt.Println("🔍 开始去重合并...")
	deals := dedup.Merge(rawDeals)
	stats.Deduped = len(deals)
	fmt.Printf("✅ 去重后剩余 %d 条线索 (合并掉 %d 条)\n", len(deals), stats.Sourced-len(deals))

	// 3. 富化
	fmt.Println("🧬 开始富化线索...")
	for _, deal := range deals {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		touched := false
		for _, enricher := range p.enrichers {
			if err := enricher.Enrich(ctx, deal); err != nil {
				log.Printf("⚠️ 富化阶段 '%s' 处理 %s 出错: %v", enricher.Name(), deal.StartupName, err)
				continue
			}
			touched = true
		}
		if touched {
			stats.Enriched++
		}
	}
	fmt.Printf("✅ 富化完成，共 %d 条\n", stats.Enriched)

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	// 4. 评分 (带并发上限的 worker 池)
	fmt.Printf("🧠 开始 LLM 评分 (并发数 %d)...\n", p.concurrency)
	scoredDeals := p.scoreAll(ctx, deals)
	stats.Scored = len(scoredDeals)
	fmt.Printf("✅ 评分完成 %d/%d 条\n", len(scoredDeals), len(deals))

	// 5. 推送 + 6. 存储
	fmt.Println("💾 开始推送和存储...")
	for _, scored := range scoredDeals {
		select {
		case <-ctx.Done():
			fmt.Println("⏰ 执行时间过长，提前结束推送和存储阶段")
			return stats, ctx.Err()
		default:
		}

		if scored.TotalScore >= p.threshold && p.notifier != nil {
			if _, err := p.notifier.NotifyDeal(ctx, scored, p.dryRun); err != nil {
				log.Printf("❌ 推送线索 %s 失败: %v", scored.Deal.StartupName, err)
			} else {
				stats.Notified++
				fmt.Printf("📲 已推送 %s (%d 分, %s)\n", scored.Deal.StartupName, scored.TotalScore, scored.Priority)
			}
		}

		// 无论是否过阈值都落库，周报要统计全量
		// dry-run 只拦推送，不拦存储
		if p.store == nil {
			continue
		}
		dealID, err := p.store.SaveDeal(ctx, &scored.Deal)
		if err != nil {
			log.Printf("❌ 保存线索 %s 失败: %v", scored.Deal.StartupName, err)
			continue
		}
		if _, err := p.store.SaveScoredDeal(ctx, dealID, scored); err != nil {
			log.Printf("❌ 保存评分结果 %s 失败: %v", scored.Deal.StartupName, err)
			continue
		}
		stats.Stored++
	}

	fmt.Printf("🎉 本轮扫描完成: 抓取 %d / 去重 %d / 评分 %d / 推送 %d / 落库 %d\n",
		stats.Sourced, stats.Deduped, stats.Scored, stats.Notified, stats.Stored)
	return stats, nil
}

// scoreAll 并发评分，结果保持输入顺序
// 传输类失败 (SCORING_ERROR) 的线索会被丢弃；解析失败由评分引擎
// 内部兜底成占位评分，不会走到这里的错误分支
func (p *Pipeline) scoreAll(ctx context.Context, deals []*domain.Deal) []*domain.ScoredDeal {
	results := make([]*domain.ScoredDeal, len(deals))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency)

	for i, deal := range deals {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, deal *domain.Deal) {
			defer wg.Done()
			defer func() { <-sem }()

			scored, err := p.scorer.Score(ctx, deal)
			if err != nil {
				if common.HasCode(err, common.ErrCodeScoring) {
					log.Printf("❌ 评分线索 %s 失败 (已丢弃): %v", deal.StartupName, err)
				} else {
					log.Printf("❌ 线索 %s 无法评分: %v", deal.StartupName, err)
				}
				return
			}
			results[i] = scored
		}(i, deal)
	}
	wg.Wait()

	scored := make([]*domain.ScoredDeal, 0, len(results))
	for _, s := range results {
		if s != nil {
			scored = append(scored, s)
		}
	}
	return scored
}

// ScoreOne 对单条线索走 富化 → 评分，调试模式用
func (p *Pipeline) ScoreOne(ctx context.Context, deal *domain.Deal) (*domain.ScoredDeal, error) {
	if err := deal.Validate(); err != nil {
		return nil, err
	}
	for _, enricher := range p.enrichers {
		if err := enricher.Enrich(ctx, deal); err != nil {
			log.Printf("⚠️ 富化阶段 '%s' 出错: %v", enricher.Name(), err)
		}
	}
	return p.scorer.Score(ctx, deal)
}
