package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"dealflow/internal/adapter/enrich"
	"dealflow/internal/adapter/llm"
	"dealflow/internal/adapter/slack"
	"dealflow/internal/adapter/source"
	"dealflow/internal/dedup"
	"dealflow/internal/scorer"
)

// 调试入口：抓一小批线索走完 去重 → 富化 → 评分，把评分卡打到终端
// 不碰数据库也不推 Slack
func main() {
	githubToken := os.Getenv("GITHUB_TOKEN")
	geminiKey := os.Getenv("GEMINI_API_KEY")

	ctx := context.Background()

	gen, err := llm.NewGeminiGenerator(ctx, geminiKey, "gemini-2.0-flash")
	if err != nil {
		log.Fatalf("❌ AI 初始化失败: %v", err)
	}
	defer gen.Close()
	engine := scorer.NewEngine(gen, true)

	fmt.Println("🔍 调试模式：抓取并评分线索")

	// 1. 只用两个不需要凭证门槛的数据源
	fmt.Println("📥 正在抓取 GitHub 新仓库...")
	ghDeals, err := source.NewGitHubSource(githubToken).FetchDeals(ctx, 5)
	if err != nil {
		log.Printf("❌ GitHub 抓取失败: %v", err)
	}
	fmt.Printf("✅ GitHub 返回 %d 条\n", len(ghDeals))

	fmt.Println("📥 正在抓取 Hacker News Show HN...")
	hnDeals, err := source.NewHackerNewsSource(nil).FetchDeals(ctx, 5)
	if err != nil {
		log.Printf("❌ Hacker News 抓取失败: %v", err)
	}
	fmt.Printf("✅ Hacker News 返回 %d 条\n", len(hnDeals))

	deals := dedup.Merge(append(ghDeals, hnDeals...))
	fmt.Printf("🔍 去重后剩余 %d 条\n", len(deals))

	if len(deals) == 0 {
		fmt.Println("❌ 没有抓到任何线索")
		return
	}

	// 2. 富化 + 评分前 3 条
	websiteEnricher := enrich.NewWebsiteEnricher(nil)
	metricsEnricher := enrich.NewGitHubMetricsEnricher(githubToken)

	count := min(3, len(deals))
	fmt.Printf("🧠 对前 %d 条线索进行评分:\n", count)
	for i := 0; i < count; i++ {
		deal := deals[i]

		if err := websiteEnricher.Enrich(ctx, deal); err != nil {
			log.Printf("⚠️ 官网富化出错: %v", err)
		}
		if err := metricsEnricher.Enrich(ctx, deal); err != nil {
			log.Printf("⚠️ 仓库指标富化出错: %v", err)
		}

		scored, err := engine.Score(ctx, deal)
		if err != nil {
			log.Printf("❌ 评分 %s 失败: %v", deal.StartupName, err)
			continue
		}

		fmt.Printf("\n================ [ %d/%d ] ================\n", i+1, count)
		fmt.Println(slack.FormatDealCard(scored))
	}
	fmt.Println("\n🎉 调试结束")
}
