package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"dealflow/internal/adapter/enrich"
	"dealflow/internal/adapter/llm"
	"dealflow/internal/adapter/repository"
	"dealflow/internal/adapter/slack"
	"dealflow/internal/adapter/source"
	"dealflow/internal/config"
	"dealflow/internal/domain"
	"dealflow/internal/port"
	"dealflow/internal/scorer"
	"dealflow/internal/server"
	"dealflow/internal/service"
)

func main() {
	// 1. 命令行参数
	mode := flag.String("mode", "run", "运行模式: run (扫描) / score (单条评分) / digest (周报) / serve (Slack 回调服务)")
	sourcesFlag := flag.String("sources", "", "逗号分隔的数据源列表，覆盖配置 (例如 github,yc)")
	dryRun := flag.Bool("dry-run", false, "只渲染不推送、不落库")
	limit := flag.Int("limit", 0, "每个数据源的抓取上限，0 表示用配置值")
	dealURL := flag.String("url", "", "score 模式: 线索链接")
	dealName := flag.String("name", "", "score 模式: 公司名称")
	schedule := flag.Bool("schedule", false, "按 cron 表达式定时执行 (run 模式)")
	concurrency := flag.Int("concurrency", 3, "LLM 评分并发数")
	flag.Parse()

	// 2. 加载配置
	cfg := config.Load()
	if missing := cfg.Validate(); len(missing) > 0 && !*dryRun {
		log.Fatalf("❌ 缺少必填配置: %s", strings.Join(missing, ", "))
	}
	if *limit <= 0 {
		*limit = cfg.SourceLimit
	}

	// 3. 初始化评分引擎
	ctx := context.Background()
	scorerEngine, cleanup, err := buildScorer(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ AI 初始化失败: %v", err)
	}
	defer cleanup()

	// 4. 初始化推送和存储 (dry-run 时存储可以缺席)
	notifier := slack.NewNotifier(cfg.SlackWebhookURL)

	var store port.Repository
	if cfg.DatabaseDSN != "" {
		repoStore, err := repository.NewPostgresRepo(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("❌ DB 初始化失败: %v", err)
		}
		store = repoStore
	} else if !*dryRun {
		log.Fatalf("❌ 缺少 DATABASE_DSN")
	}

	sourceNames := cfg.Sources
	if *sourcesFlag != "" {
		sourceNames = strings.Split(*sourcesFlag, ",")
	}

	pipeline := service.NewPipeline(
		buildSources(cfg, sourceNames),
		buildEnrichers(cfg),
		scorerEngine,
		notifier,
		store,
		cfg.ScoreThreshold,
		*concurrency,
		*dryRun,
	)

	// 5. 按模式分流
	switch *mode {
	case "run":
		if *schedule {
			runScheduled(pipeline, store, notifier, cfg, *limit, *dryRun)
			return
		}
		runOnce(pipeline, *limit)
	case "score":
		runScoreOne(pipeline, *dealName, *dealURL)
	case "digest":
		digestService := service.NewDigestService(store, notifier, *dryRun)
		if _, err := digestService.Run(ctx); err != nil {
			log.Fatalf("❌ 周报生成失败: %v", err)
		}
	case "serve":
		srv := server.NewServer(store)
		if err := srv.ListenAndServe(cfg.ServerAddr); err != nil {
			log.Fatalf("❌ 服务启动失败: %v", err)
		}
	default:
		fmt.Println("❌ 未知模式，请使用 -mode=run / score / digest / serve")
	}
}

// runOnce 单次执行一轮扫描，整轮超时 10 分钟
func runOnce(pipeline *service.Pipeline, limit int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := pipeline.Run(ctx, limit); err != nil {
		log.Printf("❌ 本轮扫描异常结束: %v", err)
	}
}

// runScheduled 定时模式：扫描和周报各挂一个 cron 任务
func runScheduled(pipeline *service.Pipeline, store port.Repository, notifier port.Notifier, cfg *config.Config, limit int, dryRun bool) {
	c := cron.New()

	if _, err := c.AddFunc(cfg.ScanCron, func() {
		runOnce(pipeline, limit)
	}); err != nil {
		log.Fatalf("❌ 扫描任务注册失败 (%s): %v", cfg.ScanCron, err)
	}

	if store != nil {
		digestService := service.NewDigestService(store, notifier, dryRun)
		if _, err := c.AddFunc(cfg.DigestCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if _, err := digestService.Run(ctx); err != nil {
				log.Printf("❌ 周报生成失败: %v", err)
			}
		}); err != nil {
			log.Fatalf("❌ 周报任务注册失败 (%s): %v", cfg.DigestCron, err)
		}
	}

	c.Start()
	fmt.Printf("⏰ 定时模式已启动: 扫描 [%s] / 周报 [%s]\n", cfg.ScanCron, cfg.DigestCron)
	fmt.Println("按下 Ctrl+C 可以优雅停止程序")

	// 启动后立即先跑一轮
	runOnce(pipeline, limit)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n👋 收到停止信号，正在退出...")
	stopCtx := c.Stop()
	<-stopCtx.Done()
}

// runScoreOne 手工投喂一条线索并打印评分卡
func runScoreOne(pipeline *service.Pipeline, name, url string) {
	if name == "" && url == "" {
		fmt.Println("⚠️ score 模式需要 -name 或 -url")
		fmt.Println("例如: -mode=score -name='Acme AI' -url='https://acme.ai'")
		return
	}

	deal := domain.NewDeal(name, domain.SourceManual)
	deal.Website = url
	deal.SourceURL = url

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	scored, err := pipeline.ScoreOne(ctx, deal)
	if err != nil {
		log.Fatalf("❌ 评分失败: %v", err)
	}

	fmt.Println("\n================ [ 评分结果 ] ================")
	fmt.Println(slack.FormatDealCard(scored))
	fmt.Println("==============================================")
}

// buildScorer 按配置选择 LLM 供应商
func buildScorer(ctx context.Context, cfg *config.Config) (port.Scorer, func(), error) {
	if cfg.ScorerProvider == "openai" {
		gen := llm.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		return scorer.NewEngine(gen, cfg.TrustLLMTotal), func() {}, nil
	}

	gen, err := llm.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, err
	}
	return scorer.NewEngine(gen, cfg.TrustLLMTotal), func() { gen.Close() }, nil
}

// buildSources 按名字实例化数据源，未知名字只告警不中断
func buildSources(cfg *config.Config, names []string) []port.Sourcer {
	var sources []port.Sourcer
	for _, name := range names {
		switch strings.TrimSpace(name) {
		case "github":
			sources = append(sources, source.NewGitHubSource(cfg.GitHubToken))
		case "hacker_news":
			sources = append(sources, source.NewHackerNewsSource(nil))
		case "yc":
			sources = append(sources, source.NewYCSource(nil))
		case "huggingface":
			sources = append(sources, source.NewHuggingFaceSource(nil))
		case "arxiv":
			sources = append(sources, source.NewArxivSource(nil))
		default:
			log.Printf("⚠️ 未知数据源 '%s'，已跳过", name)
		}
	}
	return sources
}

// buildEnrichers 富化阶段按固定顺序执行：官网 → 仓库指标 → 融资 → 邮箱
func buildEnrichers(cfg *config.Config) []port.Enricher {
	return []port.Enricher{
		enrich.NewWebsiteEnricher(nil),
		enrich.NewGitHubMetricsEnricher(cfg.GitHubToken),
		enrich.NewCrunchbaseEnricher(cfg.CrunchbaseAPIKey, nil),
		enrich.NewApolloEnricher(cfg.ApolloAPIKey, nil),
	}
}
