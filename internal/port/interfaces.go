package port

import (
	"context"
	"time"

	"dealflow/internal/domain"
)

// Sourcer (侦察兵): 负责从某个渠道发现新线索
// 可以是爬虫，也可以是调公开 API；硬失败直接返回 error，由管线捕获
type Sourcer interface {
	// Name 用于日志和配置里的来源开关
	Name() string

	// FetchDeals 抓取最多 limit 条线索
	FetchDeals(ctx context.Context, limit int) ([]*domain.Deal, error)
}

// Enricher (补全员): 就地补充一条线索的字段
// 失败时线索保持原样继续往下走，不会中断管线
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, deal *domain.Deal) error
}

// TextGenerator (文本生成能力): 对 LLM 的最小抽象
// 一条 prompt 进，一段自由文本出；传输层失败返回 error
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Scorer (鉴定师): 把富化后的线索变成评分结果
// 解析失败会返回占位结果而非 error；只有 LLM 调用本身失败才返回 error
type Scorer interface {
	Score(ctx context.Context, deal *domain.Deal) (*domain.ScoredDeal, error)
}

// Notifier (信使): 负责把高分线索推到 Slack
type Notifier interface {
	// NotifyDeal 推送单条评分结果；dryRun 时只渲染不发送
	// 返回渲染后的卡片文本 (dry-run 预览用)
	NotifyDeal(ctx context.Context, scored *domain.ScoredDeal, dryRun bool) (string, error)

	// PostText 推送纯文本 (周报等)
	PostText(ctx context.Context, text string, dryRun bool) (string, error)
}

// Repository (仓库管理员): 负责存储和查询
type Repository interface {
	// SaveDeal 保存线索并返回记录 ID
	// (name, source) 唯一约束冲突不算错误，返回已有记录的 ID
	SaveDeal(ctx context.Context, deal *domain.Deal) (uint, error)

	// SaveScoredDeal 保存评分结果，引用 SaveDeal 返回的 ID
	SaveScoredDeal(ctx context.Context, dealID uint, scored *domain.ScoredDeal) (uint, error)

	// ScoredDealsSince 查询某时间点之后、总分不低于 minScore 的结果
	// 按总分降序，周报生成依赖这个查询
	ScoredDealsSince(ctx context.Context, since time.Time, minScore int) ([]*domain.ScoredDeal, error)

	// SaveDigest 保存一期周报快照
	SaveDigest(ctx context.Context, digest *domain.WeeklyDigest) error

	// UpdateTriage 根据 Slack 消息时间戳更新 triage 状态
	UpdateTriage(ctx context.Context, slackTS, status, triagedBy, reason string) error
}
