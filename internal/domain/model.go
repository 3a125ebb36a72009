package domain

import (
	"time"

	"dealflow/internal/common"
)

// DealSource 标识线索的来源渠道
type DealSource string

const (
	SourceGitHub      DealSource = "github"
	SourceProductHunt DealSource = "product_hunt"
	SourceYC          DealSource = "yc"
	SourceHuggingFace DealSource = "huggingface"
	SourceArxiv       DealSource = "arxiv"
	SourceLinkedIn    DealSource = "linkedin"
	SourceTwitter     DealSource = "twitter"
	SourceHackerNews  DealSource = "hacker_news"
	SourceReddit      DealSource = "reddit"
	SourceRSS         DealSource = "rss"
	SourceManual      DealSource = "manual"
)

// DealPriority 根据总分推导出的优先级档位
type DealPriority string

const (
	PriorityHigh          DealPriority = "high"           // score >= 85
	PriorityWorthWatching DealPriority = "worth_watching" // 75 <= score < 85
	PriorityLow           DealPriority = "low"            // score < 75
)

// 四个维度的评分上限 (30/25/25/20)，总分上限 100
const (
	MaxProblemSeverity  = 30
	MaxDifferentiation  = 25
	MaxTeam             = 25
	MaxMarketReadiness  = 20
	MaxTotalScore       = 100
	HighPriorityCutoff  = 85
	WorthWatchingCutoff = 75
)

// 初始 Triage 状态，Slack 上的表情交互会把它改成 Interesting / Pass / Reach Out
const TriageStatusNew = "New"

// Founder 创始人信息 (主要来自 LinkedIn / Apollo 富化)
type Founder struct {
	Name             string   `json:"name"`
	LinkedInURL      string   `json:"linkedin_url,omitempty"`
	Background       string   `json:"background,omitempty"`
	NotableCompanies []string `json:"notable_companies,omitempty"`
	HasPhD           bool     `json:"has_phd"`
	HasExits         bool     `json:"has_exits"`
	OSSContributions string   `json:"oss_contributions,omitempty"`
	Email            string   `json:"email,omitempty"` // Apollo 富化阶段填入
}

// GitHubMetrics 代码仓库的量化指标
type GitHubMetrics struct {
	RepoURL           string   `json:"repo_url"`
	Stars             int      `json:"stars"`
	StarVelocity7d    int      `json:"star_velocity_7d"` // 最近7天新增 star
	Contributors      int      `json:"contributors"`
	OpenIssues        int      `json:"open_issues"`
	EnterpriseSignals []string `json:"enterprise_signals,omitempty"` // 例如 ["SAML", "SOC2", "RBAC"]
	ReadmeSnippet     string   `json:"readme_snippet,omitempty"`
}

// WebsiteSignals 官网信号：四个布尔标志 + 正文节选 (给 LLM 评分用)
type WebsiteSignals struct {
	HasPricing        bool   `json:"has_pricing"`
	HasBookDemo       bool   `json:"has_book_demo"`
	HasSOC2Badge      bool   `json:"has_soc2_badge"`
	HasEnterpriseTier bool   `json:"has_enterprise_tier"`
	PageText          string `json:"page_text,omitempty"`
}

// Deal 代表一条尚未评分的创业公司线索
// 注意：StartupName 不保证全局唯一，不同来源可能指向同一家公司，
// 唯一性由 dedup 包的多键合并逻辑建立
type Deal struct {
	StartupName string          `json:"startup_name"`
	Website     string          `json:"website,omitempty"`
	Description string          `json:"description"`
	Founders    []Founder       `json:"founders,omitempty"`
	GitHub      *GitHubMetrics  `json:"github,omitempty"`
	Signals     *WebsiteSignals `json:"website_signals,omitempty"`

	Source       DealSource `json:"source"`
	SourceURL    string     `json:"source_url,omitempty"`
	DiscoveredAt time.Time  `json:"discovered_at"`

	// 富化字段：每个字段只由对应的富化阶段写入，默认为零值
	FundingRaised float64 `json:"funding_raised,omitempty"` // Crunchbase，美元
	FundingStage  string  `json:"funding_stage,omitempty"`  // Crunchbase
	EmployeeCount string  `json:"employee_count,omitempty"` // Crunchbase
	HQLocation    string  `json:"hq_location,omitempty"`    // Crunchbase

	// Triage 字段
	TriageStatus    string `json:"triage_status"`
	TriagedBy       string `json:"triaged_by,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	SlackTS         string `json:"slack_ts,omitempty"` // Slack 消息时间戳，用于线程关联
}

// NewDeal 创建线索并填好默认值
func NewDeal(name string, source DealSource) *Deal {
	return &Deal{
		StartupName:  name,
		Source:       source,
		DiscoveredAt: time.Now().UTC(),
		TriageStatus: TriageStatusNew,
	}
}

// Validate 结构校验：缺必填字段时返回 VALIDATION_ERROR
func (d *Deal) Validate() error {
	if d == nil {
		return common.NewError(common.ErrCodeValidation, "deal 为空")
	}
	if d.StartupName == "" && d.SourceURL == "" {
		return common.NewError(common.ErrCodeValidation, "deal 缺少名称和来源链接")
	}
	if d.Source == "" {
		return common.NewError(common.ErrCodeValidation, "deal 缺少来源标记")
	}
	return nil
}

// Clone 深拷贝一份线索
// ScoredDeal 持有的是快照，后续富化不应影响已评分的结果
func (d *Deal) Clone() *Deal {
	if d == nil {
		return nil
	}
	cp := *d
	if d.Founders != nil {
		cp.Founders = make([]Founder, len(d.Founders))
		copy(cp.Founders, d.Founders)
		for i := range cp.Founders {
			if src := d.Founders[i].NotableCompanies; src != nil {
				cp.Founders[i].NotableCompanies = append([]string(nil), src...)
			}
		}
	}
	if d.GitHub != nil {
		gh := *d.GitHub
		gh.EnterpriseSignals = append([]string(nil), d.GitHub.EnterpriseSignals...)
		cp.GitHub = &gh
	}
	if d.Signals != nil {
		ws := *d.Signals
		cp.Signals = &ws
	}
	return &cp
}

// ScoreBreakdown 四维评分卡，各维度独立封顶
type ScoreBreakdown struct {
	ProblemSeverity int `json:"problem_severity"` // 0-30
	Differentiation int `json:"differentiation"`  // 0-25
	Team            int `json:"team"`             // 0-25
	MarketReadiness int `json:"market_readiness"` // 0-20
}

// NewScoreBreakdown 构造时校验每个维度都在 [0, max] 之内
func NewScoreBreakdown(problem, diff, team, market int) (ScoreBreakdown, error) {
	b := ScoreBreakdown{
		ProblemSeverity: problem,
		Differentiation: diff,
		Team:            team,
		MarketReadiness: market,
	}
	if b != b.Clamped() {
		return ScoreBreakdown{}, common.NewError(common.ErrCodeValidation, "评分维度超出范围")
	}
	return b, nil
}

// Total 四个维度之和
func (b ScoreBreakdown) Total() int {
	return b.ProblemSeverity + b.Differentiation + b.Team + b.MarketReadiness
}

// Clamped 把每个维度独立截断到各自的 [0, max] 区间
// 维度之间不做归一化，某个维度溢出不影响其他维度
func (b ScoreBreakdown) Clamped() ScoreBreakdown {
	return ScoreBreakdown{
		ProblemSeverity: ClampScore(b.ProblemSeverity, MaxProblemSeverity),
		Differentiation: ClampScore(b.Differentiation, MaxDifferentiation),
		Team:            ClampScore(b.Team, MaxTeam),
		MarketReadiness: ClampScore(b.MarketReadiness, MaxMarketReadiness),
	}
}

// ClampScore 标准 max(0, min(v, limit)) 截断
func ClampScore(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

// ClassifyScore 总分 → 优先级档位 (每档下界闭合)
func ClassifyScore(total int) DealPriority {
	switch {
	case total >= HighPriorityCutoff:
		return PriorityHigh
	case total >= WorthWatchingCutoff:
		return PriorityWorthWatching
	default:
		return PriorityLow
	}
}

// ScoredDeal 评分后的线索，创建后不再修改，只会被持久化
type ScoredDeal struct {
	Deal       Deal           `json:"deal"` // 快照，不与原 Deal 共享
	TotalScore int            `json:"total_score"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
	Summary    string         `json:"summary"`
	Strengths  []string       `json:"strengths"` // 最多 2 条
	RedFlags   []string       `json:"red_flags"` // 最多 2 条
	Priority   DealPriority   `json:"priority"`
	ScoredAt   time.Time      `json:"scored_at"`
}

// NewScoredDeal 构造评分结果：拷贝 Deal 快照、校验总分范围、推导优先级
func NewScoredDeal(deal *Deal, total int, breakdown ScoreBreakdown) (*ScoredDeal, error) {
	if err := deal.Validate(); err != nil {
		return nil, err
	}
	if total < 0 || total > MaxTotalScore {
		return nil, common.NewError(common.ErrCodeValidation, "总分超出 [0,100] 范围")
	}
	if breakdown != breakdown.Clamped() {
		return nil, common.NewError(common.ErrCodeValidation, "评分维度超出范围")
	}
	return &ScoredDeal{
		Deal:       *deal.Clone(),
		TotalScore: total,
		Breakdown:  breakdown,
		Priority:   ClassifyScore(total),
		ScoredAt:   time.Now().UTC(),
	}, nil
}

// Classify 返回当前总分对应的档位
func (s *ScoredDeal) Classify() DealPriority {
	return ClassifyScore(s.TotalScore)
}

// WeeklyDigest 每周一早上的汇总快照
type WeeklyDigest struct {
	WeekStart     time.Time     `json:"week_start"`
	WeekEnd       time.Time     `json:"week_end"`
	TotalReviewed int           `json:"total_reviewed"`
	HighPriority  int           `json:"high_priority"`  // >= 85
	WorthWatching int           `json:"worth_watching"` // 75-84
	AutoFiltered  int           `json:"auto_filtered"`  // < 75
	TopDeals      []*ScoredDeal `json:"top_deals"`
}
