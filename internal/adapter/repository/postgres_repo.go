package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dealflow/internal/common"
	"dealflow/internal/domain"
)

// DealRecord 对应 deals 表，(startup_name, source) 联合唯一
// 嵌套结构 (创始人/仓库指标/官网信号) 序列化成 JSON 列存储
type DealRecord struct {
	ID          uint   `gorm:"primaryKey"`
	StartupName string `gorm:"size:255;uniqueIndex:idx_deals_name_source"`
	Source      string `gorm:"size:32;uniqueIndex:idx_deals_name_source"`
	Website     string `gorm:"size:512"`
	SourceURL   string `gorm:"size:512"`
	Description string `gorm:"type:text"`

	FoundersJSON string `gorm:"type:text"`
	GitHubJSON   string `gorm:"type:text"`
	SignalsJSON  string `gorm:"type:text"`

	FundingRaised float64
	FundingStage  string `gorm:"size:64"`
	EmployeeCount string `gorm:"size:64"`
	HQLocation    string `gorm:"size:255"`

	TriageStatus    string `gorm:"size:32;default:New"`
	TriagedBy       string `gorm:"size:128"`
	RejectionReason string `gorm:"type:text"`
	SlackTS         string `gorm:"size:64;index"`

	DiscoveredAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (DealRecord) TableName() string { return "deals" }

// ScoredDealRecord 对应 scored_deals 表，一条评分结果关联一条线索
type ScoredDealRecord struct {
	ID     uint `gorm:"primaryKey"`
	DealID uint `gorm:"index"`

	TotalScore      int `gorm:"index"`
	ProblemSeverity int
	Differentiation int
	Team            int
	MarketReadiness int

	Summary       string `gorm:"type:text"`
	StrengthsJSON string `gorm:"type:text"`
	RedFlagsJSON  string `gorm:"type:text"`
	Priority      string `gorm:"size:32;index"`

	ScoredAt  time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (ScoredDealRecord) TableName() string { return "scored_deals" }

// DigestRecord 对应 digest_history 表，每周一条
type DigestRecord struct {
	ID            uint `gorm:"primaryKey"`
	WeekStart     time.Time
	WeekEnd       time.Time
	TotalReviewed int
	HighPriority  int
	WorthWatching int
	AutoFiltered  int
	CreatedAt     time.Time
}

func (DigestRecord) TableName() string { return "digest_history" }

// PostgresRepo 实现了 port.Repository 接口
type PostgresRepo struct {
	db *gorm.DB
}

// NewPostgresRepo 初始化数据库连接并自动迁移表结构
func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "连接数据库失败", err)
	}

	repo, err := NewPostgresRepoWithDB(db)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// NewPostgresRepoWithDB 用已有连接构造 (方便测试注入 sqlmock)
func NewPostgresRepoWithDB(db *gorm.DB) (*PostgresRepo, error) {
	// 自动迁移：建 deals / scored_deals / digest_history 三张表
	if err := db.AutoMigrate(&DealRecord{}, &ScoredDealRecord{}, &DigestRecord{}); err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "数据库迁移失败", err)
	}
	return &PostgresRepo{db: db}, nil
}

// SaveDeal 保存线索；(名称, 来源) 已存在时直接返回现有 ID
func (r *PostgresRepo) SaveDeal(ctx context.Context, deal *domain.Deal) (uint, error) {
	var existing DealRecord
	err := r.db.WithContext(ctx).
		Where("startup_name = ? AND source = ?", deal.StartupName, string(deal.Source)).
		First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, common.WrapError(common.ErrCodeDatabase, "线索查询失败", err)
	}

	record := toDealRecord(deal)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return 0, common.WrapError(common.ErrCodeDatabase, "线索保存失败: "+deal.StartupName, err)
	}
	return record.ID, nil
}

// SaveScoredDeal 保存评分结果，关联已存在的线索
func (r *PostgresRepo) SaveScoredDeal(ctx context.Context, dealID uint, scored *domain.ScoredDeal) (uint, error) {
	record := &ScoredDealRecord{
		DealID:          dealID,
		TotalScore:      scored.TotalScore,
		ProblemSeverity: scored.Breakdown.ProblemSeverity,
		Differentiation: scored.Breakdown.Differentiation,
		Team:            scored.Breakdown.Team,
		MarketReadiness: scored.Breakdown.MarketReadiness,
		Summary:         scored.Summary,
		StrengthsJSON:   marshalList(scored.Strengths),
		RedFlagsJSON:    marshalList(scored.RedFlags),
		Priority:        string(scored.Priority),
		ScoredAt:        scored.ScoredAt,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return 0, common.WrapError(common.ErrCodeDatabase, "评分结果保存失败", err)
	}
	return record.ID, nil
}

// ScoredDealsSince 查询某时间点之后、分数不低于 minScore 的评分结果 (周报用)
func (r *PostgresRepo) ScoredDealsSince(ctx context.Context, since time.Time, minScore int) ([]*domain.ScoredDeal, error) {
	var records []ScoredDealRecord
	err := r.db.WithContext(ctx).
		Where("scored_at >= ? AND total_score >= ?", since, minScore).
		Order("total_score DESC").
		Find(&records).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "评分结果查询失败", err)
	}

	scored := make([]*domain.ScoredDeal, 0, len(records))
	for i := range records {
		rec := &records[i]

		var dealRec DealRecord
		if err := r.db.WithContext(ctx).First(&dealRec, rec.DealID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue // 线索被清理了，跳过
			}
			return nil, common.WrapError(common.ErrCodeDatabase, "线索回查失败", err)
		}

		scored = append(scored, fromScoredRecord(rec, &dealRec))
	}
	return scored, nil
}

// SaveDigest 保存周报快照
func (r *PostgresRepo) SaveDigest(ctx context.Context, digest *domain.WeeklyDigest) error {
	record := &DigestRecord{
		WeekStart:     digest.WeekStart,
		WeekEnd:       digest.WeekEnd,
		TotalReviewed: digest.TotalReviewed,
		HighPriority:  digest.HighPriority,
		WorthWatching: digest.WorthWatching,
		AutoFiltered:  digest.AutoFiltered,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return common.WrapError(common.ErrCodeDatabase, "周报保存失败", err)
	}
	return nil
}

// UpdateTriage 按 Slack 消息时间戳回写人工筛选状态
func (r *PostgresRepo) UpdateTriage(ctx context.Context, slackTS, status, triagedBy, reason string) error {
	result := r.db.WithContext(ctx).
		Model(&DealRecord{}).
		Where("slack_ts = ?", slackTS).
		Updates(map[string]any{
			"triage_status":    status,
			"triaged_by":       triagedBy,
			"rejection_reason": reason,
		})
	if result.Error != nil {
		return common.WrapError(common.ErrCodeDatabase, "筛选状态更新失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.NewError(common.ErrCodeDatabase, fmt.Sprintf("没有匹配的线索: slack_ts=%s", slackTS))
	}
	return nil
}

// toDealRecord 领域对象 → 数据库记录
func toDealRecord(deal *domain.Deal) *DealRecord {
	return &DealRecord{
		StartupName:     deal.StartupName,
		Source:          string(deal.Source),
		Website:         deal.Website,
		SourceURL:       deal.SourceURL,
		Description:     deal.Description,
		FoundersJSON:    marshalJSON(deal.Founders),
		GitHubJSON:      marshalJSON(deal.GitHub),
		SignalsJSON:     marshalJSON(deal.Signals),
		FundingRaised:   deal.FundingRaised,
		FundingStage:    deal.FundingStage,
		EmployeeCount:   deal.EmployeeCount,
		HQLocation:      deal.HQLocation,
		TriageStatus:    deal.TriageStatus,
		TriagedBy:       deal.TriagedBy,
		RejectionReason: deal.RejectionReason,
		SlackTS:         deal.SlackTS,
		DiscoveredAt:    deal.DiscoveredAt,
	}
}

// fromScoredRecord 数据库记录 → 领域对象
func fromScoredRecord(rec *ScoredDealRecord, dealRec *DealRecord) *domain.ScoredDeal {
	deal := domain.Deal{
		StartupName:     dealRec.StartupName,
		Source:          domain.DealSource(dealRec.Source),
		Website:         dealRec.Website,
		SourceURL:       dealRec.SourceURL,
		Description:     dealRec.Description,
		FundingRaised:   dealRec.FundingRaised,
		FundingStage:    dealRec.FundingStage,
		EmployeeCount:   dealRec.EmployeeCount,
		HQLocation:      dealRec.HQLocation,
		TriageStatus:    dealRec.TriageStatus,
		TriagedBy:       dealRec.TriagedBy,
		RejectionReason: dealRec.RejectionReason,
		SlackTS:         dealRec.SlackTS,
		DiscoveredAt:    dealRec.DiscoveredAt,
	}
	if dealRec.FoundersJSON != "" {
		_ = json.Unmarshal([]byte(dealRec.FoundersJSON), &deal.Founders)
	}
	if dealRec.GitHubJSON != "" {
		_ = json.Unmarshal([]byte(dealRec.GitHubJSON), &deal.GitHub)
	}
	if dealRec.SignalsJSON != "" {
		_ = json.Unmarshal([]byte(dealRec.SignalsJSON), &deal.Signals)
	}

	return &domain.ScoredDeal{
		Deal:       deal,
		TotalScore: rec.TotalScore,
		Breakdown: domain.ScoreBreakdown{
			ProblemSeverity: rec.ProblemSeverity,
			Differentiation: rec.Differentiation,
			Team:            rec.Team,
			MarketReadiness: rec.MarketReadiness,
		},
		Summary:   rec.Summary,
		Strengths: unmarshalList(rec.StrengthsJSON),
		RedFlags:  unmarshalList(rec.RedFlagsJSON),
		Priority:  domain.DealPriority(rec.Priority),
		ScoredAt:  rec.ScoredAt,
	}
}

func marshalJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	s := string(b)
	if s == "null" {
		return ""
	}
	return s
}

func marshalList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func unmarshalList(s string) []string {
	if s == "" {
		return nil
	}
	var items []string
	_ = json.Unmarshal([]byte(s), &items)
	return items
}
