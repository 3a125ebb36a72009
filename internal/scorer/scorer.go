// Package scorer 把一条富化后的线索变成四维评分卡结果。
//
// 流程：拼 rubric prompt → 调一次文本生成能力 → 严格解析返回的 JSON
// (容忍 markdown 围栏和夹杂的说明文字) → 逐字段截断 → 推导优先级。
// 解析失败产出零分占位结果，绝不让单条线索拖垮整个批次。
package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"dealflow/internal/common"
	"dealflow/internal/domain"
	"dealflow/internal/port"
)

// scorecardPrompt 评分卡 rubric，与投资团队的打分标准一一对应
// 英文是刻意的：被评估的公司资料都是英文，混用中文会稀释评分质量
const scorecardPrompt = `You are a seed-stage VC analyst evaluating Enterprise AI startups. Score 0-100.

IMPORTANT: Be CRITICAL. Average startups should score 50-70. Only exceptional opportunities score >85.

Analyze this startup based on the following weighted rubric:

1. PROBLEM SEVERITY (30 points)
   - 25-30: Mission-critical (compliance, security, fraud prevention, revenue operations).
   - 18-24: High-value efficiency (10x faster workflows, >$100k/year savings).
   - 10-17: Moderate pain point (2-5x improvement, nice-to-have).
   - 0-9: Unclear problem OR consumer-focused.

2. DIFFERENTIATION (25 points)
   - 20-25: Proprietary data/models, unique workflow IP, deep vertical integration.
   - 13-19: Novel application with defensibility (network effects, switching costs).
   - 6-12: Better UX/execution on existing solution.
   - 0-5: Obvious ChatGPT/Claude wrapper, no moat.

3. TEAM (25 points)
   - 20-25: PhD + domain expertise OR previous successful exit OR 10+ years in target vertical.
   - 13-19: Strong senior IC at top companies (5-10 years relevant experience).
   - 6-12: Solid background but first-time founders, junior (<5 years).
   - 0-5: No relevant experience visible, career switchers without domain knowledge.

4. MARKET READINESS (20 points)
   - 16-20: Live product, paying customers, SOC2 started, "Book Demo" CTA.
   - 10-15: Beta with users, testimonials, "Join Beta" or "Request Access".
   - 4-9: Landing page only, "Join Waitlist", vague positioning.
   - 0-3: Blog/concept only, no product.

PENALTIES (Deduct from total score):
- Geographic arbitrage without technical depth: -10
- Buzzword-heavy without substance: -5
- Consumer pivot disguised as enterprise: -15
- No clear ICP (Ideal Customer Profile): -5

--- STARTUP DATA ---

Name: %s
Website: %s
Description: %s

Founders:
%s

GitHub Metrics:
%s

Website Signals:
%s

--- END DATA ---

You MUST respond with ONLY a valid JSON object in this exact format (no markdown):
{
  "problem_severity": <int 0-30>,
  "differentiation": <int 0-25>,
  "team": <int 0-25>,
  "market_readiness": <int 0-20>,
  "total_score": <int 0-100>,
  "summary": "<one concise sentence: what they do + for whom>",
  "strengths": ["<strength 1>", "<strength 2>"],
  "red_flags": ["<red flag 1>"],
  "confidence": "high|medium|low"
}
`

// 占位结果里的固定文案
const (
	parseFailedSummary = "⚠️ Scoring failed — could not parse LLM response"
	parseFailedRedFlag = "Automated scoring failed — needs manual review"
)

// 最多保留的 strengths / red_flags 条数
const maxListEntries = 2

// scoreResponse 接收 LLM 返回的 JSON
// TotalScore 用指针区分 "缺失" 和 "显式 0"：缺失时退回维度求和
type scoreResponse struct {
	ProblemSeverity int      `json:"problem_severity"`
	Differentiation int      `json:"differentiation"`
	Team            int      `json:"team"`
	MarketReadiness int      `json:"market_readiness"`
	TotalScore      *int     `json:"total_score"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	RedFlags        []string `json:"red_flags"`
	Confidence      string   `json:"confidence"`
}

var (
	fenceOpenRe  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```$")
	// 退路：在文本里找第一个扁平的 {...} 片段
	jsonObjectRe = regexp.MustCompile(`(?s)\{[^{}]*\}`)
)

// Engine 评分引擎，对 LLM 调用一次、不重试
type Engine struct {
	gen port.TextGenerator

	// trustLLMTotal 为 true 时 total_score 以 LLM 为准 (独立截断到 [0,100]，
	// 即使与维度之和不一致也不重算)；为 false 时总分由截断后的维度重新求和
	trustLLMTotal bool
}

// NewEngine 创建评分引擎
func NewEngine(gen port.TextGenerator, trustLLMTotal bool) *Engine {
	return &Engine{gen: gen, trustLLMTotal: trustLLMTotal}
}

// Score 评估一条线索
// 只有 LLM 调用本身失败才返回 error (SCORING_ERROR)；
// 输出解析失败返回零分占位结果和 nil error
func (e *Engine) Score(ctx context.Context, deal *domain.Deal) (*domain.ScoredDeal, error) {
	if err := deal.Validate(); err != nil {
		return nil, err
	}

	raw, err := e.gen.Generate(ctx, BuildPrompt(deal))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeScoring, fmt.Sprintf("LLM 调用失败: %s", deal.StartupName), err)
	}

	res, perr := parseScoreResponse(raw)
	if perr != nil {
		return placeholderResult(deal), nil
	}

	breakdown := domain.ScoreBreakdown{
		ProblemSeverity: res.ProblemSeverity,
		Differentiation: res.Differentiation,
		Team:            res.Team,
		MarketReadiness: res.MarketReadiness,
	}.Clamped()

	var total int
	if e.trustLLMTotal && res.TotalScore != nil {
		total = domain.ClampScore(*res.TotalScore, domain.MaxTotalScore)
	} else {
		total = domain.ClampScore(breakdown.Total(), domain.MaxTotalScore)
	}

	scored, err := domain.NewScoredDeal(deal, total, breakdown)
	if err != nil {
		return nil, err
	}
	scored.Summary = res.Summary
	scored.Strengths = truncateList(res.Strengths, maxListEntries)
	scored.RedFlags = truncateList(res.RedFlags, maxListEntries)
	return scored, nil
}

// parseScoreResponse 从 LLM 输出里抠出评分 JSON
// 先整体解析 (去掉可能的 ``` 围栏)，失败再找文本中第一段 {...}
func parseScoreResponse(text string) (*scoreResponse, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = fenceOpenRe.ReplaceAllString(text, "")
		text = fenceCloseRe.ReplaceAllString(text, "")
	}

	var res scoreResponse
	if err := json.Unmarshal([]byte(text), &res); err == nil {
		return &res, nil
	}

	if m := jsonObjectRe.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &res); err == nil {
			return &res, nil
		}
	}

	return nil, common.NewError(common.ErrCodeParse, "LLM 输出中找不到合法的评分 JSON")
}

// placeholderResult 解析失败时的兜底：零分 + 人工复核标记
func placeholderResult(deal *domain.Deal) *domain.ScoredDeal {
	scored, _ := domain.NewScoredDeal(deal, 0, domain.ScoreBreakdown{})
	scored.Summary = parseFailedSummary
	scored.Strengths = []string{}
	scored.RedFlags = []string{parseFailedRedFlag}
	return scored
}

func truncateList(items []string, n int) []string {
	if items == nil {
		return []string{}
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}

// BuildPrompt 把线索序列化进 rubric prompt
func BuildPrompt(deal *domain.Deal) string {
	website := deal.Website
	if website == "" {
		website = "N/A"
	}
	return fmt.Sprintf(scorecardPrompt,
		deal.StartupName,
		website,
		deal.Description,
		formatFounders(deal),
		formatGitHub(deal),
		formatSignals(deal),
	)
}

func formatFounders(deal *domain.Deal) string {
	if len(deal.Founders) == 0 {
		return "No founder data available"
	}
	var lines []string
	for _, f := range deal.Founders {
		parts := []string{"- " + f.Name}
		if f.Background != "" {
			parts = append(parts, "  Background: "+f.Background)
		}
		if len(f.NotableCompanies) > 0 {
			parts = append(parts, "  Companies: "+strings.Join(f.NotableCompanies, ", "))
		}
		if f.HasPhD {
			parts = append(parts, "  Has PhD: Yes")
		}
		if f.HasExits {
			parts = append(parts, "  Has exits: Yes")
		}
		if f.OSSContributions != "" {
			parts = append(parts, "  OSS: "+f.OSSContributions)
		}
		lines = append(lines, strings.Join(parts, "\n"))
	}
	return strings.Join(lines, "\n")
}

func formatGitHub(deal *domain.Deal) string {
	g := deal.GitHub
	if g == nil {
		return "No GitHub data available"
	}
	lines := []string{
		"Repo: " + g.RepoURL,
		fmt.Sprintf("Stars: %d", g.Stars),
		fmt.Sprintf("Star velocity (7d): +%d", g.StarVelocity7d),
		fmt.Sprintf("Contributors: %d", g.Contributors),
		fmt.Sprintf("Open issues: %d", g.OpenIssues),
	}
	if len(g.EnterpriseSignals) > 0 {
		lines = append(lines, "Enterprise signals: "+strings.Join(g.EnterpriseSignals, ", "))
	}
	if g.ReadmeSnippet != "" {
		lines = append(lines, "README excerpt: "+clip(g.ReadmeSnippet, 500))
	}
	return strings.Join(lines, "\n")
}

func formatSignals(deal *domain.Deal) string {
	ws := deal.Signals
	if ws == nil {
		return "No website data available"
	}
	lines := []string{
		fmt.Sprintf("Has pricing page: %t", ws.HasPricing),
		fmt.Sprintf("Has 'Book Demo': %t", ws.HasBookDemo),
		fmt.Sprintf("Has SOC2 badge: %t", ws.HasSOC2Badge),
		fmt.Sprintf("Has enterprise tier: %t", ws.HasEnterpriseTier),
	}
	if ws.PageText != "" {
		lines = append(lines, "Page text excerpt: "+clip(ws.PageText, 500))
	}
	return strings.Join(lines, "\n")
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
