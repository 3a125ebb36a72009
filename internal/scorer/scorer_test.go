package scorer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"dealflow/internal/common"
	"dealflow/internal/domain"
)

// MockGenerator 模拟 LLM 文本生成
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func testDeal() *domain.Deal {
	deal := domain.NewDeal("Acme AI", domain.SourceGitHub)
	deal.Description = "Enterprise AI agent platform"
	deal.Website = "https://acme.ai"
	return deal
}

const validResponse = `{
	"problem_severity": 28,
	"differentiation": 22,
	"team": 20,
	"market_readiness": 18,
	"total_score": 88,
	"summary": "AI agents for enterprise finance teams",
	"strengths": ["Proprietary data", "Strong team"],
	"red_flags": ["Crowded market"],
	"confidence": "high"
}`

func TestScoreValidResponse(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(validResponse, nil)

	engine := NewEngine(gen, true)
	scored, err := engine.Score(context.Background(), testDeal())

	assert.NoError(t, err)
	assert.Equal(t, 88, scored.TotalScore)
	assert.Equal(t, domain.PriorityHigh, scored.Priority)
	assert.Equal(t, 28, scored.Breakdown.ProblemSeverity)
	assert.Equal(t, "AI agents for enterprise finance teams", scored.Summary)
	assert.Equal(t, []string{"Proprietary data", "Strong team"}, scored.Strengths)
	assert.Equal(t, []string{"Crowded market"}, scored.RedFlags)
	gen.AssertExpectations(t)
}

func TestScoreMarkdownFencedResponse(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("```json\n"+validResponse+"\n```", nil)

	engine := NewEngine(gen, true)
	scored, err := engine.Score(context.Background(), testDeal())

	assert.NoError(t, err)
	assert.Equal(t, 88, scored.TotalScore)
}

func TestScoreJSONEmbeddedInProse(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("Here is my evaluation:\n"+validResponse+"\nHope this helps!", nil)

	engine := NewEngine(gen, true)
	scored, err := engine.Score(context.Background(), testDeal())

	assert.NoError(t, err)
	assert.Equal(t, 88, scored.TotalScore)
}

func TestScoreUnparseableResponseYieldsPlaceholder(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("This is not JSON at all", nil)

	engine := NewEngine(gen, true)
	scored, err := engine.Score(context.Background(), testDeal())

	// 解析失败不算错误，返回零分占位结果等待人工复核
	assert.NoError(t, err)
	assert.Equal(t, 0, scored.TotalScore)
	assert.Equal(t, domain.PriorityLow, scored.Priority)
	assert.Equal(t, parseFailedSummary, scored.Summary)
	assert.Equal(t, []string{parseFailedRedFlag}, scored.RedFlags)
	assert.Empty(t, scored.Strengths)
}

func TestScoreTransportErrorIsReturned(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", errors.New("connection refused"))

	engine := NewEngine(gen, true)
	scored, err := engine.Score(context.Background(), testDeal())

	assert.Nil(t, scored)
	assert.Error(t, err)
	assert.True(t, common.HasCode(err, common.ErrCodeScoring))
}

func TestScoreClampsDimensions(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(`{
		"problem_severity": 50,
		"differentiation": -5,
		"team": 25,
		"market_readiness": 10,
		"total_score": 120,
		"summary": "s",
		"strengths": [],
		"red_flags": []
	}`, nil)

	engine := NewEngine(gen, true)
	scored, err := engine.Score(context.Background(), testDeal())

	assert.NoError(t, err)
	assert.Equal(t, 30, scored.Breakdown.ProblemSeverity)
	assert.Equal(t, 0, scored.Breakdown.Differentiation)
	// total_score 独立截断，不重算
	assert.Equal(t, 100, scored.TotalScore)
}

func TestScoreNegativeTotalClampsToZero(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(`{
		"problem_severity": 5,
		"differentiation": 5,
		"team": 5,
		"market_readiness": 5,
		"total_score": -10,
		"summary": "s"
	}`, nil)

	engine := NewEngine(gen, true)
	scored, err := engine.Score(context.Background(), testDeal())

	assert.NoError(t, err)
	assert.Equal(t, 0, scored.TotalScore)
	assert.Equal(t, domain.PriorityLow, scored.Priority)
}

func TestScoreTruncatesLists(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(`{
		"problem_severity": 20,
		"differentiation": 15,
		"team": 15,
		"market_readiness": 10,
		"total_score": 60,
		"summary": "s",
		"strengths": ["a", "b", "c", "d"],
		"red_flags": ["x", "y", "z"]
	}`, nil)

	engine := NewEngine(gen, true)
	scored, err := engine.Score(context.Background(), testDeal())

	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, scored.Strengths)
	assert.Equal(t, []string{"x", "y"}, scored.RedFlags)
}

func TestScoreRecomputesTotalWhenNotTrusted(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(`{
		"problem_severity": 20,
		"differentiation": 15,
		"team": 15,
		"market_readiness": 10,
		"total_score": 99,
		"summary": "s"
	}`, nil)

	engine := NewEngine(gen, false)
	scored, err := engine.Score(context.Background(), testDeal())

	assert.NoError(t, err)
	// trustLLMTotal=false 时忽略 LLM 的 99，按截断后的维度重新求和
	assert.Equal(t, 60, scored.TotalScore)
}

func TestScoreFallsBackToSumWhenTotalMissing(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(`{
		"problem_severity": 25,
		"differentiation": 20,
		"team": 20,
		"market_readiness": 15,
		"summary": "s"
	}`, nil)

	engine := NewEngine(gen, true)
	scored, err := engine.Score(context.Background(), testDeal())

	assert.NoError(t, err)
	// total_score 缺失：即使信任 LLM 也只能退回维度求和
	assert.Equal(t, 80, scored.TotalScore)
	assert.Equal(t, domain.PriorityWorthWatching, scored.Priority)
}

func TestScoreRejectsInvalidDeal(t *testing.T) {
	gen := new(MockGenerator)
	engine := NewEngine(gen, true)

	_, err := engine.Score(context.Background(), &domain.Deal{})

	assert.Error(t, err)
	assert.True(t, common.HasCode(err, common.ErrCodeValidation))
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestBuildPromptIncludesDealData(t *testing.T) {
	deal := testDeal()
	deal.Founders = []domain.Founder{{Name: "Jane", HasPhD: true}}
	deal.GitHub = &domain.GitHubMetrics{RepoURL: "https://github.com/acme/ai", Stars: 1200}
	deal.Signals = &domain.WebsiteSignals{HasPricing: true, HasBookDemo: true}

	prompt := BuildPrompt(deal)

	assert.Contains(t, prompt, "Name: Acme AI")
	assert.Contains(t, prompt, "Website: https://acme.ai")
	assert.Contains(t, prompt, "- Jane")
	assert.Contains(t, prompt, "Has PhD: Yes")
	assert.Contains(t, prompt, "Stars: 1200")
	assert.Contains(t, prompt, "Has pricing page: true")
	assert.Contains(t, prompt, "Has 'Book Demo': true")
}

func TestBuildPromptHandlesMissingData(t *testing.T) {
	deal := domain.NewDeal("Bare Minimum", domain.SourceManual)
	deal.Description = "nothing else known"

	prompt := BuildPrompt(deal)

	assert.Contains(t, prompt, "Website: N/A")
	assert.Contains(t, prompt, "No founder data available")
	assert.Contains(t, prompt, "No GitHub data available")
	assert.Contains(t, prompt, "No website data available")
}

func TestParseScoreResponseRejectsGarbage(t *testing.T) {
	_, err := parseScoreResponse("total_score is probably 90 or so")
	assert.Error(t, err)
	assert.True(t, common.HasCode(err, common.ErrCodeParse))
}
