package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dealflow/internal/common"
	"dealflow/internal/domain"
)

func sampleScored(t *testing.T) *domain.ScoredDeal {
	t.Helper()

	deal := domain.NewDeal("Acme AI", domain.SourceGitHub)
	deal.Website = "https://acme.ai"
	deal.SourceURL = "https://github.com/acme/ai"
	deal.GitHub = &domain.GitHubMetrics{RepoURL: "https://github.com/acme/ai"}

	breakdown, err := domain.NewScoreBreakdown(28, 22, 20, 18)
	assert.NoError(t, err)

	scored, err := domain.NewScoredDeal(deal, 88, breakdown)
	assert.NoError(t, err)
	scored.Summary = "AI agents for enterprise finance teams"
	scored.Strengths = []string{"Proprietary data", "Strong team"}
	scored.RedFlags = []string{"Crowded market"}
	return scored
}

func TestFormatDealCard(t *testing.T) {
	card := FormatDealCard(sampleScored(t))

	assert.Contains(t, card, "🔥 *High-Signal Deal: Acme AI* — Score: 88/100")
	assert.Contains(t, card, "📝 *One-Liner:* AI agents for enterprise finance teams")
	assert.Contains(t, card, "✅ *Why It's Hot:*")
	assert.Contains(t, card, "  • Proprietary data")
	assert.Contains(t, card, "⚠️ *Red Flags:*")
	assert.Contains(t, card, "  • Crowded market")
	assert.Contains(t, card, "📊 *Breakdown:* Problem: 28/30 | Diff: 22/25 | Team: 20/25 | Market: 18/20")
	assert.Contains(t, card, "<https://acme.ai|Website>")
	assert.Contains(t, card, "<https://github.com/acme/ai|GitHub>")
}

func TestNotifyDealDryRunDoesNotPost(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	n := NewNotifier(server.URL)
	text, err := n.NotifyDeal(context.Background(), sampleScored(t), true)

	assert.NoError(t, err)
	assert.Contains(t, text, "Acme AI")
	assert.False(t, called)
}

func TestNotifyDealPostsPayload(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewNotifier(server.URL)
	_, err := n.NotifyDeal(context.Background(), sampleScored(t), false)

	assert.NoError(t, err)
	assert.Contains(t, received["text"], "Acme AI")
	assert.Equal(t, false, received["unfurl_links"])
}

func TestPostTextEmptyWebhookFails(t *testing.T) {
	n := NewNotifier("")
	_, err := n.PostText(context.Background(), "hello", false)

	assert.Error(t, err)
	assert.True(t, common.HasCode(err, common.ErrCodeNotification))
}

func TestFormatDigest(t *testing.T) {
	top := sampleScored(t)
	digest := &domain.WeeklyDigest{
		WeekStart:     time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		WeekEnd:       time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		TotalReviewed: 120,
		HighPriority:  4,
		WorthWatching: 11,
		AutoFiltered:  105,
		TopDeals:      []*domain.ScoredDeal{top},
	}

	text := FormatDigest(digest)

	assert.Contains(t, text, "📊 *This Week in Enterprise AI Deal Flow*")
	assert.Contains(t, text, "✅ Reviewed: 120 startups")
	assert.Contains(t, text, "🔥 High Priority (≥85): 4")
	assert.Contains(t, text, "1. *Acme AI* — 88/100")
	assert.Contains(t, text, "Feb 02 – Feb 09, 2026")
}
