package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"dealflow/internal/domain"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) SaveDeal(ctx context.Context, deal *domain.Deal) (uint, error) {
	args := m.Called(ctx, deal)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockRepository) SaveScoredDeal(ctx context.Context, dealID uint, scored *domain.ScoredDeal) (uint, error) {
	args := m.Called(ctx, dealID, scored)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockRepository) ScoredDealsSince(ctx context.Context, since time.Time, minScore int) ([]*domain.ScoredDeal, error) {
	args := m.Called(ctx, since, minScore)
	return nil, args.Error(1)
}

func (m *MockRepository) SaveDigest(ctx context.Context, digest *domain.WeeklyDigest) error {
	args := m.Called(ctx, digest)
	return args.Error(0)
}

func (m *MockRepository) UpdateTriage(ctx context.Context, slackTS, status, triagedBy, reason string) error {
	args := m.Called(ctx, slackTS, status, triagedBy, reason)
	return args.Error(0)
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestURLVerificationEchoesChallenge(t *testing.T) {
	srv := NewServer(new(MockRepository))

	rec := postJSON(t, srv.Handler(), "/slack/events", map[string]any{
		"type":      "url_verification",
		"challenge": "abc123",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", rec.Body.String())
}

func TestReactionAddedUpdatesTriage(t *testing.T) {
	store := new(MockRepository)
	store.On("UpdateTriage", mock.Anything, "1700000000.000100", "Interesting", "U123", "").Return(nil)

	srv := NewServer(store)

	rec := postJSON(t, srv.Handler(), "/slack/events", map[string]any{
		"type": "event_callback",
		"event": map[string]any{
			"type":     "reaction_added",
			"reaction": "books",
			"user":     "U123",
			"item": map[string]any{
				"type":    "message",
				"channel": "C001",
				"ts":      "1700000000.000100",
			},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestReactionMapping(t *testing.T) {
	tests := []struct {
		reaction string
		status   string
	}{
		{"books", "Interesting"},
		{"thumbsdown", "Pass"},
		{"-1", "Pass"},
		{"email", "Reach Out"},
		{"envelope", "Reach Out"},
	}

	for _, tt := range tests {
		t.Run(tt.reaction, func(t *testing.T) {
			store := new(MockRepository)
			store.On("UpdateTriage", mock.Anything, "1.2", tt.status, "U1", "").Return(nil)

			srv := NewServer(store)
			rec := postJSON(t, srv.Handler(), "/slack/events", map[string]any{
				"type": "event_callback",
				"event": map[string]any{
					"type":     "reaction_added",
					"reaction": tt.reaction,
					"user":     "U1",
					"item":     map[string]any{"type": "message", "ts": "1.2"},
				},
			})

			assert.Equal(t, http.StatusOK, rec.Code)
			store.AssertExpectations(t)
		})
	}
}

func TestUnknownReactionIsIgnored(t *testing.T) {
	store := new(MockRepository)
	srv := NewServer(store)

	rec := postJSON(t, srv.Handler(), "/slack/events", map[string]any{
		"type": "event_callback",
		"event": map[string]any{
			"type":     "reaction_added",
			"reaction": "tada",
			"user":     "U1",
			"item":     map[string]any{"type": "message", "ts": "1.2"},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertNotCalled(t, "UpdateTriage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInvalidJSONRejected(t *testing.T) {
	srv := NewServer(new(MockRepository))

	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInteractButtonUpdatesTriage(t *testing.T) {
	store := new(MockRepository)
	store.On("UpdateTriage", mock.Anything, "1700000000.000200", "Pass", "jane", "not enterprise").Return(nil)

	srv := NewServer(store)

	payload, _ := json.Marshal(map[string]any{
		"type":    "block_actions",
		"user":    map[string]any{"username": "jane"},
		"message": map[string]any{"ts": "1700000000.000200"},
		"actions": []map[string]any{
			{"action_id": "triage_pass", "value": "not enterprise"},
		},
	})

	form := url.Values{"payload": {string(payload)}}
	req := httptest.NewRequest(http.MethodPost, "/slack/interact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestHealthz(t *testing.T) {
	srv := NewServer(new(MockRepository))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
