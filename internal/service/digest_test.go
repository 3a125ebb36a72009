package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"dealflow/internal/common"
	"dealflow/internal/domain"
)

func mkScoredAt(t *testing.T, name string, total int) *domain.ScoredDeal {
	t.Helper()
	deal := mkDeal(name, "desc", domain.SourceGitHub)
	breakdown := domain.ScoreBreakdown{}
	scored, err := domain.NewScoredDeal(deal, total, breakdown)
	assert.NoError(t, err)
	scored.Summary = name + " summary"
	return scored
}

func TestDigestRunCountsTiers(t *testing.T) {
	ctx := context.Background()

	// 按分数降序，模拟 ScoredDealsSince 的排序约定
	scored := []*domain.ScoredDeal{
		mkScoredAt(t, "Top", 92),
		mkScoredAt(t, "Second", 88),
		mkScoredAt(t, "Watch1", 80),
		mkScoredAt(t, "Watch2", 76),
		mkScoredAt(t, "Filtered", 40),
	}

	store := new(MockRepository)
	store.On("ScoredDealsSince", mock.Anything, mock.Anything, 0).Return(scored, nil)
	store.On("SaveDigest", mock.Anything, mock.Anything).Return(nil)

	notifier := new(MockNotifier)
	notifier.On("PostText", mock.Anything, mock.Anything, false).Return("ok", nil)

	svc := NewDigestService(store, notifier, false)
	digest, err := svc.Run(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 5, digest.TotalReviewed)
	assert.Equal(t, 2, digest.HighPriority)
	assert.Equal(t, 2, digest.WorthWatching)
	assert.Equal(t, 1, digest.AutoFiltered)
	assert.Len(t, digest.TopDeals, 3)
	assert.Equal(t, "Top", digest.TopDeals[0].Deal.StartupName)
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestDigestRunQueryFailure(t *testing.T) {
	store := new(MockRepository)
	store.On("ScoredDealsSince", mock.Anything, mock.Anything, 0).
		Return(nil, common.NewError(common.ErrCodeDatabase, "query failed"))

	svc := NewDigestService(store, nil, false)
	_, err := svc.Run(context.Background())

	assert.Error(t, err)
	assert.True(t, common.HasCode(err, common.ErrCodeDatabase))
}

func TestDigestDryRunStillPersists(t *testing.T) {
	store := new(MockRepository)
	store.On("ScoredDealsSince", mock.Anything, mock.Anything, 0).
		Return([]*domain.ScoredDeal{}, nil)
	store.On("SaveDigest", mock.Anything, mock.Anything).Return(nil)

	notifier := new(MockNotifier)
	notifier.On("PostText", mock.Anything, mock.Anything, true).Return("rendered", nil)

	svc := NewDigestService(store, notifier, true)
	digest, err := svc.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 0, digest.TotalReviewed)
}

func TestBuildDigestWindow(t *testing.T) {
	start := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	digest := buildDigest(start, end, nil)

	assert.Equal(t, start, digest.WeekStart)
	assert.Equal(t, end, digest.WeekEnd)
	assert.Equal(t, 0, digest.TotalReviewed)
	assert.Empty(t, digest.TopDeals)
}
