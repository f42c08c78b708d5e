package service

import (
	"context"

	"github.com/tournesol-app/comparo/internal/domain"
)

// ComparisonAPI reads and writes the contributor's comparisons.
// GetComparison returns an error wrapping domain.ErrNotFound when the pair
// was never compared.
type ComparisonAPI interface {
	GetComparison(ctx context.Context, poll, entityA, entityB string) (*domain.ComparisonDraft, error)
	CreateComparison(ctx context.Context, c *domain.ComparisonDraft) (*domain.ComparisonDraft, error)
	UpdateComparison(ctx context.Context, poll, entityA, entityB string, scores []domain.CriterionScore, partial bool) (*domain.ComparisonDraft, error)
}

// StatsRefresher refreshes aggregate statistics shown for a poll.
type StatsRefresher interface {
	RefreshStats(ctx context.Context, poll string) error
}

type PollSource interface {
	GetPoll(ctx context.Context, name string) (*domain.Poll, error)
}

type SettingsSource interface {
	GetPreferences(ctx context.Context, poll string) (*domain.Preferences, error)
}

// PointerProbe reports whether the client has a fine pointing device.
type PointerProbe func() bool
