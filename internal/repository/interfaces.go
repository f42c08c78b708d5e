package repository

import (
	"context"

	"github.com/tournesol-app/comparo/internal/domain"
	"github.com/tournesol-app/comparo/internal/pending"
)

// PendingRatingRepo stores canonical pending ratings.
type PendingRatingRepo interface {
	pending.Backend
}

// PreferencesRepo stores the contributor's local comparison preferences,
// used when no account settings are available.
type PreferencesRepo interface {
	Get(ctx context.Context, poll string) (*domain.Preferences, error)
	Upsert(ctx context.Context, poll string, p *domain.Preferences) error
}
