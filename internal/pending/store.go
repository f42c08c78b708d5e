// Package pending keeps not-yet-submitted criterion scores so that leaving a
// comparison and coming back does not lose work.
package pending

import (
	"context"
	"fmt"
	"time"

	"github.com/tournesol-app/comparo/internal/domain"
)

// UpdateFunc receives the current score of a key and returns the new score,
// or keep=false to delete the entry.
type UpdateFunc func(score int, exists bool) (newScore int, keep bool, err error)

// Backend persists canonical pending entries. Update must run its
// read-modify-write atomically with respect to other calls on the same key.
type Backend interface {
	Get(ctx context.Context, key domain.PendingKey) (int, bool, error)
	Update(ctx context.Context, key domain.PendingKey, at time.Time, fn UpdateFunc) error
	ListPair(ctx context.Context, poll, entityA, entityB string) (map[string]int, error)
	DeletePair(ctx context.Context, poll, entityA, entityB string) error
	List(ctx context.Context) ([]domain.PendingRating, error)
	DeleteAll(ctx context.Context) error
}

// Store is the pending draft store used by the editing engine. Entity pairs
// may be given in either order; scores are always returned in the caller's
// orientation.
type Store interface {
	Get(ctx context.Context, poll, entityA, entityB, criterion string) (int, bool, error)
	Set(ctx context.Context, poll, entityA, entityB, criterion string, score int) error
	Clear(ctx context.Context, poll, entityA, entityB, criterion string) error
	ClearPair(ctx context.Context, poll, entityA, entityB string) error
	GetAll(ctx context.Context, poll, entityA, entityB string, criteria []domain.Criterion) (map[string]int, error)
	List(ctx context.Context) ([]domain.PendingRating, error)
	ResetAll(ctx context.Context) error
}

// Canonical sorts the pair of a key. swapped is true when the caller's
// orientation is the reverse of the stored one.
func Canonical(poll, entityA, entityB, criterion string) (key domain.PendingKey, swapped bool) {
	if entityB < entityA {
		return domain.PendingKey{Poll: poll, EntityA: entityB, EntityB: entityA, Criterion: criterion}, true
	}
	return domain.PendingKey{Poll: poll, EntityA: entityA, EntityB: entityB, Criterion: criterion}, false
}

func orient(score int, swapped bool) int {
	if swapped {
		return -score
	}
	return score
}

type store struct {
	backend Backend
	now     func() time.Time
}

// NewStore wraps a backend with key canonicalisation.
func NewStore(backend Backend) Store {
	return &store{backend: backend, now: func() time.Time { return time.Now().UTC() }}
}

func (s *store) Get(ctx context.Context, poll, entityA, entityB, criterion string) (int, bool, error) {
	if err := domain.ValidatePair(entityA, entityB); err != nil {
		return 0, false, err
	}
	key, swapped := Canonical(poll, entityA, entityB, criterion)
	score, ok, err := s.backend.Get(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	return orient(score, swapped), true, nil
}

func (s *store) Set(ctx context.Context, poll, entityA, entityB, criterion string, score int) error {
	if err := domain.ValidatePair(entityA, entityB); err != nil {
		return err
	}
	if criterion == "" {
		return fmt.Errorf("pending rating: criterion is required")
	}
	key, swapped := Canonical(poll, entityA, entityB, criterion)
	stored := orient(score, swapped)
	err := s.backend.Update(ctx, key, s.now(), func(int, bool) (int, bool, error) {
		return stored, true, nil
	})
	if err != nil {
		return fmt.Errorf("setting pending rating %s: %w", key, err)
	}
	return nil
}

func (s *store) Clear(ctx context.Context, poll, entityA, entityB, criterion string) error {
	key, _ := Canonical(poll, entityA, entityB, criterion)
	err := s.backend.Update(ctx, key, s.now(), func(int, bool) (int, bool, error) {
		return 0, false, nil
	})
	if err != nil {
		return fmt.Errorf("clearing pending rating %s: %w", key, err)
	}
	return nil
}

func (s *store) ClearPair(ctx context.Context, poll, entityA, entityB string) error {
	key, _ := Canonical(poll, entityA, entityB, "")
	if err := s.backend.DeletePair(ctx, key.Poll, key.EntityA, key.EntityB); err != nil {
		return fmt.Errorf("clearing pending ratings of %s/%s/%s: %w", key.Poll, key.EntityA, key.EntityB, err)
	}
	return nil
}

// GetAll returns the pending score of every listed criterion that has one.
// Criteria without an entry are omitted, which callers read as "no opinion
// yet" rather than "skipped".
func (s *store) GetAll(ctx context.Context, poll, entityA, entityB string, criteria []domain.Criterion) (map[string]int, error) {
	if err := domain.ValidatePair(entityA, entityB); err != nil {
		return nil, err
	}
	key, swapped := Canonical(poll, entityA, entityB, "")
	stored, err := s.backend.ListPair(ctx, key.Poll, key.EntityA, key.EntityB)
	if err != nil {
		return nil, fmt.Errorf("listing pending ratings: %w", err)
	}

	out := make(map[string]int, len(criteria))
	for _, c := range criteria {
		if score, ok := stored[c.Name]; ok {
			out[c.Name] = orient(score, swapped)
		}
	}
	return out, nil
}

func (s *store) List(ctx context.Context) ([]domain.PendingRating, error) {
	return s.backend.List(ctx)
}

func (s *store) ResetAll(ctx context.Context) error {
	if err := s.backend.DeleteAll(ctx); err != nil {
		return fmt.Errorf("resetting pending ratings: %w", err)
	}
	return nil
}
