package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/tournesol-app/comparo/internal/domain"
)

// APICall records one call made against FakeComparisonAPI.
type APICall struct {
	Method  string // "get", "create", "update" or "patch"
	EntityA string
	EntityB string
	Scores  []domain.CriterionScore
}

// FakeComparisonAPI is an in-memory stand-in for the comparison endpoints.
// Set CreateErr or UpdateErr to make the next calls fail. When Gate is non
// nil, create and update calls block until it is closed.
type FakeComparisonAPI struct {
	mu          sync.Mutex
	comparisons map[string]*domain.ComparisonDraft
	calls       []APICall

	CreateErr error
	UpdateErr error
	Gate      chan struct{}
}

func NewFakeComparisonAPI() *FakeComparisonAPI {
	return &FakeComparisonAPI{comparisons: make(map[string]*domain.ComparisonDraft)}
}

func comparisonKey(poll, a, b string) string {
	return poll + "/" + a + "/" + b
}

// Seed stores c as an existing comparison.
func (f *FakeComparisonAPI) Seed(c *domain.ComparisonDraft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comparisons[comparisonKey(c.Poll, c.EntityA, c.EntityB)] = c.Clone()
}

// Stored returns the server copy of a comparison, or nil.
func (f *FakeComparisonAPI) Stored(poll, a, b string) *domain.ComparisonDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comparisons[comparisonKey(poll, a, b)].Clone()
}

// Calls returns a copy of the recorded calls.
func (f *FakeComparisonAPI) Calls() []APICall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]APICall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeComparisonAPI) record(c APICall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *FakeComparisonAPI) wait(ctx context.Context) error {
	if f.Gate == nil {
		return nil
	}
	select {
	case <-f.Gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeComparisonAPI) GetComparison(_ context.Context, poll, entityA, entityB string) (*domain.ComparisonDraft, error) {
	f.record(APICall{Method: "get", EntityA: entityA, EntityB: entityB})
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comparisons[comparisonKey(poll, entityA, entityB)]
	if !ok {
		return nil, fmt.Errorf("comparison %s/%s: %w", entityA, entityB, domain.ErrNotFound)
	}
	return c.Clone(), nil
}

func (f *FakeComparisonAPI) CreateComparison(ctx context.Context, c *domain.ComparisonDraft) (*domain.ComparisonDraft, error) {
	f.record(APICall{Method: "create", EntityA: c.EntityA, EntityB: c.EntityB, Scores: c.Clone().CriteriaScores})
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	key := comparisonKey(c.Poll, c.EntityA, c.EntityB)
	if _, exists := f.comparisons[key]; exists {
		return nil, fmt.Errorf("comparison %s/%s already exists", c.EntityA, c.EntityB)
	}
	f.comparisons[key] = c.Clone()
	return c.Clone(), nil
}

func (f *FakeComparisonAPI) UpdateComparison(ctx context.Context, poll, entityA, entityB string, scores []domain.CriterionScore, partial bool) (*domain.ComparisonDraft, error) {
	method := "update"
	if partial {
		method = "patch"
	}
	cp := (&domain.ComparisonDraft{CriteriaScores: scores}).Clone().CriteriaScores
	f.record(APICall{Method: method, EntityA: entityA, EntityB: entityB, Scores: cp})
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	stored, ok := f.comparisons[comparisonKey(poll, entityA, entityB)]
	if !ok {
		return nil, fmt.Errorf("comparison %s/%s: %w", entityA, entityB, domain.ErrNotFound)
	}
	if !partial {
		stored.CriteriaScores = nil
	}
	for _, cs := range cp {
		stored.Upsert(cs)
	}
	return stored.Clone(), nil
}

// FakeStats counts aggregate statistics refreshes.
type FakeStats struct {
	mu    sync.Mutex
	polls []string
	Err   error
}

func (f *FakeStats) RefreshStats(_ context.Context, poll string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls = append(f.polls, poll)
	return f.Err
}

// Refreshed returns the polls refreshed so far.
func (f *FakeStats) Refreshed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.polls))
	copy(out, f.polls)
	return out
}

// FakeSettings serves fixed preferences for every poll.
type FakeSettings struct {
	Prefs domain.Preferences
	Err   error
}

func (f *FakeSettings) GetPreferences(_ context.Context, _ string) (*domain.Preferences, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	p := f.Prefs
	return &p, nil
}

// FakePolls serves polls by name.
type FakePolls struct {
	Polls map[string]*domain.Poll
}

func (f *FakePolls) GetPoll(_ context.Context, name string) (*domain.Poll, error) {
	p, ok := f.Polls[name]
	if !ok {
		return nil, fmt.Errorf("poll %s: %w", name, domain.ErrNotFound)
	}
	return p, nil
}
