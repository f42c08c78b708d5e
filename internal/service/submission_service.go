package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tournesol-app/comparo/internal/domain"
	"github.com/tournesol-app/comparo/internal/pending"
	"github.com/tournesol-app/comparo/internal/scoring"
)

// SubmissionService sends comparisons to the API. At most one submission is
// in flight at a time.
type SubmissionService struct {
	api      ComparisonAPI
	stats    StatsRefresher
	pending  pending.Store
	logger   *slog.Logger
	observer UseCaseObserver

	inFlight  atomic.Bool
	refreshes sync.WaitGroup
}

func NewSubmissionService(
	api ComparisonAPI,
	stats StatsRefresher,
	store pending.Store,
	logger *slog.Logger,
	observers ...UseCaseObserver,
) *SubmissionService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SubmissionService{
		api:      api,
		stats:    stats,
		pending:  store,
		logger:   logger,
		observer: useCaseObserverOrNoop(observers),
	}
}

// Disabled reports whether the submit control should be disabled.
func (s *SubmissionService) Disabled() bool {
	return s.inFlight.Load()
}

// Wait blocks until every stats refresh started so far has returned.
func (s *SubmissionService) Wait() {
	s.refreshes.Wait()
}

func (s *SubmissionService) acquire() error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return domain.ErrSubmissionInFlight
	}
	return nil
}

// SubmitFull creates the comparison when existing is nil and replaces it
// otherwise. On success the pair's pending ratings are cleared. On failure
// nothing local changes and a *domain.SubmissionError is returned.
func (s *SubmissionService) SubmitFull(ctx context.Context, existing, d *domain.ComparisonDraft) (result *domain.ComparisonDraft, err error) {
	startedAt := time.Now()
	fields := map[string]any{
		"poll":     d.Poll,
		"entity_a": d.EntityA,
		"entity_b": d.EntityB,
		"criteria": len(d.CriteriaScores),
	}
	defer func() { observe(ctx, s.observer, "submit_full", startedAt, fields, err) }()

	if err = s.acquire(); err != nil {
		return nil, err
	}
	defer s.inFlight.Store(false)

	req, err := clamped(d)
	if err != nil {
		return nil, err
	}

	op := "create"
	if existing == nil {
		result, err = s.api.CreateComparison(ctx, req)
	} else {
		op = "update"
		result, err = s.api.UpdateComparison(ctx, req.Poll, req.EntityA, req.EntityB, req.CriteriaScores, false)
	}
	fields["op"] = op
	s.refresh(ctx, req.Poll)
	if err != nil {
		return nil, &domain.SubmissionError{Op: op, Err: err}
	}

	if clearErr := s.pending.ClearPair(ctx, req.Poll, req.EntityA, req.EntityB); clearErr != nil {
		s.logger.WarnContext(ctx, "pending ratings not cleared after submission", "error", clearErr)
	}
	return result, nil
}

// clamped validates d and returns a copy with every score clamped to its
// scale.
func clamped(d *domain.ComparisonDraft) (*domain.ComparisonDraft, error) {
	if err := domain.ValidatePair(d.EntityA, d.EntityB); err != nil {
		return nil, err
	}
	out := d.Clone()
	for i, cs := range out.CriteriaScores {
		if !cs.HasScore() {
			continue
		}
		v, err := scoring.ClampToScale(cs.Value(), cs.ScoreMax)
		if err != nil {
			return nil, fmt.Errorf("criterion %q: %w", cs.Criterion, err)
		}
		out.CriteriaScores[i].Score = domain.IntPtr(v)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitPartial sends one criterion. The criterion's pending rating is
// cleared before the call whatever its outcome, so a failing update is never
// replayed from the pending store. When no comparison exists yet it is
// created with that single criterion.
func (s *SubmissionService) SubmitPartial(ctx context.Context, existing *domain.ComparisonDraft, req domain.PartialScore) (result *domain.ComparisonDraft, err error) {
	startedAt := time.Now()
	fields := map[string]any{
		"poll":      req.Poll,
		"criterion": req.Criterion,
		"score_max": req.ScoreMax,
	}
	defer func() { observe(ctx, s.observer, "submit_partial", startedAt, fields, err) }()

	if err = s.acquire(); err != nil {
		return nil, err
	}
	defer s.inFlight.Store(false)

	if err := domain.ValidatePair(req.EntityA, req.EntityB); err != nil {
		return nil, err
	}
	enc, err := scoring.EncodingFor(req.ScoreMax)
	if err != nil {
		return nil, err
	}
	score, err := scoring.ClampToScale(req.Score, req.ScoreMax)
	if err != nil {
		return nil, err
	}

	if clearErr := s.pending.Clear(ctx, req.Poll, req.EntityA, req.EntityB, req.Criterion); clearErr != nil {
		s.logger.WarnContext(ctx, "pending rating not cleared", "criterion", req.Criterion, "error", clearErr)
	}

	cs := domain.CriterionScore{Criterion: req.Criterion, Score: domain.IntPtr(score), ScoreMax: req.ScoreMax, Weight: 1}
	op := "partial_update"
	if existing == nil {
		op = "create"
		result, err = s.api.CreateComparison(ctx, &domain.ComparisonDraft{
			Poll:           req.Poll,
			EntityA:        req.EntityA,
			EntityB:        req.EntityB,
			Encoding:       enc,
			CriteriaScores: []domain.CriterionScore{cs},
		})
	} else {
		result, err = s.api.UpdateComparison(ctx, req.Poll, req.EntityA, req.EntityB, []domain.CriterionScore{cs}, true)
	}
	fields["op"] = op
	s.refresh(ctx, req.Poll)
	if err != nil {
		return nil, &domain.SubmissionError{Op: op, Partial: true, Criterion: req.Criterion, Err: err}
	}
	return result, nil
}

// ClearScore removes one criterion from an existing comparison by sending
// the remaining scores as a full update. It is a no-op without an existing
// comparison.
func (s *SubmissionService) ClearScore(ctx context.Context, existing *domain.ComparisonDraft, criterion string) (result *domain.ComparisonDraft, err error) {
	if existing == nil || len(existing.CriteriaScores) == 0 {
		return existing, nil
	}
	startedAt := time.Now()
	fields := map[string]any{"poll": existing.Poll, "criterion": criterion}
	defer func() { observe(ctx, s.observer, "clear_score", startedAt, fields, err) }()

	if err = s.acquire(); err != nil {
		return nil, err
	}
	defer s.inFlight.Store(false)

	remaining := existing.Clone()
	remaining.Remove(criterion)

	if clearErr := s.pending.Clear(ctx, existing.Poll, existing.EntityA, existing.EntityB, criterion); clearErr != nil {
		s.logger.WarnContext(ctx, "pending rating not cleared", "criterion", criterion, "error", clearErr)
	}

	result, err = s.api.UpdateComparison(ctx, remaining.Poll, remaining.EntityA, remaining.EntityB, remaining.CriteriaScores, false)
	s.refresh(ctx, remaining.Poll)
	if err != nil {
		return nil, &domain.SubmissionError{Op: "update", Criterion: criterion, Err: err}
	}
	return result, nil
}

// refresh asks for fresh aggregate statistics without waiting for them.
// Failures are logged at debug level and otherwise ignored.
func (s *SubmissionService) refresh(ctx context.Context, poll string) {
	if s.stats == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.refreshes.Add(1)
	go func() {
		defer s.refreshes.Done()
		if err := s.stats.RefreshStats(ctx, poll); err != nil {
			s.logger.DebugContext(ctx, "stats refresh failed", "poll", poll, "error", err)
		}
	}()
}
