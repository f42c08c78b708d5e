// Package draft builds and edits the comparison a contributor is working on.
//
// Scores that have not been folded into a draft live in the pending store.
// Pending scores are always kept on the continuous scale.
package draft

import (
	"context"
	"fmt"

	"github.com/tournesol-app/comparo/internal/domain"
	"github.com/tournesol-app/comparo/internal/pending"
	"github.com/tournesol-app/comparo/internal/scoring"
)

// BuildInput describes the comparison to open.
type BuildInput struct {
	Poll          string
	EntityA       string
	EntityB       string
	MainCriterion string

	// Existing is the comparison already stored on the server, if any.
	Existing *domain.ComparisonDraft

	// Criteria in poll order.
	Criteria []domain.Criterion

	// AlwaysDisplayedOptional lists optional criteria the contributor wants
	// seeded like required ones.
	AlwaysDisplayedOptional []string
}

// Seed builds a draft from an existing comparison or, when there is none,
// from pending scores. An existing comparison is copied verbatim and pending
// scores are ignored.
func Seed(in BuildInput, pendingScores map[string]int) (*domain.ComparisonDraft, error) {
	if err := domain.ValidatePair(in.EntityA, in.EntityB); err != nil {
		return nil, err
	}

	if in.Existing != nil {
		d := in.Existing.Clone()
		if !d.Encoding.Valid() {
			enc, err := scoring.DetectEncoding(d.CriteriaScores, in.MainCriterion)
			if err != nil {
				return nil, fmt.Errorf("reading existing comparison: %w", err)
			}
			d.Encoding = enc
		}
		return d, nil
	}

	d, err := domain.NewComparisonDraft(in.Poll, in.EntityA, in.EntityB, domain.EncodingContinuous)
	if err != nil {
		return nil, err
	}
	scoreMax := domain.EncodingContinuous.ScoreMax()
	for _, c := range in.Criteria {
		if c.Optional && !contains(in.AlwaysDisplayedOptional, c.Name) {
			continue
		}
		score := 0
		if v, ok := pendingScores[c.Name]; ok {
			if score, err = scoring.ClampToScale(v, scoreMax); err != nil {
				return nil, err
			}
		}
		d.Upsert(domain.CriterionScore{
			Criterion: c.Name,
			Score:     domain.IntPtr(score),
			ScoreMax:  scoreMax,
			Weight:    1,
		})
	}
	return d, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Editor applies contributor edits to drafts and keeps the pending store in
// step with them.
type Editor struct {
	pending pending.Store
}

func NewEditor(store pending.Store) *Editor {
	return &Editor{pending: store}
}

// Build seeds the draft for in, reading pending scores only when no
// comparison exists yet.
func (e *Editor) Build(ctx context.Context, in BuildInput) (*domain.ComparisonDraft, error) {
	if err := domain.ValidatePair(in.EntityA, in.EntityB); err != nil {
		return nil, err
	}
	var scores map[string]int
	if in.Existing == nil {
		var err error
		scores, err = e.pending.GetAll(ctx, in.Poll, in.EntityA, in.EntityB, in.Criteria)
		if err != nil {
			return nil, fmt.Errorf("loading pending ratings: %w", err)
		}
	}
	return Seed(in, scores)
}

// Apply sets or skips one criterion and returns the resulting draft. A nil
// score skips the criterion. d itself is never modified; when the edit changes
// nothing, d is returned as is and the pending store is left alone.
func (e *Editor) Apply(ctx context.Context, d *domain.ComparisonDraft, c domain.Criterion, score *int, scoreMax int) (*domain.ComparisonDraft, error) {
	if score == nil {
		if !c.Optional {
			return nil, fmt.Errorf("criterion %q: %w", c.Name, domain.ErrSkipOnNonOptional)
		}
		if err := e.clearPending(ctx, d, c.Name); err != nil {
			return nil, err
		}
		next := d.Clone()
		next.Remove(c.Name)
		return next, nil
	}

	if err := scoring.CheckScore(*score, scoreMax); err != nil {
		return nil, fmt.Errorf("criterion %q: %w", c.Name, err)
	}
	if d.Encoding.Valid() && d.Encoding.ScoreMax() != scoreMax {
		return nil, fmt.Errorf("criterion %q score_max %d on a %s comparison: %w",
			c.Name, scoreMax, d.Encoding, domain.ErrMixedEncoding)
	}

	if cur, ok := d.Score(c.Name); ok && cur.HasScore() &&
		cur.Value() == *score && cur.ScoreMax == scoreMax && cur.Weight == 1 {
		return d, nil
	}

	if err := e.clearPending(ctx, d, c.Name); err != nil {
		return nil, err
	}
	next := d.Clone()
	next.Upsert(domain.CriterionScore{
		Criterion: c.Name,
		Score:     domain.IntPtr(*score),
		ScoreMax:  scoreMax,
		Weight:    1,
	})
	return next, nil
}

func (e *Editor) clearPending(ctx context.Context, d *domain.ComparisonDraft, criterion string) error {
	if err := e.pending.Clear(ctx, d.Poll, d.EntityA, d.EntityB, criterion); err != nil {
		return fmt.Errorf("clearing pending rating: %w", err)
	}
	return nil
}

// Stage records a continuous-scale score for a pair that has no open draft.
func (e *Editor) Stage(ctx context.Context, poll, entityA, entityB, criterion string, score int) error {
	if err := scoring.CheckScore(score, domain.EncodingContinuous.ScoreMax()); err != nil {
		return fmt.Errorf("criterion %q: %w", criterion, err)
	}
	return e.pending.Set(ctx, poll, entityA, entityB, criterion, score)
}

// Persist mirrors every present score of an unsubmitted draft into the
// pending store, rescaled to the continuous scale. Skipped criteria are not
// recorded.
func (e *Editor) Persist(ctx context.Context, d *domain.ComparisonDraft) error {
	for _, cs := range d.CriteriaScores {
		if !cs.HasScore() {
			continue
		}
		v, err := scoring.Rescale(cs.Value(), cs.ScoreMax, domain.EncodingContinuous.ScoreMax())
		if err != nil {
			return fmt.Errorf("criterion %q: %w", cs.Criterion, err)
		}
		if err := e.pending.Set(ctx, d.Poll, d.EntityA, d.EntityB, cs.Criterion, v); err != nil {
			return err
		}
	}
	return nil
}

// ToggleOptional removes every optional criterion from d when at least one is
// present, otherwise adds them all at 0. The second result reports whether
// optional criteria are shown afterwards.
func (e *Editor) ToggleOptional(ctx context.Context, d *domain.ComparisonDraft, criteria []domain.Criterion) (*domain.ComparisonDraft, bool, error) {
	shown := false
	for _, c := range criteria {
		if _, ok := d.Score(c.Name); ok && c.Optional {
			shown = true
			break
		}
	}

	scoreMax := d.Encoding.ScoreMax()
	if !d.Encoding.Valid() {
		scoreMax = domain.EncodingContinuous.ScoreMax()
	}

	next := d.Clone()
	for _, c := range criteria {
		if !c.Optional {
			continue
		}
		if err := e.clearPending(ctx, d, c.Name); err != nil {
			return nil, shown, err
		}
		if shown {
			next.Remove(c.Name)
			continue
		}
		next.Upsert(domain.CriterionScore{Criterion: c.Name, Score: domain.IntPtr(0), ScoreMax: scoreMax, Weight: 1})
	}
	return next, !shown, nil
}
