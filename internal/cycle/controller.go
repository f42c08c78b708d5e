// Package cycle walks a contributor through criteria one at a time in the
// discrete modality and submits each answer as a partial update.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/tournesol-app/comparo/internal/domain"
	"github.com/tournesol-app/comparo/internal/scoring"
)

// State is the phase of the controller.
type State int

const (
	StateIdle State = iota
	StateTransitioning
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTransitioning:
		return "transitioning"
	case StateSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SwipeVelocity is the minimum absolute swipe velocity that moves the cycle.
const SwipeVelocity = 0.25

// ErrNoCriteria is returned when a controller is created without criteria.
var ErrNoCriteria = errors.New("no criteria to cycle through")

// Submitter sends the controller's answers.
type Submitter interface {
	SubmitPartial(ctx context.Context, existing *domain.ComparisonDraft, req domain.PartialScore) (*domain.ComparisonDraft, error)
	ClearScore(ctx context.Context, existing *domain.ComparisonDraft, criterion string) (*domain.ComparisonDraft, error)
}

// Outcome tells the caller what a score tap did.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeAdvancing
	OutcomeCleared
)

// Snapshot is a read-only view of the controller.
type Snapshot struct {
	State              State
	Position           int
	Criterion          domain.Criterion
	Direction          domain.Direction
	Staged             *int
	Looped             bool
	NavigationDisabled bool
	Comparison         *domain.ComparisonDraft
}

// Config describes the pair being compared.
type Config struct {
	Poll          string
	EntityA       string
	EntityB       string
	MainCriterion string

	// Criteria in display order, see OrderCriteria.
	Criteria []domain.Criterion

	// Comparison is the server state of the pair, nil when none exists.
	Comparison *domain.ComparisonDraft

	// Tutorial pins the cycle on its first criterion.
	Tutorial bool
}

type Controller struct {
	mu        sync.Mutex
	cfg       Config
	submitter Submitter

	state      State
	position   int
	direction  domain.Direction
	staged     *int
	looped     bool
	comparison *domain.ComparisonDraft

	// gen changes on Reset and Detach. Results of calls started under an
	// older generation are dropped.
	gen         uint64
	detached    bool
	subscribers []func(Snapshot)
}

func New(cfg Config, submitter Submitter) (*Controller, error) {
	if len(cfg.Criteria) == 0 {
		return nil, ErrNoCriteria
	}
	if err := domain.ValidatePair(cfg.EntityA, cfg.EntityB); err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:        cfg,
		submitter:  submitter,
		direction:  domain.DirectionDown,
		comparison: cfg.Comparison.Clone(),
	}
	c.cfg.Comparison = nil
	return c, nil
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that caused the change, without the lock held.
func (c *Controller) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:              c.state,
		Position:           c.position,
		Criterion:          c.cfg.Criteria[c.position],
		Direction:          c.direction,
		Looped:             c.looped,
		NavigationDisabled: c.navigationDisabledLocked(),
		Comparison:         c.comparison.Clone(),
	}
	if c.staged != nil {
		s.Staged = domain.IntPtr(*c.staged)
	}
	return s
}

// unlockAndNotify releases the lock and publishes the new state.
func (c *Controller) unlockAndNotify() {
	snap := c.snapshotLocked()
	subs := c.subscribers
	c.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// HasLoopedThroughCriteria reports whether the last move wrapped forward from
// the last criterion back to the first.
func (c *Controller) HasLoopedThroughCriteria() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.looped
}

// Comparison returns the latest known server state of the pair.
func (c *Controller) Comparison() *domain.ComparisonDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.comparison.Clone()
}

// Criteria returns the display order.
func (c *Controller) Criteria() []domain.Criterion {
	out := make([]domain.Criterion, len(c.cfg.Criteria))
	copy(out, c.cfg.Criteria)
	return out
}

// Navigation is blocked on an unrated main criterion and in tutorial mode.
func (c *Controller) navigationDisabledLocked() bool {
	if c.cfg.Tutorial {
		return true
	}
	cur := c.cfg.Criteria[c.position]
	return cur.Name == c.cfg.MainCriterion && !c.comparison.HasRated(cur.Name)
}

// MoveWithoutPatching starts a move in dir without submitting anything. It
// reports false when the move is not allowed right now.
func (c *Controller) MoveWithoutPatching(dir domain.Direction) bool {
	c.mu.Lock()
	if c.detached || c.state != StateIdle || c.navigationDisabledLocked() {
		c.mu.Unlock()
		return false
	}
	c.staged = nil
	c.direction = dir
	c.state = StateTransitioning
	c.unlockAndNotify()
	return true
}

// Swipe maps a vertical swipe to a move. Negative velocities move up.
func (c *Controller) Swipe(velocity float64) bool {
	if math.Abs(velocity) < SwipeVelocity {
		return false
	}
	if velocity < 0 {
		return c.MoveWithoutPatching(domain.DirectionUp)
	}
	return c.MoveWithoutPatching(domain.DirectionDown)
}

// PatchScore answers the displayed criterion. The score is staged and the
// cycle starts moving forward; the submission happens in Complete. Tapping
// the score already recorded for a criterion other than the main one clears
// that criterion instead.
func (c *Controller) PatchScore(ctx context.Context, score int) (Outcome, error) {
	c.mu.Lock()
	if c.detached || c.state != StateIdle {
		c.mu.Unlock()
		return OutcomeIgnored, nil
	}
	if err := scoring.CheckScore(score, domain.EncodingDiscrete.ScoreMax()); err != nil {
		c.mu.Unlock()
		return OutcomeIgnored, err
	}

	cur := c.cfg.Criteria[c.position]
	if cs, ok := c.comparison.Score(cur.Name); ok && cs.HasScore() && cs.Value() == score && cur.Name != c.cfg.MainCriterion {
		return c.clearLocked(ctx, cur.Name)
	}

	c.staged = domain.IntPtr(score)
	c.direction = domain.DirectionDown
	c.state = StateTransitioning
	c.unlockAndNotify()
	return OutcomeAdvancing, nil
}

// clearLocked is entered with the lock held and returns with it released.
func (c *Controller) clearLocked(ctx context.Context, criterion string) (Outcome, error) {
	c.state = StateSubmitting
	existing := c.comparison.Clone()
	gen := c.gen
	c.unlockAndNotify()

	result, err := c.submitter.ClearScore(ctx, existing, criterion)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return OutcomeCleared, err
	}
	c.state = StateIdle
	if err == nil {
		c.comparison = result
	}
	c.unlockAndNotify()
	return OutcomeCleared, err
}

// Complete finishes the current move. When a score was staged it is
// submitted for the criterion being left; on failure the cycle goes back to
// that criterion and the error is returned.
func (c *Controller) Complete(ctx context.Context) error {
	c.mu.Lock()
	if c.detached || c.state != StateTransitioning {
		c.mu.Unlock()
		return nil
	}

	from, prevLooped := c.position, c.looped
	n := len(c.cfg.Criteria)
	next := from
	if !c.cfg.Tutorial {
		if c.direction == domain.DirectionDown {
			next = (from + 1) % n
		} else {
			next = (from - 1 + n) % n
		}
	}
	c.looped = !c.cfg.Tutorial && c.direction == domain.DirectionDown && from == n-1 && next == 0
	c.position = next

	if c.staged == nil {
		c.state = StateIdle
		c.unlockAndNotify()
		return nil
	}

	req := domain.PartialScore{
		Poll:      c.cfg.Poll,
		EntityA:   c.cfg.EntityA,
		EntityB:   c.cfg.EntityB,
		Criterion: c.cfg.Criteria[from].Name,
		Score:     *c.staged,
		ScoreMax:  domain.EncodingDiscrete.ScoreMax(),
	}
	c.staged = nil
	c.state = StateSubmitting
	existing := c.comparison.Clone()
	gen := c.gen
	c.unlockAndNotify()

	result, err := c.submitter.SubmitPartial(ctx, existing, req)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return err
	}
	c.state = StateIdle
	if err != nil {
		c.position = from
		c.looped = prevLooped
		c.unlockAndNotify()
		return err
	}
	c.comparison = result
	c.unlockAndNotify()
	return nil
}

// Reset starts over on a new pair.
func (c *Controller) Reset(entityA, entityB string, comparison *domain.ComparisonDraft) error {
	if err := domain.ValidatePair(entityA, entityB); err != nil {
		return err
	}
	c.mu.Lock()
	c.gen++
	c.cfg.EntityA, c.cfg.EntityB = entityA, entityB
	c.comparison = comparison.Clone()
	c.state = StateIdle
	c.position = 0
	c.looped = false
	c.staged = nil
	c.direction = domain.DirectionDown
	c.unlockAndNotify()
	return nil
}

// Detach stops the controller from applying results of calls still in
// flight. Those calls run to completion. A detached controller ignores all
// further input.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached = true
	c.gen++
	c.subscribers = nil
}
