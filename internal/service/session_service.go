package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tournesol-app/comparo/internal/cycle"
	"github.com/tournesol-app/comparo/internal/domain"
	"github.com/tournesol-app/comparo/internal/draft"
	"github.com/tournesol-app/comparo/internal/scoring"
)

// ErrDiscreteSession is returned when a whole-draft operation is used on a
// session driven criterion by criterion.
var ErrDiscreteSession = errors.New("discrete sessions are edited through the criteria cycle")

// ErrAlreadySubmitted is returned when edits to a pair the server already has
// would only be kept locally. Pending ratings never apply to such a pair, so
// those edits must be submitted.
var ErrAlreadySubmitted = errors.New("this pair was already submitted")

// SessionDeps are the collaborators of SessionService. Settings and Pointer
// may be nil.
type SessionDeps struct {
	Polls       PollSource
	Settings    SettingsSource
	API         ComparisonAPI
	Editor      *draft.Editor
	Submissions *SubmissionService
	Pointer     PointerProbe
	Logger      *slog.Logger
}

// OpenRequest selects the pair to edit.
type OpenRequest struct {
	Poll          string
	EntityA       string
	EntityB       string
	ForceDiscrete bool
	Tutorial      bool
}

// SessionService opens editing sessions on entity pairs.
type SessionService struct {
	deps     SessionDeps
	observer UseCaseObserver
}

func NewSessionService(deps SessionDeps, observers ...UseCaseObserver) *SessionService {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &SessionService{deps: deps, observer: useCaseObserverOrNoop(observers)}
}

// Open resolves the poll and the contributor's preferences, fetches the
// existing comparison and seeds a draft. The input modality is decided here
// and kept for the life of the session.
func (s *SessionService) Open(ctx context.Context, req OpenRequest) (sess *Session, err error) {
	startedAt := time.Now()
	fields := map[string]any{"poll": req.Poll, "entity_a": req.EntityA, "entity_b": req.EntityB}
	defer func() { observe(ctx, s.observer, "open_session", startedAt, fields, err) }()

	if err := domain.ValidatePair(req.EntityA, req.EntityB); err != nil {
		return nil, err
	}

	poll, err := s.deps.Polls.GetPoll(ctx, req.Poll)
	if err != nil {
		return nil, fmt.Errorf("loading poll %s: %w", req.Poll, err)
	}
	prefs := s.preferences(ctx, req.Poll)

	existing, err := s.deps.API.GetComparison(ctx, req.Poll, req.EntityA, req.EntityB)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("fetching comparison: %w", err)
		}
		existing = nil
	}

	pointerFine := true
	if s.deps.Pointer != nil {
		pointerFine = s.deps.Pointer()
	}
	main := poll.MainCriterionName()
	modality, err := scoring.SelectModality(existing, main, pointerFine, req.ForceDiscrete)
	if err != nil {
		return nil, err
	}

	sess = &Session{
		ID:       ulid.Make().String(),
		Poll:     poll,
		EntityA:  req.EntityA,
		EntityB:  req.EntityB,
		Modality: modality,
		svc:      s,
		existing: existing,
		touched:  make(map[string]bool),
	}
	fields["session_id"] = sess.ID
	fields["modality"] = string(modality)
	fields["existing"] = existing != nil

	if modality == domain.ModalityDiscrete {
		sess.Criteria = cycle.OrderCriteria(poll, prefs.CriteriaOrder)
		sess.Controller, err = cycle.New(cycle.Config{
			Poll:          poll.Name,
			EntityA:       req.EntityA,
			EntityB:       req.EntityB,
			MainCriterion: main,
			Criteria:      sess.Criteria,
			Comparison:    existing,
			Tutorial:      req.Tutorial,
		}, s.deps.Submissions)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}

	sess.Criteria = poll.OrderedCriteria()
	sess.draft, err = s.deps.Editor.Build(ctx, draft.BuildInput{
		Poll:                    poll.Name,
		EntityA:                 req.EntityA,
		EntityB:                 req.EntityB,
		MainCriterion:           main,
		Existing:                existing,
		Criteria:                sess.Criteria,
		AlwaysDisplayedOptional: prefs.AlwaysDisplayedOptional,
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// preferences are advisory: any failure falls back to the poll defaults.
func (s *SessionService) preferences(ctx context.Context, poll string) domain.Preferences {
	if s.deps.Settings == nil {
		return domain.Preferences{}
	}
	p, err := s.deps.Settings.GetPreferences(ctx, poll)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.deps.Logger.DebugContext(ctx, "preferences unavailable", "poll", poll, "error", err)
		}
		return domain.Preferences{}
	}
	return *p
}

// Session is one contributor editing one pair. Controller is set for
// discrete sessions only.
type Session struct {
	ID         string
	Poll       *domain.Poll
	EntityA    string
	EntityB    string
	Modality   domain.Modality
	Criteria   []domain.Criterion
	Controller *cycle.Controller

	svc *SessionService

	mu        sync.Mutex
	existing  *domain.ComparisonDraft
	draft     *domain.ComparisonDraft
	touched   map[string]bool
	submitted bool
	closed    bool
}

// Existing returns the server state of the pair, or nil.
func (s *Session) Existing() *domain.ComparisonDraft {
	if s.Controller != nil {
		return s.Controller.Comparison()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existing.Clone()
}

// Draft returns the comparison as currently edited.
func (s *Session) Draft() *domain.ComparisonDraft {
	if s.Controller != nil {
		return s.Controller.Comparison()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Apply sets a criterion on the continuous scale, or skips it when score is
// nil.
func (s *Session) Apply(ctx context.Context, criterion string, score *int) error {
	if s.Controller != nil {
		return ErrDiscreteSession
	}
	c, ok := s.Poll.Criterion(criterion)
	if !ok {
		return fmt.Errorf("%s: %w", criterion, domain.ErrUnknownCriterion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.svc.deps.Editor.Apply(ctx, s.draft, c, score, s.Modality.Encoding().ScoreMax())
	if err != nil {
		return err
	}
	if next != s.draft {
		s.touched[criterion] = true
		s.submitted = false
	}
	s.draft = next
	return nil
}

// ToggleOptional shows or hides every optional criterion.
func (s *Session) ToggleOptional(ctx context.Context) (bool, error) {
	if s.Controller != nil {
		return false, ErrDiscreteSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next, shown, err := s.svc.deps.Editor.ToggleOptional(ctx, s.draft, s.Criteria)
	if err != nil {
		return false, err
	}
	for _, c := range s.Criteria {
		if c.Optional {
			s.touched[c.Name] = true
		}
	}
	s.draft = next
	return shown, nil
}

// Submit sends the whole draft. A failed submission leaves the draft as it
// was so it can be retried. When ctx ends first the call still completes in
// the background but its result is not applied to the session.
func (s *Session) Submit(ctx context.Context) (*domain.ComparisonDraft, error) {
	if s.Controller != nil {
		return nil, ErrDiscreteSession
	}
	s.mu.Lock()
	existing, d := s.existing.Clone(), s.draft.Clone()
	s.mu.Unlock()

	task := s.svc.deps.Submissions.StartFull(ctx, existing, d)
	result, err := task.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			task.Abandon()
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.existing = result.Clone()
	s.draft = result.Clone()
	s.touched = make(map[string]bool)
	s.submitted = true
	return result, nil
}

// Close ends the session. Unsubmitted continuous edits are saved to the
// pending store; a discrete session stops applying late results. Edits of a
// pair that already has a comparison are dropped and reported with
// ErrAlreadySubmitted.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.Controller != nil {
		s.Controller.Detach()
		return nil
	}
	if s.submitted || len(s.touched) == 0 {
		return nil
	}
	if s.existing != nil {
		return fmt.Errorf("%d unsubmitted edit(s) dropped: %w", len(s.touched), ErrAlreadySubmitted)
	}

	unsaved := s.draft.Clone()
	unsaved.CriteriaScores = nil
	for _, cs := range s.draft.CriteriaScores {
		if s.touched[cs.Criterion] {
			unsaved.CriteriaScores = append(unsaved.CriteriaScores, cs)
		}
	}
	if err := s.svc.deps.Editor.Persist(ctx, unsaved); err != nil {
		return fmt.Errorf("saving unsubmitted ratings: %w", err)
	}
	return nil
}
