package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/tournesol-app/comparo/internal/domain"
)

// ErrTaskAbandoned is returned by Task.Wait after Abandon.
var ErrTaskAbandoned = errors.New("task abandoned")

// Task is a submission running in the background. The underlying call is
// never cancelled; Abandon only drops interest in its result.
type Task[T any] struct {
	done      chan struct{}
	val       T
	err       error
	abandoned atomic.Bool
}

func startTask[T any](ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(t.done)
		t.val, t.err = fn(ctx)
	}()
	return t
}

// Wait returns the result once the call finished, or ctx's error if ctx ends
// first. The call keeps running in that case.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-t.done:
		if t.abandoned.Load() {
			return zero, ErrTaskAbandoned
		}
		return t.val, t.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Done is closed when the call has returned.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

func (t *Task[T]) Abandon() {
	t.abandoned.Store(true)
}

func (t *Task[T]) Abandoned() bool {
	return t.abandoned.Load()
}

// StartFull runs SubmitFull in the background.
func (s *SubmissionService) StartFull(ctx context.Context, existing, d *domain.ComparisonDraft) *Task[*domain.ComparisonDraft] {
	existing, d = existing.Clone(), d.Clone()
	return startTask(ctx, func(ctx context.Context) (*domain.ComparisonDraft, error) {
		return s.SubmitFull(ctx, existing, d)
	})
}
