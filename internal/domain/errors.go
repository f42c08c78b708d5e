package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPair indicates a comparison of an entity with itself.
	ErrInvalidPair = errors.New("cannot compare an entity with itself")

	// ErrUnknownEncoding indicates a score_max outside {2, 10}.
	ErrUnknownEncoding = errors.New("unknown score encoding")

	// ErrSkipOnNonOptional indicates an attempt to skip a required criterion.
	ErrSkipOnNonOptional = errors.New("only optional criteria can be skipped")

	// ErrScoreOutOfRange indicates a score outside [-score_max, score_max].
	ErrScoreOutOfRange = errors.New("score out of range")

	// ErrMixedEncoding indicates a score whose score_max differs from the
	// encoding of the comparison it is added to.
	ErrMixedEncoding = errors.New("score encoding does not match the comparison")

	// ErrUnknownCriterion indicates a criterion that the poll does not define.
	ErrUnknownCriterion = errors.New("unknown criterion")

	// ErrNotFound is returned by collaborators when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSubmissionInFlight indicates a submission was requested while another
	// one for the same session had not completed.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// SubmissionError wraps a failed create or update call against the API.
type SubmissionError struct {
	Op        string // "create", "update" or "partial_update"
	Partial   bool
	Criterion string // set for partial submissions
	Err       error
}

func (e *SubmissionError) Error() string {
	if e.Partial {
		return fmt.Sprintf("submitting %s (%s): %v", e.Criterion, e.Op, e.Err)
	}
	return fmt.Sprintf("submitting comparison (%s): %v", e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
