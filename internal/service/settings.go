package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tournesol-app/comparo/internal/domain"
)

// LocalPreferences stores preferences on this machine.
type LocalPreferences interface {
	Get(ctx context.Context, poll string) (*domain.Preferences, error)
	Upsert(ctx context.Context, poll string, p *domain.Preferences) error
}

// LayeredSettings merges locally saved preferences over the account
// settings. A local criteria order wins over the remote one. The always
// displayed optional criteria are only ever stored locally.
type LayeredSettings struct {
	local  LocalPreferences
	remote SettingsSource
}

// NewLayeredSettings returns a SettingsSource reading local first. Either
// layer may be nil.
func NewLayeredSettings(local LocalPreferences, remote SettingsSource) *LayeredSettings {
	return &LayeredSettings{local: local, remote: remote}
}

func (s *LayeredSettings) GetPreferences(ctx context.Context, poll string) (*domain.Preferences, error) {
	var local, remote *domain.Preferences
	var errs []error

	if s.local != nil {
		p, err := s.local.Get(ctx, poll)
		switch {
		case err == nil:
			local = p
		case !errors.Is(err, domain.ErrNotFound):
			errs = append(errs, fmt.Errorf("local preferences: %w", err))
		}
	}
	if s.remote != nil && (local == nil || local.CriteriaOrder == nil) {
		p, err := s.remote.GetPreferences(ctx, poll)
		switch {
		case err == nil:
			remote = p
		case !errors.Is(err, domain.ErrNotFound):
			errs = append(errs, fmt.Errorf("account settings: %w", err))
		}
	}

	if local == nil && remote == nil {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, fmt.Errorf("preferences for %s: %w", poll, domain.ErrNotFound)
	}

	out := &domain.Preferences{}
	if local != nil {
		out.CriteriaOrder = local.CriteriaOrder
		out.AlwaysDisplayedOptional = local.AlwaysDisplayedOptional
	}
	if out.CriteriaOrder == nil && remote != nil {
		out.CriteriaOrder = remote.CriteriaOrder
	}
	return out, nil
}

// SaveLocal updates the local layer. Nil fields keep their stored value.
func (s *LayeredSettings) SaveLocal(ctx context.Context, poll string, order, alwaysDisplayed []string) error {
	if s.local == nil {
		return errors.New("no local preferences store configured")
	}
	current, err := s.local.Get(ctx, poll)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("reading local preferences: %w", err)
		}
		current = &domain.Preferences{}
	}
	if order != nil {
		current.CriteriaOrder = order
	}
	if alwaysDisplayed != nil {
		current.AlwaysDisplayedOptional = alwaysDisplayed
	}
	if err := s.local.Upsert(ctx, poll, current); err != nil {
		return fmt.Errorf("saving local preferences: %w", err)
	}
	return nil
}
