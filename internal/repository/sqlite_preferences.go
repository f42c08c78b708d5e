package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tournesol-app/comparo/internal/db"
	"github.com/tournesol-app/comparo/internal/domain"
)

// SQLitePreferencesRepo implements PreferencesRepo using a SQLite database.
type SQLitePreferencesRepo struct {
	db db.DBTX
}

// NewSQLitePreferencesRepo creates a new SQLitePreferencesRepo.
func NewSQLitePreferencesRepo(conn db.DBTX) *SQLitePreferencesRepo {
	return &SQLitePreferencesRepo{db: conn}
}

func (r *SQLitePreferencesRepo) Get(ctx context.Context, poll string) (*domain.Preferences, error) {
	query := `SELECT criteria_order, always_displayed FROM preferences WHERE poll = ?`
	var order sql.NullString
	var displayed string
	err := r.db.QueryRowContext(ctx, query, poll).Scan(&order, &displayed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("preferences for %s: %w", poll, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning preferences: %w", err)
	}

	var p domain.Preferences
	if order.Valid {
		if err := json.Unmarshal([]byte(order.String), &p.CriteriaOrder); err != nil {
			return nil, fmt.Errorf("decoding criteria_order: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(displayed), &p.AlwaysDisplayedOptional); err != nil {
		return nil, fmt.Errorf("decoding always_displayed: %w", err)
	}
	return &p, nil
}

func (r *SQLitePreferencesRepo) Upsert(ctx context.Context, poll string, p *domain.Preferences) error {
	var order any
	if p.CriteriaOrder != nil {
		raw, err := json.Marshal(p.CriteriaOrder)
		if err != nil {
			return fmt.Errorf("encoding criteria_order: %w", err)
		}
		order = string(raw)
	}
	displayed := p.AlwaysDisplayedOptional
	if displayed == nil {
		displayed = []string{}
	}
	rawDisplayed, err := json.Marshal(displayed)
	if err != nil {
		return fmt.Errorf("encoding always_displayed: %w", err)
	}

	query := `INSERT OR REPLACE INTO preferences (poll, criteria_order, always_displayed) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, poll, order, string(rawDisplayed)); err != nil {
		return fmt.Errorf("upserting preferences: %w", err)
	}
	return nil
}
