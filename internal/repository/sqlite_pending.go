package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tournesol-app/comparo/internal/db"
	"github.com/tournesol-app/comparo/internal/domain"
	"github.com/tournesol-app/comparo/internal/pending"
)

// SQLitePendingRatingRepo implements PendingRatingRepo using a SQLite database.
type SQLitePendingRatingRepo struct {
	db  db.DBTX
	uow db.UnitOfWork
}

// NewSQLitePendingRatingRepo creates a repo on conn. Update runs inside uow;
// a nil uow means conn is already a transaction.
func NewSQLitePendingRatingRepo(conn db.DBTX, uow db.UnitOfWork) *SQLitePendingRatingRepo {
	return &SQLitePendingRatingRepo{db: conn, uow: uow}
}

var _ pending.Backend = (*SQLitePendingRatingRepo)(nil)

func (r *SQLitePendingRatingRepo) Get(ctx context.Context, key domain.PendingKey) (int, bool, error) {
	query := `SELECT score FROM pending_ratings
		WHERE poll = ? AND entity_a = ? AND entity_b = ? AND criterion = ?`
	var score int
	err := r.db.QueryRowContext(ctx, query, key.Poll, key.EntityA, key.EntityB, key.Criterion).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading pending rating: %w", err)
	}
	return score, true, nil
}

func (r *SQLitePendingRatingRepo) Update(ctx context.Context, key domain.PendingKey, at time.Time, fn pending.UpdateFunc) error {
	if r.uow == nil {
		return r.update(ctx, key, at, fn)
	}
	return r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return NewSQLitePendingRatingRepo(tx, nil).update(ctx, key, at, fn)
	})
}

func (r *SQLitePendingRatingRepo) update(ctx context.Context, key domain.PendingKey, at time.Time, fn pending.UpdateFunc) error {
	cur, ok, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	next, keep, err := fn(cur, ok)
	if err != nil {
		return err
	}

	if !keep {
		if !ok {
			return nil
		}
		_, err := r.db.ExecContext(ctx, `DELETE FROM pending_ratings
			WHERE poll = ? AND entity_a = ? AND entity_b = ? AND criterion = ?`,
			key.Poll, key.EntityA, key.EntityB, key.Criterion)
		if err != nil {
			return fmt.Errorf("deleting pending rating: %w", err)
		}
		return nil
	}

	query := `INSERT INTO pending_ratings (poll, entity_a, entity_b, criterion, score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(poll, entity_a, entity_b, criterion) DO UPDATE
		SET score = excluded.score, updated_at = excluded.updated_at`
	_, err = r.db.ExecContext(ctx, query,
		key.Poll, key.EntityA, key.EntityB, key.Criterion, next, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upserting pending rating: %w", err)
	}
	return nil
}

func (r *SQLitePendingRatingRepo) ListPair(ctx context.Context, poll, entityA, entityB string) (map[string]int, error) {
	query := `SELECT criterion, score FROM pending_ratings
		WHERE poll = ? AND entity_a = ? AND entity_b = ?`
	rows, err := r.db.QueryContext(ctx, query, poll, entityA, entityB)
	if err != nil {
		return nil, fmt.Errorf("listing pending ratings by pair: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var criterion string
		var score int
		if err := rows.Scan(&criterion, &score); err != nil {
			return nil, fmt.Errorf("scanning pending rating: %w", err)
		}
		out[criterion] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending ratings: %w", err)
	}
	return out, nil
}

func (r *SQLitePendingRatingRepo) DeletePair(ctx context.Context, poll, entityA, entityB string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_ratings WHERE poll = ? AND entity_a = ? AND entity_b = ?`,
		poll, entityA, entityB)
	if err != nil {
		return fmt.Errorf("deleting pending ratings by pair: %w", err)
	}
	return nil
}

func (r *SQLitePendingRatingRepo) List(ctx context.Context) ([]domain.PendingRating, error) {
	query := `SELECT poll, entity_a, entity_b, criterion, score, updated_at
		FROM pending_ratings ORDER BY poll, entity_a, entity_b, criterion`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing pending ratings: %w", err)
	}
	defer rows.Close()

	var out []domain.PendingRating
	for rows.Next() {
		var p domain.PendingRating
		var updatedAt string
		if err := rows.Scan(&p.Poll, &p.EntityA, &p.EntityB, &p.Criterion, &p.Score, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning pending rating row: %w", err)
		}
		p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending ratings: %w", err)
	}
	return out, nil
}

func (r *SQLitePendingRatingRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_ratings`); err != nil {
		return fmt.Errorf("deleting all pending ratings: %w", err)
	}
	return nil
}
