package db_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournesol-app/comparo/internal/db"
)

func openTestUoW(t *testing.T) *db.SQLiteUnitOfWork {
	t.Helper()
	database, err := db.OpenDB(db.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return db.NewSQLiteUnitOfWork(database)
}

func insertPending(ctx context.Context, tx db.DBTX, criterion string, score int) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO pending_ratings (poll, entity_a, entity_b, criterion, score, updated_at)
		VALUES ('videos', 'yt:a', 'yt:b', ?, ?, '2026-01-01T00:00:00Z')`, criterion, score)
	return err
}

// pendingScore reads a score through a read-only transaction.
func pendingScore(uow *db.SQLiteUnitOfWork, criterion string) (int, bool) {
	var score int
	var found bool
	_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		row := tx.QueryRowContext(ctx, `SELECT score FROM pending_ratings WHERE criterion = ?`, criterion)
		if err := row.Scan(&score); err != nil {
			return nil
		}
		found = true
		return nil
	})
	return score, found
}

func TestWithinTx_CommitOnSuccess(t *testing.T) {
	uow := openTestUoW(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		return insertPending(ctx, tx, "reliability", 3)
	})
	require.NoError(t, err)

	score, found := pendingScore(uow, "reliability")
	assert.True(t, found, "row should exist after commit")
	assert.Equal(t, 3, score)
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	uow := openTestUoW(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := insertPending(ctx, tx, "pedagogy", 1); err != nil {
			return err
		}
		return fmt.Errorf("deliberate failure")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliberate failure")

	_, found := pendingScore(uow, "pedagogy")
	assert.False(t, found, "row should not exist after rollback")
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	uow := openTestUoW(t)

	assert.Panics(t, func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_ = insertPending(ctx, tx, "importance", 2)
			panic("boom")
		})
	})

	_, found := pendingScore(uow, "importance")
	assert.False(t, found, "row should not exist after panic rollback")
}

func TestWithinTx_ConcurrentReadModifyWriteOnFileStore(t *testing.T) {
	database, err := db.OpenDB(filepath.Join(t.TempDir(), "store", "comparo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	uow := db.NewSQLiteUnitOfWork(database)
	ctx := context.Background()
	require.NoError(t, uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return insertPending(ctx, tx, "main", 0)
	}))

	const workers, rounds = 8, 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*rounds)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				errs <- uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
					var score int
					if err := tx.QueryRowContext(ctx, `SELECT score FROM pending_ratings WHERE criterion = 'main'`).Scan(&score); err != nil {
						return err
					}
					_, err := tx.ExecContext(ctx, `UPDATE pending_ratings SET score = ? WHERE criterion = 'main'`, score+1)
					return err
				})
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	score, found := pendingScore(uow, "main")
	require.True(t, found)
	assert.Equal(t, workers*rounds, score)
}
