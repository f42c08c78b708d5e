package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournesol-app/comparo/internal/db"
	"github.com/tournesol-app/comparo/internal/domain"
	"github.com/tournesol-app/comparo/internal/testutil"
)

func newPendingRepo(t *testing.T) *SQLitePendingRatingRepo {
	t.Helper()
	conn := testutil.NewTestDB(t)
	return NewSQLitePendingRatingRepo(conn, testutil.NewTestUoW(conn))
}

func set(score int) func(int, bool) (int, bool, error) {
	return func(int, bool) (int, bool, error) { return score, true, nil }
}

func TestPendingRatingRepo_UpdateInsertsAndReads(t *testing.T) {
	repo := newPendingRepo(t)
	ctx := context.Background()
	key := domain.PendingKey{Poll: "videos", EntityA: "yt:a", EntityB: "yt:b", Criterion: "main"}
	at := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Update(ctx, key, at, set(3)))

	score, ok, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, score)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, at.Equal(list[0].UpdatedAt))
	assert.Equal(t, "main", list[0].Criterion)
}

func TestPendingRatingRepo_UpdateReplacesScore(t *testing.T) {
	repo := newPendingRepo(t)
	ctx := context.Background()
	key := domain.PendingKey{Poll: "videos", EntityA: "yt:a", EntityB: "yt:b", Criterion: "main"}

	require.NoError(t, repo.Update(ctx, key, time.Now(), set(3)))
	require.NoError(t, repo.Update(ctx, key, time.Now(), func(cur int, exists bool) (int, bool, error) {
		assert.True(t, exists)
		assert.Equal(t, 3, cur)
		return -8, true, nil
	}))

	score, _, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, -8, score)
}

func TestPendingRatingRepo_UpdateDeletesWhenNotKept(t *testing.T) {
	repo := newPendingRepo(t)
	ctx := context.Background()
	key := domain.PendingKey{Poll: "videos", EntityA: "yt:a", EntityB: "yt:b", Criterion: "main"}

	require.NoError(t, repo.Update(ctx, key, time.Now(), set(1)))
	remove := func(int, bool) (int, bool, error) { return 0, false, nil }
	require.NoError(t, repo.Update(ctx, key, time.Now(), remove))
	require.NoError(t, repo.Update(ctx, key, time.Now(), remove))

	_, ok, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPendingRatingRepo_UpdateCallbackErrorRollsBack(t *testing.T) {
	repo := newPendingRepo(t)
	ctx := context.Background()
	key := domain.PendingKey{Poll: "videos", EntityA: "yt:a", EntityB: "yt:b", Criterion: "main"}
	boom := errors.New("boom")

	require.NoError(t, repo.Update(ctx, key, time.Now(), set(2)))
	err := repo.Update(ctx, key, time.Now(), func(int, bool) (int, bool, error) { return 0, false, boom })
	assert.ErrorIs(t, err, boom)

	score, ok, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, score)
}

func TestPendingRatingRepo_FailedWriteLeavesRowIntact(t *testing.T) {
	conn := testutil.NewTestDB(t)
	ctx := context.Background()
	key := domain.PendingKey{Poll: "videos", EntityA: "yt:a", EntityB: "yt:b", Criterion: "main"}

	require.NoError(t, NewSQLitePendingRatingRepo(conn, db.NewSQLiteUnitOfWork(conn)).Update(ctx, key, time.Now(), set(5)))

	injected := errors.New("disk full")
	failing := NewSQLitePendingRatingRepo(conn, &testutil.FailingUoW{UnitOfWork: db.NewSQLiteUnitOfWork(conn), FailOn: 1, Err: injected})
	err := failing.Update(ctx, key, time.Now(), set(9))
	assert.ErrorIs(t, err, injected)

	score, _, err := NewSQLitePendingRatingRepo(conn, nil).Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 5, score)
}

func TestPendingRatingRepo_RejectsNonCanonicalPair(t *testing.T) {
	repo := newPendingRepo(t)
	key := domain.PendingKey{Poll: "videos", EntityA: "yt:b", EntityB: "yt:a", Criterion: "main"}

	err := repo.Update(context.Background(), key, time.Now(), set(1))
	assert.Error(t, err)
}

func TestPendingRatingRepo_ListPairAndDeletePair(t *testing.T) {
	repo := newPendingRepo(t)
	ctx := context.Background()
	for _, k := range []domain.PendingKey{
		{Poll: "videos", EntityA: "yt:a", EntityB: "yt:b", Criterion: "main"},
		{Poll: "videos", EntityA: "yt:a", EntityB: "yt:b", Criterion: "a"},
		{Poll: "videos", EntityA: "yt:a", EntityB: "yt:c", Criterion: "main"},
	} {
		require.NoError(t, repo.Update(ctx, k, time.Now(), set(1)))
	}

	pair, err := repo.ListPair(ctx, "videos", "yt:a", "yt:b")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"main": 1, "a": 1}, pair)

	require.NoError(t, repo.DeletePair(ctx, "videos", "yt:a", "yt:b"))
	pair, err = repo.ListPair(ctx, "videos", "yt:a", "yt:b")
	require.NoError(t, err)
	assert.Empty(t, pair)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.DeleteAll(ctx))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPendingRatingRepo_ConcurrentUpdatesAreAtomic(t *testing.T) {
	conn := testutil.NewTestFileDB(t)
	repo := NewSQLitePendingRatingRepo(conn, db.NewSQLiteUnitOfWork(conn))
	ctx := context.Background()
	key := domain.PendingKey{Poll: "videos", EntityA: "yt:a", EntityB: "yt:b", Criterion: "main"}

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Update(ctx, key, time.Now(), func(cur int, _ bool) (int, bool, error) {
				return cur + 1, true, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	score, _, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, workers, score)
}
