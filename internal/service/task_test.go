package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournesol-app/comparo/internal/domain"
)

func TestTask_AbandonDoesNotCancelTheCall(t *testing.T) {
	f := newSubmissionFixture()
	f.api.Gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	task := f.svc.StartFull(ctx, nil, continuousDraft(map[string]int{"main": 3}))
	cancel()
	task.Abandon()
	close(f.api.Gate)

	<-task.Done()
	_, err := task.Wait(context.Background())
	assert.ErrorIs(t, err, ErrTaskAbandoned)
	assert.True(t, task.Abandoned())

	stored := f.api.Stored("videos", "yt:a", "yt:b")
	require.NotNil(t, stored, "the request still reached the server")
	assert.Equal(t, 3, stored.CriteriaScores[0].Value())
}

func TestTask_WaitHonoursCallerContext(t *testing.T) {
	f := newSubmissionFixture()
	f.api.Gate = make(chan struct{})
	defer close(f.api.Gate)

	task := f.svc.StartFull(context.Background(), nil, continuousDraft(map[string]int{"main": 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTask_WaitReturnsResult(t *testing.T) {
	f := newSubmissionFixture()
	task := f.svc.StartFull(context.Background(), nil, continuousDraft(map[string]int{"main": -1}))

	result, err := task.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, result.HasRated("main"))
	assert.Equal(t, domain.EncodingContinuous, result.Encoding)
}
