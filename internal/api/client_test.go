package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournesol-app/comparo/internal/domain"
)

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Token = testToken
	cfg.TimeoutMs = 2000
	return cfg
}

type captureObserver struct {
	events []CallEvent
}

func (o *captureObserver) OnCallComplete(e CallEvent) { o.events = append(o.events, e) }

func discreteScores(main, reliability int) []domain.CriterionScore {
	return []domain.CriterionScore{
		{Criterion: "largely_recommended", Score: domain.IntPtr(main), ScoreMax: 2, Weight: 1},
		{Criterion: "reliability", Score: domain.IntPtr(reliability), ScoreMax: 2, Weight: 1},
	}
}

func TestClient_ComparisonLifecycle(t *testing.T) {
	_, srv := newFakePlatform(t)
	client := NewClient(testConfig(srv.URL), nil)
	ctx := context.Background()

	_, err := client.GetComparison(ctx, "videos", "yt:aaa", "yt:bbb")
	require.ErrorIs(t, err, domain.ErrNotFound)

	created, err := client.CreateComparison(ctx, &domain.ComparisonDraft{
		Poll: "videos", EntityA: "yt:aaa", EntityB: "yt:bbb",
		CriteriaScores: discreteScores(1, -2),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EncodingDiscrete, created.Encoding)
	assert.Equal(t, "yt:aaa", created.EntityA)

	patched, err := client.UpdateComparison(ctx, "videos", "yt:aaa", "yt:bbb", []domain.CriterionScore{
		{Criterion: "importance", Score: domain.IntPtr(2), ScoreMax: 2, Weight: 1},
	}, true)
	require.NoError(t, err)
	assert.Len(t, patched.CriteriaScores, 3)

	replaced, err := client.UpdateComparison(ctx, "videos", "yt:aaa", "yt:bbb", discreteScores(0, 0)[:1], false)
	require.NoError(t, err)
	require.Len(t, replaced.CriteriaScores, 1)
	assert.Equal(t, 0, replaced.CriteriaScores[0].Value())

	got, err := client.GetComparison(ctx, "videos", "yt:aaa", "yt:bbb")
	require.NoError(t, err)
	assert.True(t, replaced.Equal(got))
}

func TestClient_ValidationError(t *testing.T) {
	_, srv := newFakePlatform(t)
	client := NewClient(testConfig(srv.URL), nil)

	_, err := client.CreateComparison(context.Background(), &domain.ComparisonDraft{
		Poll: "videos", EntityA: "yt:aaa", EntityB: "yt:aaa", CriteriaScores: discreteScores(1, 1),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"You cannot compare an entity with itself."}, verr.Fields["non_field_errors"])
	assert.Contains(t, err.Error(), "non_field_errors")
}

func TestClient_MissingTokenIsUnauthorized(t *testing.T) {
	_, srv := newFakePlatform(t)
	cfg := testConfig(srv.URL)
	cfg.Token = ""
	obs := &captureObserver{}
	client := NewClient(cfg, obs)

	_, err := client.GetComparison(context.Background(), "videos", "yt:aaa", "yt:bbb")
	assert.ErrorIs(t, err, ErrUnauthorized)
	require.Len(t, obs.events, 1)
	assert.Equal(t, "UNAUTHORIZED", obs.events[0].ErrorCode)
	assert.Equal(t, 1, obs.events[0].Attempts, "4xx responses are not retried")
}

func TestClient_RetriesGetsOnServerErrors(t *testing.T) {
	platform, srv := newFakePlatform(t)
	platform.getFailures = 2
	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 2
	obs := &captureObserver{}
	client := NewClient(cfg, obs)

	poll, err := client.GetPoll(context.Background(), "videos")
	require.NoError(t, err)
	assert.Equal(t, "largely_recommended", poll.MainCriterionName())
	assert.Len(t, poll.Criteria, 3)
	assert.True(t, poll.Criteria[1].Optional)

	require.Len(t, obs.events, 1)
	assert.Equal(t, 3, obs.events[0].Attempts)

	platform.mu.Lock()
	defer platform.mu.Unlock()
	require.Len(t, platform.requestIDs, 3)
	assert.NotEmpty(t, platform.requestIDs[0])
	assert.Equal(t, platform.requestIDs[0], platform.requestIDs[2], "retries reuse the request id")
}

func TestClient_RetriesExhausted(t *testing.T) {
	platform, srv := newFakePlatform(t)
	platform.getFailures = 5
	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 1
	client := NewClient(cfg, nil)

	_, err := client.GetPoll(context.Background(), "videos")
	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusServiceUnavailable, status.Status)
}

func TestClient_WritesAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 3
	client := NewClient(cfg, nil)

	_, err := client.UpdateComparison(context.Background(), "videos", "yt:a", "yt:b", discreteScores(1, 1), true)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	cfg := testConfig(srv.URL)
	cfg.TimeoutMs = 50
	obs := &captureObserver{}
	client := NewClient(cfg, obs)

	err := client.RefreshStats(context.Background(), "videos")
	assert.ErrorIs(t, err, ErrTimeout)
	require.Len(t, obs.events, 1)
	assert.Equal(t, "TIMEOUT", obs.events[0].ErrorCode)
}

func TestClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := testConfig(url)
	cfg.MaxRetries = 0
	client := NewClient(cfg, nil)

	_, err := client.GetPoll(context.Background(), "videos")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_Preferences(t *testing.T) {
	platform, srv := newFakePlatform(t)
	client := NewClient(testConfig(srv.URL), nil)
	ctx := context.Background()

	prefs, err := client.GetPreferences(ctx, "videos")
	require.NoError(t, err)
	assert.Nil(t, prefs.CriteriaOrder)

	platform.mu.Lock()
	platform.settings = map[string]any{
		"videos": map[string]any{"comparison__criteria_order": []string{"importance", "reliability"}},
	}
	platform.mu.Unlock()
	prefs, err = client.GetPreferences(ctx, "videos")
	require.NoError(t, err)
	assert.Equal(t, []string{"importance", "reliability"}, prefs.CriteriaOrder)
}

func TestClient_RefreshStats(t *testing.T) {
	platform, srv := newFakePlatform(t)
	client := NewClient(testConfig(srv.URL), nil)

	require.NoError(t, client.RefreshStats(context.Background(), "videos"))
	platform.mu.Lock()
	defer platform.mu.Unlock()
	assert.Equal(t, 1, platform.statsCalls)
}

func TestClient_UnknownPoll(t *testing.T) {
	_, srv := newFakePlatform(t)
	client := NewClient(testConfig(srv.URL), nil)

	_, err := client.GetPoll(context.Background(), "nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
