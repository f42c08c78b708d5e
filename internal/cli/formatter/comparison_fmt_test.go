package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tournesol-app/comparo/internal/domain"
)

func testCriteria() []domain.Criterion {
	return []domain.Criterion{
		{Name: "largely_recommended", Label: "Should be largely recommended", Position: 0},
		{Name: "reliability", Label: "Reliable", Optional: true, Position: 1},
		{Name: "pedagogy", Label: "Clear and pedagogical", Optional: true, Position: 2},
	}
}

func TestFormatComparison(t *testing.T) {
	d := &domain.ComparisonDraft{
		Poll: "videos", EntityA: "yt:aaa", EntityB: "yt:bbb", Encoding: domain.EncodingContinuous,
		CriteriaScores: []domain.CriterionScore{
			{Criterion: "largely_recommended", Score: domain.IntPtr(-4), ScoreMax: 10, Weight: 1},
			{Criterion: "reliability", ScoreMax: 10, Weight: 1},
		},
	}

	out := stripANSI(FormatComparison(ComparisonView{
		Draft:         d,
		Criteria:      testCriteria(),
		MainCriterion: "largely_recommended",
		Modality:      domain.ModalityContinuous,
		Pending:       map[string]bool{"largely_recommended": true},
	}))

	assert.Contains(t, out, "yt:aaa vs yt:bbb")
	assert.Contains(t, out, "○ draft")
	assert.Contains(t, out, "● continuous")
	assert.Contains(t, out, "Should be largely recommended ★")
	assert.Contains(t, out, "-4 / 10")
	assert.Contains(t, out, "unsaved")
	assert.Contains(t, out, "Reliable (optional)")
	assert.Contains(t, out, "skipped")
	assert.NotContains(t, out, "pedagogical", "absent optional criteria are hidden")
}

func TestFormatComparison_Submitted(t *testing.T) {
	d := &domain.ComparisonDraft{
		Poll: "videos", EntityA: "yt:aaa", EntityB: "yt:bbb", Encoding: domain.EncodingDiscrete,
		CriteriaScores: []domain.CriterionScore{
			{Criterion: "largely_recommended", Score: domain.IntPtr(2), ScoreMax: 2, Weight: 1},
		},
	}

	out := stripANSI(FormatComparison(ComparisonView{
		Draft: d, Criteria: testCriteria(), MainCriterion: "largely_recommended",
		Modality: domain.ModalityDiscrete, Existing: true,
	}))

	assert.Contains(t, out, "✔ submitted")
	assert.Contains(t, out, "◆ discrete")
	assert.Contains(t, out, "◆ buttons")
	assert.Contains(t, out, "+2 / 2")
	assert.NotContains(t, out, "unsaved")
}

func TestFormatComparison_Nil(t *testing.T) {
	assert.Contains(t, stripANSI(FormatComparison(ComparisonView{})), "No comparison.")
}

func TestFormatPending(t *testing.T) {
	now := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)
	out := stripANSI(FormatPending([]domain.PendingRating{
		{Poll: "videos", EntityA: "yt:b", EntityB: "yt:c", Criterion: "reliability", Score: 4, UpdatedAt: now.Add(-2 * time.Hour)},
		{Poll: "videos", EntityA: "yt:a", EntityB: "yt:b", Criterion: "largely_recommended", Score: -3, UpdatedAt: now.Add(-5 * time.Minute)},
	}, now))

	assert.Contains(t, out, "UNSUBMITTED RATINGS")
	first := strings.Index(out, "yt:a vs yt:b")
	second := strings.Index(out, "yt:b vs yt:c")
	assert.True(t, first >= 0 && second > first, "rows sorted by pair")
	assert.Contains(t, out, "5m ago")
	assert.Contains(t, out, "2h ago")
	assert.Contains(t, out, "-3")
}

func TestFormatPending_Empty(t *testing.T) {
	assert.Equal(t, "No unsubmitted ratings.\n", stripANSI(FormatPending(nil, time.Now())))
}

func TestFormatPoll(t *testing.T) {
	poll := &domain.Poll{Name: "videos", Criteria: testCriteria()}
	ordered := []domain.Criterion{testCriteria()[0], testCriteria()[2], testCriteria()[1]}

	out := stripANSI(FormatPoll(poll, ordered, domain.Preferences{
		CriteriaOrder:           []string{"pedagogy"},
		AlwaysDisplayedOptional: []string{"pedagogy"},
	}))

	assert.Contains(t, out, "POLL VIDEOS")
	assert.Contains(t, out, "criteria order: custom")
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "optional, always shown")
	assert.Less(t, strings.Index(out, "pedagogy"), strings.Index(out, "reliability"))
}
