package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDraft() *ComparisonDraft {
	return &ComparisonDraft{
		Poll:     "videos",
		EntityA:  "yt:a",
		EntityB:  "yt:b",
		Encoding: EncodingContinuous,
		CriteriaScores: []CriterionScore{
			{Criterion: "largely_recommended", Score: IntPtr(3), ScoreMax: 10, Weight: 1},
			{Criterion: "reliability", Score: IntPtr(-2), ScoreMax: 10, Weight: 1},
		},
	}
}

func TestValidatePair(t *testing.T) {
	assert.NoError(t, ValidatePair("yt:a", "yt:b"))
	assert.ErrorIs(t, ValidatePair("yt:a", "yt:a"), ErrInvalidPair)
	assert.Error(t, ValidatePair("", "yt:b"))
}

func TestNewComparisonDraft_RejectsSelfComparison(t *testing.T) {
	d, err := NewComparisonDraft("videos", "yt:a", "yt:a", EncodingContinuous)
	assert.Nil(t, d)
	assert.True(t, errors.Is(err, ErrInvalidPair))
}

func TestComparisonDraft_CloneIsDeep(t *testing.T) {
	d := testDraft()
	c := d.Clone()
	require.True(t, d.Equal(c))

	*c.CriteriaScores[0].Score = 9
	c.CriteriaScores[1].Weight = 4

	assert.Equal(t, 3, *d.CriteriaScores[0].Score, "clone must not share score pointers")
	assert.Equal(t, 1, d.CriteriaScores[1].Weight)
	assert.False(t, d.Equal(c))
}

func TestComparisonDraft_UpsertAndRemove(t *testing.T) {
	d := testDraft()

	d.Upsert(CriterionScore{Criterion: "reliability", Score: IntPtr(5), ScoreMax: 10, Weight: 1})
	require.Len(t, d.CriteriaScores, 2)
	cs, ok := d.Score("reliability")
	require.True(t, ok)
	assert.Equal(t, 5, cs.Value())

	d.Upsert(CriterionScore{Criterion: "pedagogy", Score: IntPtr(1), ScoreMax: 10, Weight: 1})
	assert.Len(t, d.CriteriaScores, 3)

	assert.True(t, d.Remove("pedagogy"))
	assert.False(t, d.Remove("pedagogy"))
	assert.Len(t, d.CriteriaScores, 2)
}

func TestComparisonDraft_HasRated(t *testing.T) {
	d := testDraft()
	d.Upsert(CriterionScore{Criterion: "pedagogy", ScoreMax: 10, Weight: 1})

	assert.True(t, d.HasRated("largely_recommended"))
	assert.False(t, d.HasRated("pedagogy"), "skipped criterion has no score")
	assert.False(t, d.HasRated("importance"))

	var nilDraft *ComparisonDraft
	assert.False(t, nilDraft.HasRated("largely_recommended"))
}

func TestComparisonDraft_Validate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(d *ComparisonDraft)
		wantErr error
	}{
		{"valid", func(d *ComparisonDraft) {}, nil},
		{"self pair", func(d *ComparisonDraft) { d.EntityB = d.EntityA }, ErrInvalidPair},
		{"unknown score max", func(d *ComparisonDraft) { d.CriteriaScores[0].ScoreMax = 5 }, ErrUnknownEncoding},
		{"out of range", func(d *ComparisonDraft) { d.CriteriaScores[0].Score = IntPtr(11) }, ErrScoreOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := testDraft()
			tc.mutate(d)
			err := d.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestComparisonDraft_ValidateDuplicate(t *testing.T) {
	d := testDraft()
	d.CriteriaScores = append(d.CriteriaScores, d.CriteriaScores[0])
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestSubmissionError_Unwraps(t *testing.T) {
	cause := errors.New("boom")
	err := error(&SubmissionError{Op: "partial_update", Partial: true, Criterion: "reliability", Err: cause})

	assert.ErrorIs(t, err, cause)
	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, "reliability", subErr.Criterion)
	assert.Contains(t, err.Error(), "reliability")
}
