package domain

import "fmt"

// CriterionScore is one criterion's rating inside a comparison. A nil Score
// means the criterion was explicitly skipped.
type CriterionScore struct {
	Criterion string
	Score     *int
	ScoreMax  int
	Weight    int
}

// HasScore reports whether the criterion carries a value.
func (cs CriterionScore) HasScore() bool {
	return cs.Score != nil
}

// Value returns the score, or 0 when the criterion was skipped.
func (cs CriterionScore) Value() int {
	if cs.Score == nil {
		return 0
	}
	return *cs.Score
}

func (cs CriterionScore) clone() CriterionScore {
	if cs.Score != nil {
		v := *cs.Score
		cs.Score = &v
	}
	return cs
}

func (cs CriterionScore) equal(o CriterionScore) bool {
	if cs.Criterion != o.Criterion || cs.ScoreMax != o.ScoreMax || cs.Weight != o.Weight {
		return false
	}
	if (cs.Score == nil) != (o.Score == nil) {
		return false
	}
	return cs.Score == nil || *cs.Score == *o.Score
}

// ComparisonDraft is the comparison currently being edited, or one returned
// by the server. CriteriaScores holds at most one entry per criterion.
type ComparisonDraft struct {
	Poll           string
	EntityA        string
	EntityB        string
	Encoding       ScoreEncoding
	CriteriaScores []CriterionScore
	DurationMs     int64
}

// NewComparisonDraft returns an empty draft for the given pair.
func NewComparisonDraft(poll, entityA, entityB string, enc ScoreEncoding) (*ComparisonDraft, error) {
	if err := ValidatePair(entityA, entityB); err != nil {
		return nil, err
	}
	return &ComparisonDraft{Poll: poll, EntityA: entityA, EntityB: entityB, Encoding: enc}, nil
}

// ValidatePair rejects empty ids and self comparisons.
func ValidatePair(entityA, entityB string) error {
	if entityA == "" || entityB == "" {
		return fmt.Errorf("both entities are required")
	}
	if entityA == entityB {
		return fmt.Errorf("%s: %w", entityA, ErrInvalidPair)
	}
	return nil
}

// Score returns the entry for criterion, if any.
func (d *ComparisonDraft) Score(criterion string) (CriterionScore, bool) {
	if d == nil {
		return CriterionScore{}, false
	}
	for _, cs := range d.CriteriaScores {
		if cs.Criterion == criterion {
			return cs, true
		}
	}
	return CriterionScore{}, false
}

// HasRated reports whether criterion has a present (non-skipped) score.
func (d *ComparisonDraft) HasRated(criterion string) bool {
	cs, ok := d.Score(criterion)
	return ok && cs.HasScore()
}

// Clone returns a deep copy of d.
func (d *ComparisonDraft) Clone() *ComparisonDraft {
	if d == nil {
		return nil
	}
	out := *d
	out.CriteriaScores = make([]CriterionScore, len(d.CriteriaScores))
	for i, cs := range d.CriteriaScores {
		out.CriteriaScores[i] = cs.clone()
	}
	return &out
}

// Upsert replaces the entry for cs.Criterion or appends it.
func (d *ComparisonDraft) Upsert(cs CriterionScore) {
	for i := range d.CriteriaScores {
		if d.CriteriaScores[i].Criterion == cs.Criterion {
			d.CriteriaScores[i] = cs
			return
		}
	}
	d.CriteriaScores = append(d.CriteriaScores, cs)
}

// Remove drops the entry for criterion. It reports whether one existed.
func (d *ComparisonDraft) Remove(criterion string) bool {
	for i := range d.CriteriaScores {
		if d.CriteriaScores[i].Criterion == criterion {
			d.CriteriaScores = append(d.CriteriaScores[:i], d.CriteriaScores[i+1:]...)
			return true
		}
	}
	return false
}

// Equal compares two drafts by value. Criteria order matters.
func (d *ComparisonDraft) Equal(o *ComparisonDraft) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Poll != o.Poll || d.EntityA != o.EntityA || d.EntityB != o.EntityB ||
		d.Encoding != o.Encoding || d.DurationMs != o.DurationMs ||
		len(d.CriteriaScores) != len(o.CriteriaScores) {
		return false
	}
	for i := range d.CriteriaScores {
		if !d.CriteriaScores[i].equal(o.CriteriaScores[i]) {
			return false
		}
	}
	return true
}

// Validate checks the structural invariants of the draft: a valid pair, one
// entry per criterion, and every present score within its own scale.
func (d *ComparisonDraft) Validate() error {
	if err := ValidatePair(d.EntityA, d.EntityB); err != nil {
		return err
	}
	seen := make(map[string]bool, len(d.CriteriaScores))
	for _, cs := range d.CriteriaScores {
		if seen[cs.Criterion] {
			return fmt.Errorf("duplicate score for criterion %q", cs.Criterion)
		}
		seen[cs.Criterion] = true
		if !ScoreEncoding(cs.ScoreMax).Valid() {
			return fmt.Errorf("criterion %q score_max %d: %w", cs.Criterion, cs.ScoreMax, ErrUnknownEncoding)
		}
		if cs.Score != nil && (*cs.Score < -cs.ScoreMax || *cs.Score > cs.ScoreMax) {
			return fmt.Errorf("criterion %q score %d: %w", cs.Criterion, *cs.Score, ErrScoreOutOfRange)
		}
	}
	return nil
}

// PartialScore is a single-criterion update of one comparison.
type PartialScore struct {
	Poll      string
	EntityA   string
	EntityB   string
	Criterion string
	Score     int
	ScoreMax  int
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
