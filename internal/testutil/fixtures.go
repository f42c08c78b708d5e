package testutil

import (
	"strings"

	"github.com/google/uuid"
	"github.com/tournesol-app/comparo/internal/domain"
)

// NewTestEntityID returns a unique entity id in the platform's "yt:" form.
func NewTestEntityID() string {
	return "yt:" + strings.ReplaceAll(uuid.New().String(), "-", "")[:11]
}

// Poll options
type PollOption func(*domain.Poll)

// WithOptionalCriteria marks the named criteria optional.
func WithOptionalCriteria(names ...string) PollOption {
	return func(p *domain.Poll) {
		for i := range p.Criteria {
			for _, n := range names {
				if p.Criteria[i].Name == n {
					p.Criteria[i].Optional = true
				}
			}
		}
	}
}

// WithExtraCriteria appends criteria after the defaults.
func WithExtraCriteria(names ...string) PollOption {
	return func(p *domain.Poll) {
		for _, n := range names {
			p.Criteria = append(p.Criteria, domain.Criterion{
				Name:     n,
				Label:    strings.ToUpper(n[:1]) + n[1:],
				Position: len(p.Criteria),
			})
		}
	}
}

func WithMainCriterion(name string) PollOption {
	return func(p *domain.Poll) {
		p.MainCriterion = name
	}
}

// NewTestPoll returns a poll with criteria [main, a, b], none optional.
func NewTestPoll(opts ...PollOption) *domain.Poll {
	p := &domain.Poll{
		Name: "videos",
		Criteria: []domain.Criterion{
			{Name: "main", Label: "Main", Position: 0},
			{Name: "a", Label: "A", Position: 1},
			{Name: "b", Label: "B", Position: 2},
		},
		MainCriterion: "main",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewTestComparison returns a submitted comparison carrying scores for the
// given criteria, all on the given encoding.
func NewTestComparison(poll, entityA, entityB string, enc domain.ScoreEncoding, scores map[string]int, order ...string) *domain.ComparisonDraft {
	c := &domain.ComparisonDraft{Poll: poll, EntityA: entityA, EntityB: entityB, Encoding: enc}
	if len(order) == 0 {
		for _, name := range []string{"main", "a", "b"} {
			if _, ok := scores[name]; ok {
				order = append(order, name)
			}
		}
	}
	for _, name := range order {
		c.CriteriaScores = append(c.CriteriaScores, domain.CriterionScore{
			Criterion: name,
			Score:     domain.IntPtr(scores[name]),
			ScoreMax:  enc.ScoreMax(),
			Weight:    1,
		})
	}
	return c
}
