package domain

import "sort"

type Criterion struct {
	Name     string
	Label    string
	Optional bool
	Position int
}

// Poll is a named comparison context with its ordered criteria.
type Poll struct {
	Name          string
	Criteria      []Criterion
	MainCriterion string
}

// OrderedCriteria returns the criteria sorted by Position. Criteria sharing a
// position keep their declared order.
func (p *Poll) OrderedCriteria() []Criterion {
	out := make([]Criterion, len(p.Criteria))
	copy(out, p.Criteria)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// MainCriterionName returns the configured main criterion, falling back to
// the first criterion in position order.
func (p *Poll) MainCriterionName() string {
	if p.MainCriterion != "" {
		return p.MainCriterion
	}
	ordered := p.OrderedCriteria()
	if len(ordered) == 0 {
		return ""
	}
	return ordered[0].Name
}

// Criterion looks up a criterion by name.
func (p *Poll) Criterion(name string) (Criterion, bool) {
	for _, c := range p.Criteria {
		if c.Name == name {
			return c, true
		}
	}
	return Criterion{}, false
}

// Preferences are the contributor's saved comparison settings for one poll.
type Preferences struct {
	// CriteriaOrder is nil when the contributor never saved an order.
	CriteriaOrder           []string
	AlwaysDisplayedOptional []string
}
