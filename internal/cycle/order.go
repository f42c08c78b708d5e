package cycle

import "github.com/tournesol-app/comparo/internal/domain"

// OrderCriteria returns the display order for the discrete modality: the main
// criterion, then criteria named in preference, then the remaining criteria in
// poll order. Unknown names in preference are ignored.
func OrderCriteria(poll *domain.Poll, preference []string) []domain.Criterion {
	remaining := poll.OrderedCriteria()
	out := make([]domain.Criterion, 0, len(remaining))

	take := func(name string) {
		for i, c := range remaining {
			if c.Name == name {
				out = append(out, c)
				remaining = append(remaining[:i], remaining[i+1:]...)
				return
			}
		}
	}

	take(poll.MainCriterionName())
	for _, name := range preference {
		take(name)
	}
	return append(out, remaining...)
}
