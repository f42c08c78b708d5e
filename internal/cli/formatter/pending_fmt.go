package formatter

import (
	"sort"
	"strconv"
	"time"

	"github.com/tournesol-app/comparo/internal/domain"
)

// FormatPending lists locally saved scores grouped by poll and pair.
func FormatPending(ratings []domain.PendingRating, now time.Time) string {
	if len(ratings) == 0 {
		return Dim("No unsubmitted ratings.") + "\n"
	}

	sorted := make([]domain.PendingRating, len(ratings))
	copy(sorted, ratings)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Poll != b.Poll {
			return a.Poll < b.Poll
		}
		if a.EntityA != b.EntityA {
			return a.EntityA < b.EntityA
		}
		if a.EntityB != b.EntityB {
			return a.EntityB < b.EntityB
		}
		return a.Criterion < b.Criterion
	})

	rows := make([][]string, 0, len(sorted))
	for _, r := range sorted {
		rows = append(rows, []string{
			r.Poll,
			Pair(Truncate(r.EntityA, 24), Truncate(r.EntityB, 24)),
			r.Criterion,
			strconv.Itoa(r.Score),
			HumanTimestampFrom(r.UpdatedAt, now),
		})
	}
	return Header("Unsubmitted ratings") + "\n" +
		RenderTable([]string{"POLL", "PAIR", "CRITERION", "SCORE", "UPDATED"}, rows)
}
