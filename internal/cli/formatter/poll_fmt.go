package formatter

import (
	"slices"
	"strconv"
	"strings"

	"github.com/tournesol-app/comparo/internal/domain"
)

// FormatPoll lists a poll's criteria in the contributor's order.
func FormatPoll(poll *domain.Poll, ordered []domain.Criterion, prefs domain.Preferences) string {
	main := poll.MainCriterionName()
	rows := make([][]string, 0, len(ordered))
	for i, c := range ordered {
		var flags []string
		if c.Name == main {
			flags = append(flags, StyleHeader.Render("main"))
		}
		if c.Optional {
			flags = append(flags, Dim("optional"))
		}
		if slices.Contains(prefs.AlwaysDisplayedOptional, c.Name) {
			flags = append(flags, StyleGreen.Render("always shown"))
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), c.Name, c.Label, strings.Join(flags, ", ")})
	}

	order := Dim("poll default")
	if len(prefs.CriteriaOrder) > 0 {
		order = "custom"
	}
	return Header("Poll "+poll.Name) + "\n" +
		Dim("criteria order: ") + order + "\n\n" +
		RenderTable([]string{"#", "CRITERION", "LABEL", "FLAGS"}, rows)
}
