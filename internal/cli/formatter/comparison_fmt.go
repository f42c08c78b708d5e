package formatter

import (
	"fmt"
	"strings"

	"github.com/tournesol-app/comparo/internal/domain"
)

// ComparisonView is what FormatComparison needs besides the scores.
type ComparisonView struct {
	Draft         *domain.ComparisonDraft
	Criteria      []domain.Criterion
	MainCriterion string
	Modality      domain.Modality
	Existing      bool
	// Pending marks criteria whose value comes from the local draft store.
	Pending map[string]bool
}

// FormatComparison renders a comparison as a header block and a score table.
func FormatComparison(v ComparisonView) string {
	var b strings.Builder
	b.WriteString(Header("Comparison"))
	b.WriteString("\n")
	if v.Draft == nil {
		b.WriteString(Dim("No comparison."))
		b.WriteString("\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%s  %s\n", Pair(v.Draft.EntityA, v.Draft.EntityB), Dim("("+v.Draft.Poll+")"))
	state := StyleYellow.Render("○ draft")
	if v.Existing {
		state = StyleGreen.Render("✔ submitted")
	}
	fmt.Fprintf(&b, "%s  %s  %s\n\n", state, EncodingBadge(v.Draft.Encoding), ModalityBadge(v.Modality))

	headers := []string{"CRITERION", "SCORE", "LEAN", ""}
	rows := make([][]string, 0, len(v.Criteria))
	for _, c := range v.Criteria {
		cs, present := v.Draft.Score(c.Name)
		if !present && c.Optional {
			continue
		}

		name := c.Label
		if name == "" {
			name = c.Name
		}
		if c.Name == v.MainCriterion {
			name = Bold(name) + StyleHeader.Render(" ★")
		} else if c.Optional {
			name += Dim(" (optional)")
		}

		lean := ""
		if present && cs.HasScore() {
			lean = RenderLeanBar(*cs.Score, cs.ScoreMax, 10)
		}
		note := ""
		if v.Pending[c.Name] {
			note = Dim("unsaved")
		}
		rows = append(rows, []string{name, FormatScore(cs, present), lean, note})
	}
	b.WriteString(RenderTable(headers, rows))
	return b.String()
}
