package formatter

import (
	"fmt"
	"math"
	"strings"

	"github.com/tournesol-app/comparo/internal/domain"
	"github.com/tournesol-app/comparo/internal/scoring"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
	centerMark  = "│"
)

// RenderLeanBar draws a score as a bar growing away from the center: left
// toward entity A for negative scores, right toward entity B for positive
// ones. Each side is halfWidth cells wide.
func RenderLeanBar(score, scoreMax, halfWidth int) string {
	if halfWidth < 1 {
		halfWidth = 1
	}
	n, err := scoring.Normalize(score, scoreMax)
	if err != nil {
		return StyleRed.Render(strings.Repeat("?", 2*halfWidth+1))
	}
	filled := int(math.Round(math.Abs(n) * float64(halfWidth)))

	left := strings.Repeat(emptyBlock, halfWidth)
	right := left
	switch {
	case n < 0:
		left = strings.Repeat(emptyBlock, halfWidth-filled) + EntityStyle(false).Render(strings.Repeat(filledBlock, filled))
	case n > 0:
		right = EntityStyle(true).Render(strings.Repeat(filledBlock, filled)) + strings.Repeat(emptyBlock, halfWidth-filled)
	}
	return Dim(left) + StyleFg.Render(centerMark) + Dim(right)
}

// FormatScore renders one criterion's score as "+3 / 10", "skipped" or "--".
func FormatScore(cs domain.CriterionScore, present bool) string {
	switch {
	case !present:
		return Dim("--")
	case !cs.HasScore():
		return StyleYellow.Render("skipped")
	default:
		return fmt.Sprintf("%+d / %d", *cs.Score, cs.ScoreMax)
	}
}

// DiscreteLabel names a discrete score for the button view.
func DiscreteLabel(score int) string {
	switch score {
	case -2:
		return "A ≫"
	case -1:
		return "A >"
	case 0:
		return "="
	case 1:
		return "< B"
	case 2:
		return "≪ B"
	default:
		return fmt.Sprintf("%+d", score)
	}
}
