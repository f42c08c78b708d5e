package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tournesol-app/comparo/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// EntityStyle colors entity A blue and entity B purple everywhere.
func EntityStyle(isB bool) lipgloss.Style {
	if isB {
		return StylePurple
	}
	return StyleBlue
}

// EncodingBadge returns a colored label for a score encoding.
func EncodingBadge(enc domain.ScoreEncoding) string {
	switch enc {
	case domain.EncodingContinuous:
		return StyleGreen.Render("● continuous")
	case domain.EncodingDiscrete:
		return StyleYellow.Render("◆ discrete")
	default:
		return StyleRed.Render("✖ unknown")
	}
}

// ModalityBadge returns a colored label for an input modality.
func ModalityBadge(m domain.Modality) string {
	if m == domain.ModalityDiscrete {
		return StyleYellow.Render("◆ buttons")
	}
	return StyleGreen.Render("● sliders")
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
