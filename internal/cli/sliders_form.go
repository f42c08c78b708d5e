package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/tournesol-app/comparo/internal/cli/formatter"
	"github.com/tournesol-app/comparo/internal/domain"
	"github.com/tournesol-app/comparo/internal/service"
)

// skipValue stands for "skipped" in a slider select. It is outside every
// score scale.
const skipValue = 1 << 10

// sliderValues holds the form-bound value of each displayed criterion.
type sliderValues struct {
	criteria []domain.Criterion
	initial  map[string]int
	values   map[string]*int
}

// newSliderValues starts every displayed criterion at its current draft
// value. Criteria absent from the draft are not displayed.
func newSliderValues(sess *service.Session) *sliderValues {
	d := sess.Draft()
	v := &sliderValues{initial: map[string]int{}, values: map[string]*int{}}
	for _, c := range sess.Criteria {
		cs, ok := d.Score(c.Name)
		if !ok {
			continue
		}
		start := skipValue
		if cs.HasScore() {
			start = cs.Value()
		}
		v.criteria = append(v.criteria, c)
		v.initial[c.Name] = start
		val := start
		v.values[c.Name] = &val
	}
	return v
}

// applyTo writes changed values into the session. Unchanged criteria are
// left alone so they are not marked as edited.
func (v *sliderValues) applyTo(ctx context.Context, sess *service.Session) error {
	for _, c := range v.criteria {
		val := *v.values[c.Name]
		if val == v.initial[c.Name] {
			continue
		}
		var score *int
		if val != skipValue {
			score = domain.IntPtr(val)
		}
		if err := sess.Apply(ctx, c.Name, score); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return nil
}

func sliderOptions(c domain.Criterion, scoreMax int) []huh.Option[int] {
	opts := make([]huh.Option[int], 0, 2*scoreMax+2)
	for s := -scoreMax; s <= scoreMax; s++ {
		label := fmt.Sprintf("%+3d  %s", s, formatter.RenderLeanBar(s, scoreMax, scoreMax))
		opts = append(opts, huh.NewOption(label, s))
	}
	if c.Optional {
		opts = append(opts, huh.NewOption("skip", skipValue))
	}
	return opts
}

// newSlidersForm builds one select per displayed criterion and a final
// confirmation. submit receives the contributor's choice.
func newSlidersForm(sess *service.Session, values *sliderValues, submit *bool) *huh.Form {
	scoreMax := domain.EncodingContinuous.ScoreMax()
	main := sess.Poll.MainCriterionName()

	fields := make([]huh.Field, 0, len(values.criteria)+1)
	for _, c := range values.criteria {
		title := c.Label
		if title == "" {
			title = c.Name
		}
		if c.Name == main {
			title += " ★"
		}
		fields = append(fields, huh.NewSelect[int]().
			Title(title).
			Description(fmt.Sprintf("%s ◀ ─── ▶ %s", sess.EntityA, sess.EntityB)).
			Options(sliderOptions(c, scoreMax)...).
			Value(values.values[c.Name]))
	}
	description, negative := "Otherwise the scores are kept locally.", "Keep"
	if sess.Existing() != nil {
		description, negative = "This pair was already submitted; otherwise the edits are discarded.", "Discard"
	}
	fields = append(fields, huh.NewConfirm().
		Title("Submit this comparison now?").
		Description(description).
		Affirmative("Submit").
		Negative(negative).
		Value(submit))

	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(comparoHuhTheme()).WithShowHelp(true)
}

// comparoHuhTheme styles huh forms with the formatter palette.
func comparoHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}
