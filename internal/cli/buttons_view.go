package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tournesol-app/comparo/internal/cli/formatter"
	"github.com/tournesol-app/comparo/internal/cycle"
	"github.com/tournesol-app/comparo/internal/domain"
	"github.com/tournesol-app/comparo/internal/service"
)

// transitionDelay is how long a criterion stays on screen after an answer
// before the cycle moves on.
const transitionDelay = 225 * time.Millisecond

// wheelVelocity is the swipe velocity of one mouse wheel notch.
const wheelVelocity = 1.0

type buttonsKeyMap struct {
	Scores []key.Binding
	Up     key.Binding
	Down   key.Binding
	Quit   key.Binding
}

func defaultButtonsKeys() buttonsKeyMap {
	scores := make([]key.Binding, 5)
	for i := range scores {
		k := fmt.Sprint(i + 1)
		scores[i] = key.NewBinding(key.WithKeys(k), key.WithHelp(k, formatter.DiscreteLabel(i-2)))
	}
	return buttonsKeyMap{
		Scores: scores,
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// patchedMsg reports the outcome of a score key.
type patchedMsg struct {
	outcome cycle.Outcome
	err     error
}

// transitionDoneMsg ends the on-screen transition started under seq.
type transitionDoneMsg struct{ seq int }

// completedMsg reports the end of a move, including its submission.
type completedMsg struct{ err error }

// buttonsModel answers criteria one by one on the five-button scale.
type buttonsModel struct {
	ctx     context.Context
	sess    *service.Session
	ctrl    *cycle.Controller
	snap    cycle.Snapshot
	keys    buttonsKeyMap
	spinner spinner.Model

	// seq changes with every transition; stale ticks are ignored.
	seq      int
	moving   bool
	cleared  string
	err      error
	quitting bool
}

func newButtonsModel(ctx context.Context, sess *service.Session) *buttonsModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = formatter.StylePurple
	m := &buttonsModel{
		ctx:     ctx,
		sess:    sess,
		ctrl:    sess.Controller,
		keys:    defaultButtonsKeys(),
		spinner: sp,
	}
	m.snap = m.ctrl.Snapshot()
	return m
}

func (m *buttonsModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *buttonsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case patchedMsg:
		m.refresh()
		m.err = msg.err
		switch msg.outcome {
		case cycle.OutcomeAdvancing:
			return m, m.startTransition()
		case cycle.OutcomeCleared:
			if msg.err == nil {
				m.cleared = m.snap.Criterion.Name
			}
		}
		return m, nil

	case transitionDoneMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		ctrl, ctx := m.ctrl, m.ctx
		return m, func() tea.Msg {
			return completedMsg{err: ctrl.Complete(ctx)}
		}

	case completedMsg:
		m.moving = false
		m.refresh()
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleWheel(msg)
	}
	return m, nil
}

func (m *buttonsModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if m.moving || m.snap.State != cycle.StateIdle {
		return m, nil
	}

	for i, b := range m.keys.Scores {
		if key.Matches(msg, b) {
			score := i - 2
			m.cleared = ""
			ctrl, ctx := m.ctrl, m.ctx
			return m, func() tea.Msg {
				outcome, err := ctrl.PatchScore(ctx, score)
				return patchedMsg{outcome: outcome, err: err}
			}
		}
	}

	var dir domain.Direction
	switch {
	case key.Matches(msg, m.keys.Up):
		dir = domain.DirectionUp
	case key.Matches(msg, m.keys.Down):
		dir = domain.DirectionDown
	default:
		return m, nil
	}
	return m, m.moved(m.ctrl.MoveWithoutPatching(dir))
}

// handleWheel treats the mouse wheel as a vertical swipe.
func (m *buttonsModel) handleWheel(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || m.moving || m.snap.State != cycle.StateIdle {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return m, m.moved(m.ctrl.Swipe(-wheelVelocity))
	case tea.MouseButtonWheelDown:
		return m, m.moved(m.ctrl.Swipe(wheelVelocity))
	}
	return m, nil
}

func (m *buttonsModel) moved(ok bool) tea.Cmd {
	if !ok {
		return nil
	}
	m.cleared = ""
	m.refresh()
	return m.startTransition()
}

func (m *buttonsModel) startTransition() tea.Cmd {
	m.seq++
	m.moving = true
	seq := m.seq
	return tea.Tick(transitionDelay, func(time.Time) tea.Msg {
		return transitionDoneMsg{seq: seq}
	})
}

func (m *buttonsModel) refresh() {
	m.snap = m.ctrl.Snapshot()
}

func (m *buttonsModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	snap := m.snap
	criteria := m.ctrl.Criteria()

	b.WriteString(formatter.Header("Comparison"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %s\n\n", formatter.Pair(m.sess.EntityA, m.sess.EntityB), formatter.Dim("("+m.sess.Poll.Name+")"))

	label := snap.Criterion.Label
	if label == "" {
		label = snap.Criterion.Name
	}
	if snap.Criterion.Name == m.sess.Poll.MainCriterionName() {
		label += formatter.StyleHeader.Render(" ★")
	}
	fmt.Fprintf(&b, "%s %s\n", formatter.Dim(fmt.Sprintf("[%d/%d]", snap.Position+1, len(criteria))), formatter.Bold(label))

	current, rated := snap.Comparison.Score(snap.Criterion.Name)
	fmt.Fprintf(&b, "%s %s\n\n", formatter.Dim("current:"), formatter.FormatScore(current, rated))

	selected := 99
	switch {
	case snap.Staged != nil:
		selected = *snap.Staged
	case rated && current.HasScore():
		selected = current.Value()
	}
	buttons := make([]string, 0, 5)
	for i := range m.keys.Scores {
		score := i - 2
		text := fmt.Sprintf("[%d %s]", i+1, formatter.DiscreteLabel(score))
		if score == selected {
			text = formatter.StyleHeader.Render(text)
		} else {
			text = formatter.StyleFg.Render(text)
		}
		buttons = append(buttons, text)
	}
	b.WriteString("  " + strings.Join(buttons, "  ") + "\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

func (m *buttonsModel) statusLine() string {
	switch {
	case m.snap.State == cycle.StateSubmitting || (m.moving && m.snap.Staged != nil):
		return m.spinner.View() + " " + formatter.Dim("Submitting…")
	case m.err != nil:
		return formatter.StyleRed.Render("✖ " + m.err.Error())
	case m.cleared != "":
		return formatter.StyleYellow.Render("○ Cleared " + m.cleared)
	case m.snap.Looped:
		return formatter.StyleGreen.Render("✔ All criteria answered")
	case m.snap.NavigationDisabled && m.snap.Criterion.Name == m.sess.Poll.MainCriterionName():
		return formatter.Dim("Answer this criterion to unlock the others.")
	default:
		return ""
	}
}

func (m *buttonsModel) helpLine() string {
	bindings := []key.Binding{m.keys.Scores[0], m.keys.Scores[4], m.keys.Up, m.keys.Down, m.keys.Quit}
	hints := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		hints = append(hints, formatter.Dim(kb.Help().Key+": "+kb.Help().Desc))
	}
	return strings.Join(hints, "  ")
}
