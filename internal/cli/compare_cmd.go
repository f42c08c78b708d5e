package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/tournesol-app/comparo/internal/cli/formatter"
	"github.com/tournesol-app/comparo/internal/domain"
	"github.com/tournesol-app/comparo/internal/service"
)

func newCompareCmd(app *App, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare ENTITY_A ENTITY_B",
		Short: "Compare two entities",
		Long: "Compare two entities. In a terminal this opens the sliders or the\n" +
			"buttons depending on the comparison's scale; otherwise it prints the\n" +
			"current state of the comparison.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.interactive() {
				return runShow(cmd, app, flags, args[0], args[1])
			}
			ctx := cmd.Context()
			sess, err := app.Sessions.Open(ctx, flags.openRequest(args[0], args[1]))
			if err != nil {
				return err
			}
			defer closeSession(ctx, app, sess)
			if sess.Modality == domain.ModalityDiscrete {
				return runButtons(cmd, sess)
			}
			return runSliders(cmd, app, sess, false)
		},
	}

	cmd.AddCommand(
		newCompareShowCmd(app, flags),
		newCompareRateCmd(app, flags),
		newCompareSubmitCmd(app, flags),
		newCompareButtonsCmd(app, flags),
		newCompareSlidersCmd(app, flags),
	)
	return cmd
}

func newCompareShowCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show ENTITY_A ENTITY_B",
		Short: "Show the comparison of two entities, including unsubmitted scores",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, app, flags, args[0], args[1])
		},
	}
}

func runShow(cmd *cobra.Command, app *App, flags *globalFlags, entityA, entityB string) error {
	ctx := cmd.Context()
	sess, err := app.Sessions.Open(ctx, flags.openRequest(entityA, entityB))
	if err != nil {
		return err
	}
	defer closeSession(ctx, app, sess)

	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatComparison(comparisonView(ctx, app, sess)))
	return nil
}

// comparisonView describes a session for display. Scores seeded from the
// pending store are flagged when no server comparison exists.
func comparisonView(ctx context.Context, app *App, sess *service.Session) formatter.ComparisonView {
	d := sess.Draft()
	existing := sess.Existing()
	v := formatter.ComparisonView{
		Draft:         d,
		Criteria:      sess.Criteria,
		MainCriterion: sess.Poll.MainCriterionName(),
		Modality:      sess.Modality,
		Existing:      existing != nil,
	}
	if d == nil {
		d = &domain.ComparisonDraft{
			Poll: sess.Poll.Name, EntityA: sess.EntityA, EntityB: sess.EntityB,
			Encoding: sess.Modality.Encoding(),
		}
		v.Draft = d
	}
	if existing == nil && app.Pending != nil && sess.Modality == domain.ModalityContinuous {
		stored, err := app.Pending.GetAll(ctx, d.Poll, d.EntityA, d.EntityB, sess.Criteria)
		if err == nil && len(stored) > 0 {
			v.Pending = make(map[string]bool, len(stored))
			for name := range stored {
				v.Pending[name] = true
			}
		}
	}
	return v
}

// scoreEditFlags are the flags of commands that edit a continuous draft.
type scoreEditFlags struct {
	scores *scoresFlag
	skip   []string
}

func (f *scoreEditFlags) register(cmd *cobra.Command) {
	f.scores = newScoresFlag()
	cmd.Flags().VarP(f.scores, "score", "s", "Score a criterion, e.g. --score reliability=-4 (repeatable)")
	cmd.Flags().StringSliceVar(&f.skip, "skip", nil, "Skip an optional criterion (repeatable)")
}

// apply writes the flag values into the session's draft.
func (f *scoreEditFlags) apply(ctx context.Context, sess *service.Session) (int, error) {
	if sess.Modality == domain.ModalityDiscrete {
		return 0, fmt.Errorf("%s vs %s uses the five-button scale: %w (run `comparo compare buttons`)",
			sess.EntityA, sess.EntityB, service.ErrDiscreteSession)
	}
	n := 0
	for _, a := range f.scores.Assignments() {
		score := a.score
		if err := sess.Apply(ctx, a.criterion, &score); err != nil {
			return n, fmt.Errorf("%s: %w", a.criterion, err)
		}
		n++
	}
	for _, name := range f.skip {
		if err := sess.Apply(ctx, name, nil); err != nil {
			return n, fmt.Errorf("%s: %w", name, err)
		}
		n++
	}
	return n, nil
}

func newCompareRateCmd(app *App, flags *globalFlags) *cobra.Command {
	edit := &scoreEditFlags{}
	cmd := &cobra.Command{
		Use:   "rate ENTITY_A ENTITY_B --score CRITERION=SCORE...",
		Short: "Save scores locally without submitting them",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := app.Sessions.Open(ctx, flags.openRequest(args[0], args[1]))
			if err != nil {
				return err
			}
			if sess.Existing() != nil && sess.Modality == domain.ModalityContinuous {
				closeSession(ctx, app, sess)
				return fmt.Errorf("%s vs %s: %w (run `comparo compare submit %s %s --score ...` to replace it)",
					args[0], args[1], service.ErrAlreadySubmitted, args[0], args[1])
			}

			n, err := edit.apply(ctx, sess)
			if err != nil {
				closeSession(ctx, app, sess)
				return err
			}
			if err := sess.Close(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if n == 0 {
				fmt.Fprintln(out, formatter.Dim("Nothing to save."))
				return nil
			}
			fmt.Fprintf(out, "%s Saved %d score(s) for %s\n",
				formatter.StyleGreen.Render("✔"), n, formatter.Pair(args[0], args[1]))
			return nil
		},
	}
	edit.register(cmd)
	return cmd
}

func newCompareSubmitCmd(app *App, flags *globalFlags) *cobra.Command {
	edit := &scoreEditFlags{}
	cmd := &cobra.Command{
		Use:   "submit ENTITY_A ENTITY_B [--score CRITERION=SCORE...]",
		Short: "Submit the comparison, including locally saved scores",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := app.Sessions.Open(ctx, flags.openRequest(args[0], args[1]))
			if err != nil {
				return err
			}
			defer closeSession(ctx, app, sess)

			if _, err := edit.apply(ctx, sess); err != nil {
				return err
			}
			return submitAndReport(cmd, app, sess)
		},
	}
	edit.register(cmd)
	return cmd
}

func submitAndReport(cmd *cobra.Command, app *App, sess *service.Session) error {
	ctx := cmd.Context()
	stop := func() {}
	if app.interactive() {
		stop = formatter.StartSpinner(cmd.ErrOrStderr(), "Submitting…")
	}
	_, err := sess.Submit(ctx)
	stop()
	if err != nil {
		return submitError(err, sess.Existing() != nil)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Submitted\n", formatter.StyleGreen.Render("✔"))
	fmt.Fprint(out, formatter.FormatComparison(comparisonView(ctx, app, sess)))
	return nil
}

// submitError adds a hint for failures the contributor can act on. Scores
// are only kept locally for pairs the server does not have yet.
func submitError(err error, existing bool) error {
	var sub *domain.SubmissionError
	if !errors.As(err, &sub) {
		return err
	}
	if existing {
		return fmt.Errorf("%w (your edits were not saved; run the command again to retry)", err)
	}
	return fmt.Errorf("%w (your scores are kept locally; run the command again to retry)", err)
}

func newCompareButtonsCmd(app *App, flags *globalFlags) *cobra.Command {
	var tutorial bool
	cmd := &cobra.Command{
		Use:   "buttons ENTITY_A ENTITY_B",
		Short: "Answer criteria one at a time on the five-button scale",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.interactive() {
				return errors.New("the buttons need an interactive terminal")
			}
			ctx := cmd.Context()
			req := flags.openRequest(args[0], args[1])
			req.ForceDiscrete = true
			req.Tutorial = tutorial
			sess, err := app.Sessions.Open(ctx, req)
			if err != nil {
				return err
			}
			defer closeSession(ctx, app, sess)
			if sess.Modality != domain.ModalityDiscrete {
				return errors.New("this comparison was made with the sliders; run `comparo compare sliders`")
			}
			return runButtons(cmd, sess)
		},
	}
	cmd.Flags().BoolVar(&tutorial, "tutorial", false, "Stay on the first criterion")
	return cmd
}

func newCompareSlidersCmd(app *App, flags *globalFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "sliders ENTITY_A ENTITY_B",
		Short: "Rate every criterion on the continuous scale",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.interactive() {
				return errors.New("the sliders need an interactive terminal; use `comparo compare rate` instead")
			}
			ctx := cmd.Context()
			sess, err := app.Sessions.Open(ctx, flags.openRequest(args[0], args[1]))
			if err != nil {
				return err
			}
			defer closeSession(ctx, app, sess)
			if sess.Modality != domain.ModalityContinuous {
				return errors.New("this comparison was made with the buttons; run `comparo compare buttons`")
			}
			return runSliders(cmd, app, sess, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Also show optional criteria")
	return cmd
}

func runButtons(cmd *cobra.Command, sess *service.Session) error {
	model := newButtonsModel(cmd.Context(), sess)
	p := tea.NewProgram(model,
		tea.WithContext(cmd.Context()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithMouseCellMotion(),
	)
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(*buttonsModel); ok && m.err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), formatter.StyleRed.Render("last submission failed: "+m.err.Error()))
	}
	return nil
}

func runSliders(cmd *cobra.Command, app *App, sess *service.Session, all bool) error {
	ctx := cmd.Context()
	if all {
		if _, err := sess.ToggleOptional(ctx); err != nil {
			return err
		}
	}

	values := newSliderValues(sess)
	var submit bool
	form := newSlidersForm(sess, values, &submit).WithOutput(cmd.OutOrStdout())
	if err := form.RunWithContext(ctx); err != nil {
		return err
	}
	if err := values.applyTo(ctx, sess); err != nil {
		return err
	}
	if !submit {
		if sess.Existing() != nil {
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Edits discarded; this pair was already submitted."))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Scores saved locally."))
		return nil
	}
	return submitAndReport(cmd, app, sess)
}
