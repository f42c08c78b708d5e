package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tournesol-app/comparo/internal/cli/formatter"
	"github.com/tournesol-app/comparo/internal/cycle"
	"github.com/tournesol-app/comparo/internal/domain"
)

func newPollCmd(app *App, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Inspect a poll and set comparison preferences",
	}
	cmd.AddCommand(
		newPollShowCmd(app, flags),
		newPollOrderCmd(app, flags),
		newPollAlwaysShowCmd(app, flags),
	)
	return cmd
}

func newPollShowCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List the poll's criteria in your order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			poll, err := app.Polls.GetPoll(ctx, flags.poll)
			if err != nil {
				return err
			}
			prefs := domain.Preferences{}
			if app.Settings != nil {
				p, err := app.Settings.GetPreferences(ctx, flags.poll)
				switch {
				case err == nil:
					prefs = *p
				case !errors.Is(err, domain.ErrNotFound) && app.Logger != nil:
					app.Logger.WarnContext(ctx, "preferences unavailable", "poll", flags.poll, "error", err)
				}
			}
			ordered := cycle.OrderCriteria(poll, prefs.CriteriaOrder)
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPoll(poll, ordered, prefs))
			return nil
		},
	}
}

// checkCriteria rejects names the poll does not define.
func checkCriteria(poll *domain.Poll, names []string, optionalOnly bool) error {
	for _, n := range names {
		c, ok := poll.Criterion(n)
		if !ok {
			return fmt.Errorf("%s: %w", n, domain.ErrUnknownCriterion)
		}
		if optionalOnly && !c.Optional {
			return fmt.Errorf("%s is not an optional criterion", n)
		}
	}
	return nil
}

func newPollOrderCmd(app *App, flags *globalFlags) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "order [CRITERION,...]",
		Short: "Save the order in which the buttons cycle through criteria",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Settings == nil {
				return errors.New("preferences are not available")
			}
			ctx := cmd.Context()
			order := []string{}
			if !reset {
				if len(args) == 0 {
					return errors.New("give a comma separated criteria list or --reset")
				}
				poll, err := app.Polls.GetPoll(ctx, flags.poll)
				if err != nil {
					return err
				}
				order = parseList(args[0])
				if err := checkCriteria(poll, order, false); err != nil {
					return err
				}
			}
			if err := app.Settings.SaveLocal(ctx, flags.poll, order, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Criteria order saved for %s\n", formatter.StyleGreen.Render("✔"), flags.poll)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Go back to the poll's order")
	return cmd
}

func newPollAlwaysShowCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "always-show [CRITERION,...]",
		Short: "Choose optional criteria shown on every new comparison",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Settings == nil {
				return errors.New("preferences are not available")
			}
			ctx := cmd.Context()
			names := []string{}
			if len(args) == 1 {
				names = parseList(args[0])
			}
			poll, err := app.Polls.GetPoll(ctx, flags.poll)
			if err != nil {
				return err
			}
			if err := checkCriteria(poll, names, true); err != nil {
				return err
			}
			if err := app.Settings.SaveLocal(ctx, flags.poll, nil, names); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d optional criteria always shown for %s\n",
				formatter.StyleGreen.Render("✔"), len(names), flags.poll)
			return nil
		},
	}
}
