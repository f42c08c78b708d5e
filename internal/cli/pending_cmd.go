package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tournesol-app/comparo/internal/cli/formatter"
)

func newPendingCmd(app *App, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Manage scores saved locally but not submitted",
	}
	cmd.AddCommand(
		newPendingListCmd(app, flags),
		newPendingClearCmd(app, flags),
		newPendingResetCmd(app),
	)
	return cmd
}

func newPendingListCmd(app *App, flags *globalFlags) *cobra.Command {
	var allPolls bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List unsubmitted scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ratings, err := app.Pending.List(cmd.Context())
			if err != nil {
				return err
			}
			if !allPolls {
				kept := ratings[:0]
				for _, r := range ratings {
					if r.Poll == flags.poll {
						kept = append(kept, r)
					}
				}
				ratings = kept
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPending(ratings, app.now()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&allPolls, "all-polls", false, "List scores of every poll")
	return cmd
}

func newPendingClearCmd(app *App, flags *globalFlags) *cobra.Command {
	var criterion string
	cmd := &cobra.Command{
		Use:   "clear ENTITY_A ENTITY_B",
		Short: "Forget the unsubmitted scores of a pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var err error
			if criterion != "" {
				err = app.Pending.Clear(ctx, flags.poll, args[0], args[1], criterion)
			} else {
				err = app.Pending.ClearPair(ctx, flags.poll, args[0], args[1])
			}
			if err != nil {
				return err
			}
			what := "all criteria"
			if criterion != "" {
				what = criterion
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Cleared %s of %s\n",
				formatter.StyleGreen.Render("✔"), what, formatter.Pair(args[0], args[1]))
			return nil
		},
	}
	cmd.Flags().StringVar(&criterion, "criterion", "", "Only clear this criterion")
	return cmd
}

func newPendingResetCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget every unsubmitted score, for example when logging out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete every unsubmitted score without --yes")
			}
			if err := app.Pending.ResetAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Unsubmitted scores deleted\n", formatter.StyleGreen.Render("✔"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}
