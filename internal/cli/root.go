package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/tournesol-app/comparo/internal/pending"
	"github.com/tournesol-app/comparo/internal/pollconfig"
	"github.com/tournesol-app/comparo/internal/service"
)

// App holds the services used by CLI commands.
type App struct {
	Sessions    *service.SessionService
	Submissions *service.SubmissionService
	Pending     pending.Store
	Polls       service.PollSource
	Settings    *service.LayeredSettings
	Logger      *slog.Logger

	// LogLevel is raised to debug by --verbose. May be nil.
	LogLevel *slog.LevelVar

	DefaultPoll string

	// IsInteractive reports whether stdin and stdout are terminals.
	IsInteractive func() bool

	// NewSessions rebuilds the session service around a different poll
	// source. Set by main; used by --poll-file.
	NewSessions func(polls service.PollSource) *service.SessionService

	Now func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	poll     string
	pollFile string
	buttons  bool
	verbose  bool
}

// NewRootCmd creates the top-level "comparo" command.
func NewRootCmd(app *App) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "comparo",
		Short:         "Compare entities criterion by criterion and submit the result",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.verbose && app.LogLevel != nil {
				app.LogLevel.Set(slog.LevelDebug)
			}
			if flags.pollFile == "" {
				return nil
			}
			f, err := pollconfig.Load(flags.pollFile)
			if err != nil {
				return fmt.Errorf("loading poll file: %w", err)
			}
			app.Polls = pollconfig.NewSource(f)
			if app.NewSessions != nil {
				app.Sessions = app.NewSessions(app.Polls)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.poll, "poll", app.DefaultPoll, "Poll to compare in")
	pf.StringVar(&flags.pollFile, "poll-file", "", "Read poll definitions from a YAML file instead of the API")
	pf.BoolVar(&flags.buttons, "buttons", false, "Use the five-button scale for new comparisons")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newCompareCmd(app, flags),
		newPendingCmd(app, flags),
		newPollCmd(app, flags),
	)
	return root
}

// openRequest builds the session request shared by compare subcommands.
func (f *globalFlags) openRequest(entityA, entityB string) service.OpenRequest {
	return service.OpenRequest{
		Poll:          f.poll,
		EntityA:       entityA,
		EntityB:       entityB,
		ForceDiscrete: f.buttons,
	}
}

// closeSession ends a session, logging rather than failing on a late error.
// Dropped edits of a submitted pair are reported by the commands themselves.
func closeSession(ctx context.Context, app *App, sess *service.Session) {
	err := sess.Close(ctx)
	if errors.Is(err, service.ErrAlreadySubmitted) {
		return
	}
	if err != nil && app.Logger != nil {
		app.Logger.WarnContext(ctx, "closing session", "session_id", sess.ID, "error", err)
	}
}
