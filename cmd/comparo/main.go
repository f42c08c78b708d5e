package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/tournesol-app/comparo/internal/api"
	"github.com/tournesol-app/comparo/internal/cli"
	"github.com/tournesol-app/comparo/internal/db"
	"github.com/tournesol-app/comparo/internal/draft"
	"github.com/tournesol-app/comparo/internal/pending"
	"github.com/tournesol-app/comparo/internal/repository"
	"github.com/tournesol-app/comparo/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file in the working directory is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading .env: %w", err)
	}

	// Determine DB path: env var or default ~/.comparo/comparo.db
	dbPath := os.Getenv("COMPARO_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".comparo", "comparo.db")
	}

	database, err := db.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	apiCfg := api.LoadConfig()
	var apiObserver api.Observer = api.NoopObserver{}
	var useCaseObservers []service.UseCaseObserver
	if apiCfg.LogCalls {
		apiObserver = api.NewLogObserver(os.Stderr)
		useCaseObservers = append(useCaseObservers, service.NewSlogUseCaseObserver(logger))
	}
	client := api.NewClient(apiCfg, apiObserver)

	// Wire the pending store and the submission path
	uow := db.NewSQLiteUnitOfWork(database)
	store := pending.NewStore(repository.NewSQLitePendingRatingRepo(database, uow))
	editor := draft.NewEditor(store)
	submissions := service.NewSubmissionService(client, client, store, logger, useCaseObservers...)
	settings := service.NewLayeredSettings(repository.NewSQLitePreferencesRepo(database), client)

	// Terminals give fine pointer control; COMPARO_FORCE_BUTTONS makes every
	// new comparison use the five buttons.
	forceButtons, _ := strconv.ParseBool(os.Getenv("COMPARO_FORCE_BUTTONS"))
	newSessions := func(polls service.PollSource) *service.SessionService {
		return service.NewSessionService(service.SessionDeps{
			Polls:       polls,
			Settings:    settings,
			API:         client,
			Editor:      editor,
			Submissions: submissions,
			Pointer:     func() bool { return !forceButtons },
			Logger:      logger,
		}, useCaseObservers...)
	}

	defaultPoll := os.Getenv("COMPARO_POLL")
	if defaultPoll == "" {
		defaultPoll = "videos"
	}

	app := &cli.App{
		Sessions:    newSessions(client),
		Submissions: submissions,
		Pending:     store,
		Polls:       client,
		Settings:    settings,
		Logger:      logger,
		LogLevel:    level,
		DefaultPoll: defaultPoll,
		NewSessions: newSessions,
	}
	app.IsInteractive = func() bool {
		in := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		out := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		return in && out
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = cli.NewRootCmd(app).ExecuteContext(ctx)
	submissions.Wait()
	return err
}
