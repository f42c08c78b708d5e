package service

import (
	"io"
	"log/slog"
	"time"
)

const (
	testWait = 2 * time.Second
	testTick = 5 * time.Millisecond
)

func newDebugLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
