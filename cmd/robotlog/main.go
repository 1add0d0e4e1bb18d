package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/team4028/robot-telemetry/cmd/robotlog/app"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.New(ctx, os.Stdout, os.Stderr).Run(os.Args); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
