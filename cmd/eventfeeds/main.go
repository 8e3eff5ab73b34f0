package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caymran/eventfeeds/internal/app"
	"github.com/caymran/eventfeeds/internal/config"
	"github.com/caymran/eventfeeds/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.Named("main")

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Run(ctx); err != nil {
		log.Error(ctx, "run failed", logger.Error(err))
		return err
	}
	return nil
}
