package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"capsnap/internal/infrastructure/config"
	"capsnap/internal/infrastructure/container"
	"capsnap/internal/infrastructure/logger"
	"capsnap/internal/infrastructure/scheduler"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("load .env failed")
	}

	configPath := config.Path()
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", configPath).Msg("load config failed")
	}

	closer := logger.Setup(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer closer.Close()

	if cfg.App.Schedule != "" {
		if err := scheduler.Validate(cfg.App.Schedule); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.App.Schedule).Msg("invalid schedule")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, configPath); err != nil {
		log.Error().Err(err).Msg("capsnap exited")
		_ = closer.Close()
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, configPath string) error {
	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	log.Info().
		Str("config", configPath).
		Str("driver", cfg.Store.Driver).
		Str("source", cfg.Symbols.Source).
		Str("output", c.Sink().Name()).
		Str("schedule", cfg.App.Schedule).
		Msg("capsnap started")

	// one pass and exit
	if cfg.App.Schedule == "" {
		_, err := c.Batch().Run(ctx)
		return err
	}

	pass := func(ctx context.Context) {
		if _, err := c.Batch().Run(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled run failed")
		}
	}

	r := scheduler.New(ctx)
	if err := r.Add(cfg.App.Schedule, pass); err != nil {
		return err
	}
	if cfg.App.RunOnStart {
		pass(ctx)
	}
	r.Run()
	return nil
}
