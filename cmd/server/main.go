package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Clark-Hu/film-favourites/internal/config"
	"github.com/Clark-Hu/film-favourites/internal/di"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	app, cleanup, err := di.InitApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init app")
	}
	defer cleanup()

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error().Err(err).Msg("service error")
		cleanup()
		os.Exit(1)
	}
}
