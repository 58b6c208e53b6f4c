package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/film-favourites/internal/favourites"
	"github.com/Clark-Hu/film-favourites/internal/favsync"
	httpserver "github.com/Clark-Hu/film-favourites/internal/http"
)

// App owns the long-running parts of the service.
type App struct {
	Logger     zerolog.Logger
	Favourites *favourites.Store
	Sync       *favsync.Synchronizer
	Server     *httpserver.Server
}

func NewApp(logger zerolog.Logger, favs *favourites.Store, syncer *favsync.Synchronizer, server *httpserver.Server) *App {
	return &App{
		Logger:     logger,
		Favourites: favs,
		Sync:       syncer,
		Server:     server,
	}
}

// Run loads the favourites and runs the store worker, the synchronizer and
// the HTTP server until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.Favourites.Open(ctx); err != nil {
		return fmt.Errorf("open favourites: %w", err)
	}

	updates, unsubscribe := a.Favourites.Subscribe()
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Favourites.Run(gctx) })
	g.Go(func() error { return a.Sync.Run(gctx, updates) })
	g.Go(func() error { return a.Server.Start(gctx) })
	g.Go(func() error {
		a.watch(gctx)
		return nil
	})

	a.Logger.Info().Msg("service started")
	err := g.Wait()
	a.Logger.Info().Err(err).Msg("service stopped")
	return err
}

func (a *App) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-a.Favourites.Failures():
			a.Logger.Debug().Err(err).Msg("favourites failure observed")
		case <-a.Sync.Refreshes():
			set := a.Sync.Set()
			a.Logger.Debug().Uint64("version", set.Version()).Int("favourites", set.Len()).Msg("views refreshed")
		}
	}
}
