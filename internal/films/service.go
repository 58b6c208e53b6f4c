// Package films is the headless view model: it loads catalog pages and
// details, keeps them annotated through the synchronizer and turns user
// actions into favourite toggles.
package films

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/film-favourites/internal/catalog"
	"github.com/Clark-Hu/film-favourites/internal/domain"
	"github.com/Clark-Hu/film-favourites/internal/favourites"
	"github.com/Clark-Hu/film-favourites/internal/favsync"
	"github.com/Clark-Hu/film-favourites/internal/metrics"
)

// ErrFilmNotFound is returned when an id is not held in any list.
var ErrFilmNotFound = errors.New("films: film not found")

const popularKey = "popular"

// Service coordinates catalog fetches with favourite state.
type Service struct {
	catalog catalog.Client
	sync    *favsync.Synchronizer
	seq     *favsync.Sequencer
	logger  zerolog.Logger
	metrics metrics.Recorder

	mu      sync.RWMutex
	loaded  bool
	page    domain.FilmPage
	details map[int64]domain.FilmDetails
}

// NewService wires a Service.
func NewService(client catalog.Client, syncer *favsync.Synchronizer, seq *favsync.Sequencer, logger zerolog.Logger, rec metrics.Recorder) *Service {
	if seq == nil {
		seq = favsync.NewSequencer()
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Service{
		catalog: client,
		sync:    syncer,
		seq:     seq,
		logger:  logger,
		metrics: rec,
		details: make(map[int64]domain.FilmDetails),
	}
}

// RefreshPopular fetches the first popular page and returns the annotated
// list. A response overtaken by a newer refresh is discarded and the newer
// list is returned instead.
func (s *Service) RefreshPopular(ctx context.Context) (domain.FilmPage, error) {
	seq := s.seq.Next(popularKey)
	page, err := s.catalog.FetchPage(ctx)
	if err != nil {
		return domain.FilmPage{}, err
	}

	var view []domain.Film
	err = s.seq.Apply(popularKey, seq, func() {
		view = s.sync.OnCatalogPage(favsync.ListPopular, page.Results)
		s.mu.Lock()
		s.loaded = true
		s.page = domain.FilmPage{Page: page.Page, TotalPages: page.TotalPages, TotalResults: page.TotalResults}
		s.mu.Unlock()
	})
	if errors.Is(err, favsync.ErrStale) {
		s.metrics.IncStaleResponses(popularKey)
		s.logger.Debug().Uint64("seq", seq).Msg("discarding superseded popular page")
		if current, ok := s.Popular(); ok {
			return current, nil
		}
		page.Results = s.sync.Annotate(page.Results)
		return page, nil
	}
	page.Results = view
	return page, nil
}

// Popular returns the held popular page and whether one was ever loaded.
func (s *Service) Popular() (domain.FilmPage, bool) {
	s.mu.RLock()
	page, loaded := s.page, s.loaded
	s.mu.RUnlock()
	if !loaded {
		return domain.FilmPage{}, false
	}
	page.Results, _ = s.sync.View(favsync.ListPopular)
	return page, true
}

// Favourites returns the favourite films in insertion order.
func (s *Service) Favourites() []domain.Film {
	films, _ := s.sync.View(favsync.ListFavourites)
	if films == nil {
		return []domain.Film{}
	}
	return films
}

// Details fetches the detail record for id. Details carry no favourite flag;
// membership is reported separately by IsFavourite.
func (s *Service) Details(ctx context.Context, id int64) (domain.FilmDetails, error) {
	key := detailsKey(id)
	seq := s.seq.Next(key)
	details, err := s.catalog.FetchDetails(ctx, id)
	if err != nil {
		return domain.FilmDetails{}, err
	}

	err = s.seq.Apply(key, seq, func() {
		s.mu.Lock()
		s.details[id] = details
		s.mu.Unlock()
	})
	if errors.Is(err, favsync.ErrStale) {
		s.metrics.IncStaleResponses("details")
		s.mu.RLock()
		held, ok := s.details[id]
		s.mu.RUnlock()
		if ok {
			return held, nil
		}
	}
	return details, nil
}

// Toggle flips favourite membership of a held film and returns it once the
// resulting snapshot has been applied.
//
// Cancelling ctx does not cancel the toggle: once queued it is still
// persisted and published, so a caller that sees ctx.Err() may find the
// change applied.
func (s *Service) Toggle(ctx context.Context, id int64) (domain.Film, error) {
	film, ok := s.sync.Find(id)
	if !ok {
		return domain.Film{}, ErrFilmNotFound
	}

	version, err := s.sync.Toggle(ctx, film)
	if err = s.settle(ctx, version, err); err != nil {
		return domain.Film{}, err
	}

	if updated, ok := s.sync.Find(id); ok {
		return updated, nil
	}
	film.IsFavourite = s.sync.State(id) == favsync.StateFavourite
	return film, nil
}

// Remove drops id from the favourites. It fails with ErrFilmNotFound when
// the film is not persisted as a favourite. Like Toggle, it is not undone by
// cancelling ctx.
func (s *Service) Remove(ctx context.Context, id int64) error {
	version, err := s.sync.Remove(ctx, id)
	if errors.Is(err, favourites.ErrNotFavourite) {
		return ErrFilmNotFound
	}
	return s.settle(ctx, version, err)
}

// settle waits for version to be applied and keeps err when it is set.
func (s *Service) settle(ctx context.Context, version uint64, err error) error {
	if version > 0 {
		if waitErr := s.sync.WaitSettled(ctx, version); waitErr != nil && err == nil {
			err = fmt.Errorf("films: wait for favourite state: %w", waitErr)
		}
	}
	return err
}

// IsFavourite reports favourite membership of id.
func (s *Service) IsFavourite(id int64) bool {
	return s.sync.State(id) == favsync.StateFavourite
}

// State reports the row state of id.
func (s *Service) State(id int64) favsync.RowState {
	return s.sync.State(id)
}

func detailsKey(id int64) string {
	return "details:" + strconv.FormatInt(id, 10)
}
