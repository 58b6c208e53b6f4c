// Package favsync keeps every held film list flagged with the current
// favourite membership. Lists are rebuilt from immutable snapshots published
// by the favourites store; toggles are forwarded and never flip a flag
// locally.
package favsync

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/film-favourites/internal/domain"
	"github.com/Clark-Hu/film-favourites/internal/favourites"
	"github.com/Clark-Hu/film-favourites/internal/metrics"
)

// Well-known list names.
const (
	ListPopular    = "popular"
	ListFavourites = "favourites"
)

// RowState is the favourite state of one film row.
type RowState int

const (
	StateUnknown RowState = iota
	StateNotFavourite
	StateFavourite
)

func (s RowState) String() string {
	switch s {
	case StateNotFavourite:
		return "not_favourite"
	case StateFavourite:
		return "favourite"
	default:
		return "unknown"
	}
}

// Toggler forwards a toggle to persistence. *favourites.Store satisfies it.
type Toggler interface {
	Toggle(ctx context.Context, film domain.Film) (favourites.ToggleResult, error)
	Remove(ctx context.Context, id int64) (favourites.ToggleResult, error)
}

// Synchronizer holds annotated film lists.
type Synchronizer struct {
	store   Toggler
	logger  zerolog.Logger
	metrics metrics.Recorder

	mu       sync.RWMutex
	set      domain.FavouriteSet
	observed bool
	raw      map[string][]domain.Film
	views    map[string][]domain.Film
	settled  chan struct{}

	refresh chan struct{}
}

// New constructs a Synchronizer that forwards toggles to store.
func New(store Toggler, logger zerolog.Logger, rec metrics.Recorder) *Synchronizer {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Synchronizer{
		store:   store,
		logger:  logger,
		metrics: rec,
		set:     domain.NewFavouriteSet(0, nil),
		raw:     make(map[string][]domain.Film),
		views:   make(map[string][]domain.Film),
		settled: make(chan struct{}),
		refresh: make(chan struct{}, 1),
	}
}

// Run applies snapshots from updates until ctx is cancelled or updates closes.
func (s *Synchronizer) Run(ctx context.Context, updates <-chan domain.FavouriteSet) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case set, ok := <-updates:
			if !ok {
				return nil
			}
			s.OnFavouriteSetChanged(set)
		}
	}
}

// OnFavouriteSetChanged rebuilds every held list from set and raises a
// refresh signal. Snapshots not newer than the last observed one are dropped
// and false is returned.
func (s *Synchronizer) OnFavouriteSetChanged(set domain.FavouriteSet) bool {
	s.mu.Lock()
	if s.observed && set.Version() <= s.set.Version() {
		current := s.set.Version()
		s.mu.Unlock()
		s.metrics.IncStaleResponses("favourite_set")
		s.logger.Debug().Uint64("version", set.Version()).Uint64("current", current).Msg("dropping stale favourite set")
		return false
	}
	s.set = set
	s.observed = true
	for name, films := range s.raw {
		s.views[name] = annotate(set, films)
	}
	s.views[ListFavourites] = favouriteFilms(set)
	close(s.settled)
	s.settled = make(chan struct{})
	s.mu.Unlock()

	s.logger.Debug().Uint64("version", set.Version()).Int("favourites", set.Len()).Msg("favourite set applied")
	s.signalRefresh()
	return true
}

// OnCatalogPage stores films as list, dropping repeated identifiers, and
// returns the annotated view.
func (s *Synchronizer) OnCatalogPage(list string, films []domain.Film) []domain.Film {
	page := dedupe(films)

	s.mu.Lock()
	s.raw[list] = page
	view := annotate(s.set, page)
	s.views[list] = view
	s.mu.Unlock()

	s.signalRefresh()
	return cloneFilms(view)
}

// Annotate flags films against the current snapshot without holding them.
func (s *Synchronizer) Annotate(films []domain.Film) []domain.Film {
	s.mu.RLock()
	set := s.set
	s.mu.RUnlock()
	return annotate(set, films)
}

// Toggle forwards film to the store and returns the version of the snapshot
// published for it. A version is returned on persistence failure as well,
// since the store re-publishes after every attempt.
func (s *Synchronizer) Toggle(ctx context.Context, film domain.Film) (uint64, error) {
	res, err := s.store.Toggle(ctx, film)
	return res.Set.Version(), err
}

// Remove forwards a removal of id to the store. favourites.ErrNotFavourite
// is returned unchanged when id was not persisted.
func (s *Synchronizer) Remove(ctx context.Context, id int64) (uint64, error) {
	res, err := s.store.Remove(ctx, id)
	return res.Set.Version(), err
}

// WaitSettled blocks until a snapshot with at least version has been applied.
func (s *Synchronizer) WaitSettled(ctx context.Context, version uint64) error {
	for {
		s.mu.RLock()
		if s.observed && s.set.Version() >= version {
			s.mu.RUnlock()
			return nil
		}
		ch := s.settled
		s.mu.RUnlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// View returns a copy of the annotated list and whether it is held.
func (s *Synchronizer) View(list string) ([]domain.Film, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view, ok := s.views[list]
	if !ok {
		return nil, false
	}
	return cloneFilms(view), true
}

// Find looks id up in the held lists. Catalog lists are searched in name
// order before the favourites list.
func (s *Synchronizer) Find(id int64) (domain.Film, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.views))
	for name := range s.views {
		if name != ListFavourites {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	names = append(names, ListFavourites)

	for _, name := range names {
		for _, f := range s.views[name] {
			if key, ok := domain.FavouriteKey(f); ok && key == id {
				return f.Clone(), true
			}
		}
	}
	return domain.Film{}, false
}

// State reports the row state of id.
func (s *Synchronizer) State(id int64) RowState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case !s.observed:
		return StateUnknown
	case s.set.Contains(id):
		return StateFavourite
	default:
		return StateNotFavourite
	}
}

// Set returns the last applied snapshot.
func (s *Synchronizer) Set() domain.FavouriteSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

// Refreshes signals that views changed. Signals coalesce while unread.
func (s *Synchronizer) Refreshes() <-chan struct{} {
	return s.refresh
}

func (s *Synchronizer) signalRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

func annotate(set domain.FavouriteSet, films []domain.Film) []domain.Film {
	out := make([]domain.Film, len(films))
	for i, f := range films {
		c := f.Clone()
		c.IsFavourite = set.ContainsFilm(c)
		out[i] = c
	}
	return out
}

func favouriteFilms(set domain.FavouriteSet) []domain.Film {
	records := set.Records()
	out := make([]domain.Film, len(records))
	for i, rec := range records {
		out[i] = rec.Film()
	}
	return out
}

func dedupe(films []domain.Film) []domain.Film {
	seen := make(map[int64]struct{}, len(films))
	out := make([]domain.Film, 0, len(films))
	for _, f := range films {
		if id, ok := domain.FavouriteKey(f); ok {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		out = append(out, f.Clone())
	}
	return out
}

func cloneFilms(films []domain.Film) []domain.Film {
	out := make([]domain.Film, len(films))
	for i, f := range films {
		out[i] = f.Clone()
	}
	return out
}
