// Package favourites owns the persisted favourite set. Every mutation runs on
// a single worker goroutine in arrival order and is followed by a re-read and
// a publish of an immutable, versioned snapshot.
package favourites

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/film-favourites/internal/domain"
	"github.com/Clark-Hu/film-favourites/internal/metrics"
)

// Backend is the persistence the store drives. repository.FavouritesRepository
// satisfies it.
type Backend interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]domain.FavouriteRecord, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Insert(ctx context.Context, rec domain.FavouriteRecord) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Action describes the mutation a toggle performed.
type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
)

// ToggleResult is returned to the caller once the worker has published the
// snapshot that follows its mutation attempt.
type ToggleResult struct {
	RequestID string
	FilmID    int64
	Action    Action
	Set       domain.FavouriteSet
}

const (
	requestQueueSize = 64
	failureQueueSize = 16
)

type requestKind int

const (
	kindToggle requestKind = iota
	kindRemove
)

type toggleRequest struct {
	id    string
	kind  requestKind
	film  domain.Film
	reply chan toggleReply
}

type toggleReply struct {
	result ToggleResult
	err    error
}

// Store serializes favourite mutations and fans snapshots out to subscribers.
type Store struct {
	backend Backend
	logger  zerolog.Logger
	metrics metrics.Recorder

	requests chan toggleRequest
	failures chan error
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.RWMutex
	current domain.FavouriteSet
	version uint64

	subsMu  sync.Mutex
	subs    map[int]chan domain.FavouriteSet
	nextSub int
}

// New constructs a Store. Call Open before serving and Run to start the worker.
func New(backend Backend, logger zerolog.Logger, rec metrics.Recorder) *Store {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Store{
		backend:  backend,
		logger:   logger,
		metrics:  rec,
		requests: make(chan toggleRequest, requestQueueSize),
		failures: make(chan error, failureQueueSize),
		done:     make(chan struct{}),
		current:  domain.NewFavouriteSet(0, nil),
		subs:     make(map[int]chan domain.FavouriteSet),
	}
}

// Open loads the persisted favourites and publishes the first snapshot.
func (s *Store) Open(ctx context.Context) error {
	if err := s.backend.Ping(ctx); err != nil {
		return s.fail(&PersistenceFailure{Kind: StoreLoadFailed, Err: err})
	}
	records, err := s.backend.List(ctx)
	if err != nil {
		return s.fail(&PersistenceFailure{Kind: StoreLoadFailed, Err: err})
	}
	set := s.publish(records)
	s.logger.Info().Int("favourites", set.Len()).Uint64("version", set.Version()).Msg("favourites loaded")
	return nil
}

// Run processes toggle requests until ctx is cancelled.
func (s *Store) Run(ctx context.Context) error {
	defer s.stopOnce.Do(func() { close(s.done) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.requests:
			res, err := s.handle(ctx, req)
			req.reply <- toggleReply{result: res, err: err}
		}
	}
}

// Toggle removes the film from the favourites when present and adds it
// otherwise. It returns after the resulting snapshot was published; on a
// write failure the returned result still carries that snapshot.
//
// A request already queued is processed even when ctx ends first.
func (s *Store) Toggle(ctx context.Context, film domain.Film) (ToggleResult, error) {
	if _, ok := domain.FavouriteKey(film); !ok {
		s.metrics.IncToggles("none", "missing_id")
		return ToggleResult{}, ErrMissingIdentifier
	}
	return s.submit(ctx, kindToggle, film.Clone())
}

// Remove deletes id from the favourites. Presence is decided on the worker,
// so concurrent removes of the same id delete it once and the rest fail with
// ErrNotFavourite without publishing.
func (s *Store) Remove(ctx context.Context, id int64) (ToggleResult, error) {
	return s.submit(ctx, kindRemove, domain.Film{ID: domain.IntPtr(id)})
}

func (s *Store) submit(ctx context.Context, kind requestKind, film domain.Film) (ToggleResult, error) {
	req := toggleRequest{
		id:    uuid.NewString(),
		kind:  kind,
		film:  film,
		reply: make(chan toggleReply, 1),
	}
	select {
	case s.requests <- req:
	case <-s.done:
		return ToggleResult{}, ErrClosed
	case <-ctx.Done():
		return ToggleResult{}, ctx.Err()
	}
	select {
	case rep := <-req.reply:
		return rep.result, rep.err
	case <-s.done:
		return ToggleResult{}, ErrClosed
	case <-ctx.Done():
		return ToggleResult{}, ctx.Err()
	}
}

// ListFavourites reads the persisted rows directly. The returned set carries
// the version of the latest published snapshot.
func (s *Store) ListFavourites(ctx context.Context) (domain.FavouriteSet, error) {
	records, err := s.backend.List(ctx)
	if err != nil {
		return domain.FavouriteSet{}, s.fail(&PersistenceFailure{Kind: StoreLoadFailed, Err: err})
	}
	return domain.NewFavouriteSet(s.Current().Version(), records), nil
}

// Current returns the latest published snapshot.
func (s *Store) Current() domain.FavouriteSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers for snapshots. The channel holds at most one pending
// snapshot; a slow reader only ever sees the newest. The current snapshot is
// delivered immediately.
func (s *Store) Subscribe() (<-chan domain.FavouriteSet, func()) {
	ch := make(chan domain.FavouriteSet, 1)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.Current()
	s.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			close(ch)
			s.subsMu.Unlock()
		})
	}
	return ch, cancel
}

// Failures exposes persistence failures as they happen. Failures are dropped
// when nobody drains the channel.
func (s *Store) Failures() <-chan error {
	return s.failures
}

func (s *Store) handle(ctx context.Context, req toggleRequest) (ToggleResult, error) {
	id, _ := domain.FavouriteKey(req.film)
	log := s.logger.With().Str("request_id", req.id).Int64("film_id", id).Logger()

	res := ToggleResult{RequestID: req.id, FilmID: id, Action: ActionAdded}
	present := s.exists(ctx, id)
	if req.kind == kindRemove && !present {
		res.Action = ActionRemoved
		res.Set = s.Current()
		s.metrics.IncToggles(string(res.Action), "absent")
		log.Debug().Msg("remove of absent favourite ignored")
		return res, ErrNotFavourite
	}

	var writeErr error
	if present {
		res.Action = ActionRemoved
		if _, err := s.backend.Delete(ctx, id); err != nil {
			writeErr = s.fail(&PersistenceFailure{Kind: DeleteFailed, FilmID: id, Err: err})
		}
	} else {
		rec, _ := domain.RecordFromFilm(req.film)
		if _, err := s.backend.Insert(ctx, rec); err != nil {
			writeErr = s.fail(&PersistenceFailure{Kind: SaveFailed, FilmID: id, Err: err})
		}
	}

	records, err := s.backend.List(ctx)
	if err != nil {
		_ = s.fail(&PersistenceFailure{Kind: StoreLoadFailed, FilmID: id, Err: err})
		records = s.Current().Records()
	}
	res.Set = s.publish(records)

	outcome := "ok"
	if writeErr != nil {
		outcome = "failed"
	}
	s.metrics.IncToggles(string(res.Action), outcome)
	log.Debug().
		Str("action", string(res.Action)).
		Str("outcome", outcome).
		Uint64("version", res.Set.Version()).
		Msg("toggle processed")
	return res, writeErr
}

// exists asks the backend for membership and falls back to the published
// snapshot when that read fails.
func (s *Store) exists(ctx context.Context, id int64) bool {
	ok, err := s.backend.Exists(ctx, id)
	if err != nil {
		_ = s.fail(&PersistenceFailure{Kind: StoreLoadFailed, FilmID: id, Err: err})
		return s.Current().Contains(id)
	}
	return ok
}

func (s *Store) publish(records []domain.FavouriteRecord) domain.FavouriteSet {
	s.mu.Lock()
	s.version++
	set := domain.NewFavouriteSet(s.version, records)
	s.current = set
	s.mu.Unlock()

	s.metrics.SetFavouritesTotal(set.Len())

	s.subsMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- set:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- set
		}
	}
	s.subsMu.Unlock()
	return set
}

func (s *Store) fail(f *PersistenceFailure) error {
	ev := s.logger.Error().Err(f.Err).Str("kind", f.Kind.String())
	if f.FilmID != 0 {
		ev = ev.Int64("film_id", f.FilmID)
	}
	ev.Msg("favourites persistence failure")
	select {
	case s.failures <- f:
	default:
	}
	return f
}
