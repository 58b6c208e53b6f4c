package favourites

import (
	"errors"
	"fmt"
)

// FailureKind classifies persistence failures.
type FailureKind int

const (
	StoreLoadFailed FailureKind = iota + 1
	SaveFailed
	DeleteFailed
)

func (k FailureKind) String() string {
	switch k {
	case StoreLoadFailed:
		return "store_load_failed"
	case SaveFailed:
		return "save_failed"
	case DeleteFailed:
		return "delete_failed"
	default:
		return "unknown"
	}
}

var (
	// ErrMissingIdentifier is returned when toggling a film without an id.
	ErrMissingIdentifier = errors.New("favourites: film has no identifier")
	// ErrNotFavourite is returned by Remove when the film is not persisted.
	ErrNotFavourite = errors.New("favourites: film is not a favourite")
	// ErrClosed is returned once the store worker has stopped.
	ErrClosed = errors.New("favourites: store closed")
)

// PersistenceFailure reports a failed read or write of the favourites table.
type PersistenceFailure struct {
	Kind   FailureKind
	FilmID int64
	Err    error
}

func (f *PersistenceFailure) Error() string {
	if f.FilmID != 0 {
		return fmt.Sprintf("favourites: %s (film %d): %v", f.Kind, f.FilmID, f.Err)
	}
	return fmt.Sprintf("favourites: %s: %v", f.Kind, f.Err)
}

func (f *PersistenceFailure) Unwrap() error { return f.Err }

// IsKind reports whether err carries a PersistenceFailure of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var pf *PersistenceFailure
	return errors.As(err, &pf) && pf.Kind == kind
}
