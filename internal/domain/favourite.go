package domain

import (
	"sort"
	"time"
)

// FavouriteRecord is a persisted favourite row.
type FavouriteRecord struct {
	ID          int64
	Title       string
	Overview    string
	PosterPath  string
	ReleaseDate string
	IsFavourite bool
	CreatedAt   time.Time
}

// FavouriteKey returns the canonical membership key of a film. Films without
// an identifier have no key and never match a favourite.
func FavouriteKey(f Film) (int64, bool) {
	if f.ID == nil {
		return 0, false
	}
	return *f.ID, true
}

// RecordFromFilm builds the row persisted when a film is marked favourite.
func RecordFromFilm(f Film) (FavouriteRecord, bool) {
	id, ok := FavouriteKey(f)
	if !ok {
		return FavouriteRecord{}, false
	}
	return FavouriteRecord{
		ID:          id,
		Title:       f.Title,
		Overview:    f.Overview,
		PosterPath:  f.PosterPath,
		ReleaseDate: f.ReleaseDate,
		IsFavourite: true,
	}, true
}

// Film converts a favourite row back into a film flagged as favourite.
func (r FavouriteRecord) Film() Film {
	id := r.ID
	return Film{
		ID:          &id,
		Title:       r.Title,
		Overview:    r.Overview,
		PosterPath:  r.PosterPath,
		ReleaseDate: r.ReleaseDate,
		IsFavourite: true,
	}
}

// FavouriteSet is an immutable snapshot of the favourite rows at a given
// version. Versions increase with every publish.
type FavouriteSet struct {
	version uint64
	records []FavouriteRecord
	index   map[int64]int
}

// NewFavouriteSet copies records into a new snapshot. Later duplicates of the
// same identifier are ignored.
func NewFavouriteSet(version uint64, records []FavouriteRecord) FavouriteSet {
	set := FavouriteSet{
		version: version,
		records: make([]FavouriteRecord, 0, len(records)),
		index:   make(map[int64]int, len(records)),
	}
	for _, rec := range records {
		if _, dup := set.index[rec.ID]; dup {
			continue
		}
		set.index[rec.ID] = len(set.records)
		set.records = append(set.records, rec)
	}
	return set
}

// Version reports the publish sequence number of the snapshot.
func (s FavouriteSet) Version() uint64 { return s.version }

// Len reports the number of favourites.
func (s FavouriteSet) Len() int { return len(s.records) }

// Contains reports favourite membership for id.
func (s FavouriteSet) Contains(id int64) bool {
	_, ok := s.index[id]
	return ok
}

// ContainsFilm applies FavouriteKey and reports membership.
func (s FavouriteSet) ContainsFilm(f Film) bool {
	id, ok := FavouriteKey(f)
	return ok && s.Contains(id)
}

// Get returns the record stored under id.
func (s FavouriteSet) Get(id int64) (FavouriteRecord, bool) {
	i, ok := s.index[id]
	if !ok {
		return FavouriteRecord{}, false
	}
	return s.records[i], true
}

// Records returns a copy of the rows in snapshot order.
func (s FavouriteSet) Records() []FavouriteRecord {
	return append([]FavouriteRecord(nil), s.records...)
}

// IDs returns the sorted identifiers in the set.
func (s FavouriteSet) IDs() []int64 {
	ids := make([]int64, 0, len(s.records))
	for _, rec := range s.records {
		ids = append(ids, rec.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
