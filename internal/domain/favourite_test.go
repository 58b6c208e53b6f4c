package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavouriteKey_MissingIdentifier(t *testing.T) {
	_, ok := FavouriteKey(Film{Title: "No ID"})
	assert.False(t, ok)

	id, ok := FavouriteKey(Film{ID: IntPtr(7), Title: "Seven"})
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestFavouriteSet_MembershipIgnoresTitle(t *testing.T) {
	set := NewFavouriteSet(1, []FavouriteRecord{{ID: 1, Title: "A"}})

	assert.True(t, set.ContainsFilm(Film{ID: IntPtr(1), Title: "Renamed"}))
	assert.False(t, set.ContainsFilm(Film{ID: IntPtr(2), Title: "A"}))
	assert.False(t, set.ContainsFilm(Film{Title: "A"}))
}

func TestNewFavouriteSet_DropsDuplicateIDs(t *testing.T) {
	set := NewFavouriteSet(3, []FavouriteRecord{
		{ID: 2, Title: "first"},
		{ID: 1, Title: "one"},
		{ID: 2, Title: "second"},
	})

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, uint64(3), set.Version())
	rec, ok := set.Get(2)
	require.True(t, ok)
	assert.Equal(t, "first", rec.Title)
	assert.Equal(t, []int64{1, 2}, set.IDs())
}

func TestFavouriteSet_RecordsIsACopy(t *testing.T) {
	set := NewFavouriteSet(1, []FavouriteRecord{{ID: 1, Title: "A"}})
	records := set.Records()
	records[0].Title = "mutated"

	rec, _ := set.Get(1)
	assert.Equal(t, "A", rec.Title)
}

func TestRecordFromFilm_RoundTrip(t *testing.T) {
	film := Film{
		ID:          IntPtr(42),
		Title:       "Answer",
		Overview:    "Deep thought",
		PosterPath:  "/poster.jpg",
		ReleaseDate: "1979-10-12",
	}
	rec, ok := RecordFromFilm(film)
	require.True(t, ok)
	assert.True(t, rec.IsFavourite)

	back := rec.Film()
	assert.Equal(t, *film.ID, *back.ID)
	assert.Equal(t, film.Title, back.Title)
	assert.Equal(t, film.Overview, back.Overview)
	assert.Equal(t, film.PosterPath, back.PosterPath)
	assert.Equal(t, film.ReleaseDate, back.ReleaseDate)
	assert.True(t, back.IsFavourite)

	_, ok = RecordFromFilm(Film{Title: "anonymous"})
	assert.False(t, ok)
}

func TestFilmClone_DoesNotShareID(t *testing.T) {
	film := Film{ID: IntPtr(5), GenreIDs: []int{1, 2}}
	clone := film.Clone()
	*clone.ID = 6
	clone.GenreIDs[0] = 9

	assert.Equal(t, int64(5), *film.ID)
	assert.Equal(t, 1, film.GenreIDs[0])
}
