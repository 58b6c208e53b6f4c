package favourites

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/film-favourites/internal/repository"
	"github.com/Clark-Hu/film-favourites/internal/testutil"
)

func TestStore_PostgresRoundTrip(t *testing.T) {
	pool := testutil.NewPostgresPool(t, "favourites_store_test")
	repo := repository.NewWithPool(pool)
	s := startStore(t, repo.Favourites)
	ctx := context.Background()

	f := film(550, "Fight Club")
	res, err := s.Toggle(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, ActionAdded, res.Action)

	reopened := New(repo.Favourites, zerolog.Nop(), nil)
	require.NoError(t, reopened.Open(ctx))
	set := reopened.Current()
	rec, ok := set.Get(550)
	require.True(t, ok)
	assert.Equal(t, f.Title, rec.Title)
	assert.Equal(t, f.Overview, rec.Overview)
	assert.Equal(t, f.PosterPath, rec.PosterPath)
	assert.Equal(t, f.ReleaseDate, rec.ReleaseDate)

	res, err = s.Toggle(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, ActionRemoved, res.Action)

	listed, err := s.ListFavourites(ctx)
	require.NoError(t, err)
	assert.Zero(t, listed.Len())
}

func TestStore_PostgresRemove(t *testing.T) {
	pool := testutil.NewPostgresPool(t, "favourites_remove_test")
	repo := repository.NewWithPool(pool)
	s := startStore(t, repo.Favourites)
	ctx := context.Background()

	_, err := s.Toggle(ctx, film(603, "The Matrix"))
	require.NoError(t, err)

	res, err := s.Remove(ctx, 603)
	require.NoError(t, err)
	assert.Equal(t, ActionRemoved, res.Action)
	assert.False(t, res.Set.Contains(603))

	_, err = s.Remove(ctx, 603)
	assert.ErrorIs(t, err, ErrNotFavourite)
}
