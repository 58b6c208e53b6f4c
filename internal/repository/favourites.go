package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/film-favourites/internal/domain"
)

// FavouritesRepository persists favourite film rows.
type FavouritesRepository struct {
	pool *pgxpool.Pool
}

const favouriteColumns = `
    id,
    title,
    overview,
    poster_path,
    release_date,
    is_favourite,
    created_at
`

// Ping checks that the backing database answers.
func (r *FavouritesRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// List returns every favourite in insertion order.
func (r *FavouritesRepository) List(ctx context.Context) ([]domain.FavouriteRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM favourite_films ORDER BY created_at, id`, favouriteColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.FavouriteRecord, 0)
	for rows.Next() {
		rec, err := scanFavourite(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Get fetches a single favourite by film identifier.
func (r *FavouritesRepository) Get(ctx context.Context, id int64) (domain.FavouriteRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM favourite_films WHERE id = $1`, favouriteColumns)
	rec, err := scanFavourite(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FavouriteRecord{}, ErrNotFound
		}
		return domain.FavouriteRecord{}, err
	}
	return rec, nil
}

// Exists reports whether a favourite with the given identifier is stored.
func (r *FavouritesRepository) Exists(ctx context.Context, id int64) (bool, error) {
	if _, err := r.Get(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Insert stores rec and reports whether a new row was created. An existing
// row with the same identifier is left untouched.
func (r *FavouritesRepository) Insert(ctx context.Context, rec domain.FavouriteRecord) (bool, error) {
	const query = `
        INSERT INTO favourite_films (id, title, overview, poster_path, release_date, is_favourite)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO NOTHING
    `
	tag, err := r.pool.Exec(ctx, query, rec.ID, rec.Title, rec.Overview, rec.PosterPath, rec.ReleaseDate, rec.IsFavourite)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes the favourite with the given identifier and reports whether
// a row existed.
func (r *FavouritesRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM favourite_films WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanFavourite(row pgx.Row) (domain.FavouriteRecord, error) {
	var rec domain.FavouriteRecord
	err := row.Scan(
		&rec.ID,
		&rec.Title,
		&rec.Overview,
		&rec.PosterPath,
		&rec.ReleaseDate,
		&rec.IsFavourite,
		&rec.CreatedAt,
	)
	if err != nil {
		return domain.FavouriteRecord{}, err
	}
	return rec, nil
}
