package catalog

import "github.com/Clark-Hu/film-favourites/internal/domain"

type pagePayload struct {
	Page         int           `json:"page"`
	Results      []filmPayload `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

type filmPayload struct {
	Adult            bool    `json:"adult"`
	BackdropPath     *string `json:"backdrop_path"`
	GenreIDs         []int   `json:"genre_ids"`
	ID               *int64  `json:"id"`
	OriginalLanguage string  `json:"original_language"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	Popularity       float64 `json:"popularity"`
	PosterPath       *string `json:"poster_path"`
	ReleaseDate      string  `json:"release_date"`
	Title            string  `json:"title"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
}

type genrePayload struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type detailsPayload struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Tagline      string         `json:"tagline"`
	Overview     string         `json:"overview"`
	PosterPath   *string        `json:"poster_path"`
	BackdropPath *string        `json:"backdrop_path"`
	ReleaseDate  string         `json:"release_date"`
	Runtime      *int           `json:"runtime"`
	VoteAverage  float64        `json:"vote_average"`
	Genres       []genrePayload `json:"genres"`
}

func (p pagePayload) toDomain() domain.FilmPage {
	page := domain.FilmPage{
		Page:         p.Page,
		TotalPages:   p.TotalPages,
		TotalResults: p.TotalResults,
		Results:      make([]domain.Film, 0, len(p.Results)),
	}
	for _, film := range p.Results {
		page.Results = append(page.Results, film.toDomain())
	}
	return page
}

func (p filmPayload) toDomain() domain.Film {
	film := domain.Film{
		Title:            p.Title,
		OriginalTitle:    p.OriginalTitle,
		OriginalLanguage: p.OriginalLanguage,
		Overview:         p.Overview,
		PosterPath:       deref(p.PosterPath),
		BackdropPath:     deref(p.BackdropPath),
		ReleaseDate:      p.ReleaseDate,
		Adult:            p.Adult,
		Popularity:       p.Popularity,
		VoteAverage:      p.VoteAverage,
		VoteCount:        p.VoteCount,
	}
	if p.ID != nil {
		id := *p.ID
		film.ID = &id
	}
	if len(p.GenreIDs) > 0 {
		film.GenreIDs = append([]int(nil), p.GenreIDs...)
	}
	return film
}

func (p detailsPayload) toDomain() domain.FilmDetails {
	details := domain.FilmDetails{
		ID:           p.ID,
		Title:        p.Title,
		Tagline:      p.Tagline,
		Overview:     p.Overview,
		PosterPath:   deref(p.PosterPath),
		BackdropPath: deref(p.BackdropPath),
		ReleaseDate:  p.ReleaseDate,
		VoteAverage:  p.VoteAverage,
		Genres:       make([]domain.Genre, 0, len(p.Genres)),
	}
	if p.Runtime != nil {
		details.Runtime = *p.Runtime
	}
	for _, g := range p.Genres {
		details.Genres = append(details.Genres, domain.Genre{ID: g.ID, Name: g.Name})
	}
	return details
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
