package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/Clark-Hu/film-favourites/internal/catalog"
	"github.com/Clark-Hu/film-favourites/internal/domain"
	"github.com/Clark-Hu/film-favourites/internal/favourites"
	"github.com/Clark-Hu/film-favourites/internal/films"
)

const listPosterSize = catalog.PosterW500

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type filmPageResponse struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"totalPages"`
	TotalResults int            `json:"totalResults"`
	Results      []filmResponse `json:"results"`
}

type filmResponse struct {
	ID               *int64  `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"originalTitle,omitempty"`
	OriginalLanguage string  `json:"originalLanguage,omitempty"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"posterPath,omitempty"`
	PosterURL        string  `json:"posterUrl,omitempty"`
	BackdropPath     string  `json:"backdropPath,omitempty"`
	ReleaseDate      string  `json:"releaseDate"`
	GenreIDs         []int   `json:"genreIds,omitempty"`
	Adult            bool    `json:"adult"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"voteAverage"`
	VoteCount        int     `json:"voteCount"`
	IsFavourite      bool    `json:"isFavourite"`
}

type genreResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type detailsResponse struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Tagline      string          `json:"tagline,omitempty"`
	Overview     string          `json:"overview"`
	PosterPath   string          `json:"posterPath,omitempty"`
	PosterURL    string          `json:"posterUrl,omitempty"`
	BackdropPath string          `json:"backdropPath,omitempty"`
	ReleaseDate  string          `json:"releaseDate"`
	Runtime      int             `json:"runtime"`
	VoteAverage  float64         `json:"voteAverage"`
	Genres       []genreResponse `json:"genres"`
}

type favouriteListResponse struct {
	Items []filmResponse `json:"items"`
}

type favouriteStatusResponse struct {
	ID          int64  `json:"id"`
	IsFavourite bool   `json:"isFavourite"`
	State       string `json:"state"`
}

type posterURLResponse struct {
	Size string `json:"size"`
	URL  string `json:"url"`
}

func (s *Server) handleListFilms(w http.ResponseWriter, r *http.Request) {
	refresh, err := parseBoolQuery(r, "refresh")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid refresh value")
		return
	}

	page, loaded := s.films.Popular()
	if refresh || !loaded {
		page, err = s.films.RefreshPopular(r.Context())
		if err != nil {
			s.respondServiceError(w, err, "Failed to load films")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, s.toFilmPageResponse(page))
}

func (s *Server) handleFilmDetails(w http.ResponseWriter, r *http.Request) {
	id, err := filmIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	details, err := s.films.Details(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "Failed to load film details")
		return
	}
	s.respondJSON(w, http.StatusOK, s.toDetailsResponse(details))
}

func (s *Server) handleToggleFavourite(w http.ResponseWriter, r *http.Request) {
	id, err := filmIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	film, err := s.films.Toggle(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "Failed to toggle favourite")
		return
	}
	s.respondJSON(w, http.StatusOK, s.toFilmResponse(film))
}

func (s *Server) handleListFavourites(w http.ResponseWriter, r *http.Request) {
	favs := s.films.Favourites()
	items := make([]filmResponse, 0, len(favs))
	for _, f := range favs {
		items = append(items, s.toFilmResponse(f))
	}
	s.respondJSON(w, http.StatusOK, favouriteListResponse{Items: items})
}

func (s *Server) handleFavouriteStatus(w http.ResponseWriter, r *http.Request) {
	id, err := filmIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	state := s.films.State(id)
	s.respondJSON(w, http.StatusOK, favouriteStatusResponse{
		ID:          id,
		IsFavourite: s.films.IsFavourite(id),
		State:       state.String(),
	})
}

func (s *Server) handleRemoveFavourite(w http.ResponseWriter, r *http.Request) {
	id, err := filmIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if err := s.films.Remove(r.Context(), id); err != nil {
		s.respondServiceError(w, err, "Failed to remove favourite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePosterURL(w http.ResponseWriter, r *http.Request) {
	size, ok := catalog.ParsePosterSize(chi.URLParam(r, "size"))
	if !ok {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown poster size")
		return
	}
	url, ok := s.images.PosterURL(r.URL.Query().Get("path"), size)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "path is required")
		return
	}
	s.respondJSON(w, http.StatusOK, posterURLResponse{Size: string(size), URL: url})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// respondServiceError maps typed failures from the service layer onto HTTP
// status codes. Failures were already logged where they were classified.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	var nf *catalog.NetworkFailure
	var pf *favourites.PersistenceFailure
	switch {
	case errors.Is(err, films.ErrFilmNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, favourites.ErrMissingIdentifier):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "film has no identifier")
	case errors.Is(err, favourites.ErrClosed):
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "favourites store is shutting down")
	case errors.As(err, &nf):
		switch {
		case nf.Kind == catalog.BadKey:
			s.respondError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "catalog credentials unavailable")
		case nf.Status == http.StatusNotFound:
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		default:
			s.respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", fallback+": "+nf.Kind.String())
		}
	case errors.As(err, &pf):
		s.respondError(w, http.StatusInternalServerError, "PERSISTENCE_ERROR", fallback+": "+pf.Kind.String())
	case errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusGatewayTimeout, "TIMEOUT", fallback)
	default:
		s.logger.Error().Err(err).Msg(fallback)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}

func (s *Server) toFilmPageResponse(page domain.FilmPage) filmPageResponse {
	results := make([]filmResponse, 0, len(page.Results))
	for _, f := range page.Results {
		results = append(results, s.toFilmResponse(f))
	}
	return filmPageResponse{
		Page:         page.Page,
		TotalPages:   page.TotalPages,
		TotalResults: page.TotalResults,
		Results:      results,
	}
}

func (s *Server) toFilmResponse(f domain.Film) filmResponse {
	return filmResponse{
		ID:               f.ID,
		Title:            f.Title,
		OriginalTitle:    f.OriginalTitle,
		OriginalLanguage: f.OriginalLanguage,
		Overview:         f.Overview,
		PosterPath:       f.PosterPath,
		PosterURL:        s.posterURL(f.PosterPath),
		BackdropPath:     f.BackdropPath,
		ReleaseDate:      f.ReleaseDate,
		GenreIDs:         f.GenreIDs,
		Adult:            f.Adult,
		Popularity:       f.Popularity,
		VoteAverage:      f.VoteAverage,
		VoteCount:        f.VoteCount,
		IsFavourite:      f.IsFavourite,
	}
}

func (s *Server) toDetailsResponse(d domain.FilmDetails) detailsResponse {
	genres := make([]genreResponse, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, genreResponse{ID: g.ID, Name: g.Name})
	}
	return detailsResponse{
		ID:           d.ID,
		Title:        d.Title,
		Tagline:      d.Tagline,
		Overview:     d.Overview,
		PosterPath:   d.PosterPath,
		PosterURL:    s.posterURL(d.PosterPath),
		BackdropPath: d.BackdropPath,
		ReleaseDate:  d.ReleaseDate,
		Runtime:      d.Runtime,
		VoteAverage:  d.VoteAverage,
		Genres:       genres,
	}
}

func (s *Server) posterURL(path string) string {
	if s.images == nil {
		return ""
	}
	url, _ := s.images.PosterURL(path, listPosterSize)
	return url
}

func filmIDParam(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	if raw == "" {
		return 0, errors.New("missing film id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid film id")
	}
	return id, nil
}

func parseBoolQuery(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
