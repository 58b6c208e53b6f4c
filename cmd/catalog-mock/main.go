// Command catalog-mock serves a tiny popular-films catalog and a key-value
// endpoint holding its API key, for local runs and contract smoke tests.
package main

import (
	_ "embed"
	"flag"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

//go:embed fixtures.json
var defaultFixtures []byte

type filmEntry struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	OriginalLanguage string  `json:"original_language"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	GenreIDs         []int   `json:"genre_ids"`
	Adult            bool    `json:"adult"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
}

type pageEntry struct {
	Page         int         `json:"page"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
	Results      []filmEntry `json:"results"`
}

type genreEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type detailsEntry struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Tagline      string       `json:"tagline"`
	Overview     string       `json:"overview"`
	PosterPath   string       `json:"poster_path"`
	BackdropPath string       `json:"backdrop_path"`
	ReleaseDate  string       `json:"release_date"`
	Runtime      int          `json:"runtime"`
	VoteAverage  float64      `json:"vote_average"`
	Genres       []genreEntry `json:"genres"`
}

var genreNames = map[int]string{
	18:    "Drama",
	28:    "Action",
	35:    "Comedy",
	878:   "Science Fiction",
	10749: "Romance",
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "", "path to a popular-page fixture (defaults to the embedded one)")
		apiKey  = flag.String("api-key", "mock-key", "api key accepted by the catalog and served by the key endpoint")
		keyPath = flag.String("key-path", "APIKey", "key-value path holding the api key")
		verbose = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("service", "catalog-mock").Logger()

	raw := defaultFixtures
	if *data != "" {
		file, err := os.ReadFile(*data)
		if err != nil {
			logger.Fatal().Err(err).Msg("read mock data")
		}
		raw = file
	}

	var page pageEntry
	if err := json.Unmarshal(raw, &page); err != nil {
		logger.Fatal().Err(err).Msg("parse mock data")
	}
	byID := make(map[int64]filmEntry, len(page.Results))
	for _, f := range page.Results {
		byID[f.ID] = f
	}

	r := chi.NewRouter()
	if *verbose {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				logger.Info().Str("method", req.Method).Str("path", req.URL.Path).Msg("request")
				next.ServeHTTP(w, req)
			})
		})
	}

	r.Get("/"+strings.Trim(*keyPath, "/")+".json", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, *apiKey)
	})

	r.Route("/3/movie", func(r chi.Router) {
		r.Use(requireKey(*apiKey))
		r.Get("/popular", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, page)
		})
		r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
			if err != nil {
				writeJSON(w, http.StatusNotFound, map[string]any{"status_code": 34, "status_message": "The resource you requested could not be found."})
				return
			}
			film, ok := byID[id]
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]any{"status_code": 34, "status_message": "The resource you requested could not be found."})
				return
			}
			writeJSON(w, http.StatusOK, toDetails(film))
		})
	})

	addr := ":" + *port
	logger.Info().Str("addr", addr).Int("films", len(page.Results)).Msg("mock catalog listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func requireKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("api_key") != key {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"status_code": 7, "status_message": "Invalid API key: You must be granted a valid key."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func toDetails(f filmEntry) detailsEntry {
	genres := make([]genreEntry, 0, len(f.GenreIDs))
	for _, id := range f.GenreIDs {
		genres = append(genres, genreEntry{ID: id, Name: genreNames[id]})
	}
	return detailsEntry{
		ID:           f.ID,
		Title:        f.Title,
		Overview:     f.Overview,
		PosterPath:   f.PosterPath,
		BackdropPath: f.BackdropPath,
		ReleaseDate:  f.ReleaseDate,
		Runtime:      120,
		VoteAverage:  f.VoteAverage,
		Genres:       genres,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
