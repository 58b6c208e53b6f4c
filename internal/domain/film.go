package domain

// Film is a single entry of a catalog page. IsFavourite is never part of the
// remote payload; it is computed locally from the favourite set.
type Film struct {
	ID               *int64
	Title            string
	OriginalTitle    string
	OriginalLanguage string
	Overview         string
	PosterPath       string
	BackdropPath     string
	ReleaseDate      string
	GenreIDs         []int
	Adult            bool
	Popularity       float64
	VoteAverage      float64
	VoteCount        int
	IsFavourite      bool
}

// FilmPage mirrors one response of the popular films listing.
type FilmPage struct {
	Page         int
	Results      []Film
	TotalPages   int
	TotalResults int
}

// Genre is a named category attached to film details.
type Genre struct {
	ID   int
	Name string
}

// FilmDetails is fetched on demand for a single film. It carries no favourite
// flag; membership is looked up separately.
type FilmDetails struct {
	ID           int64
	Title        string
	Tagline      string
	Overview     string
	PosterPath   string
	BackdropPath string
	ReleaseDate  string
	Runtime      int
	VoteAverage  float64
	Genres       []Genre
}

// Clone returns a deep copy so callers can hand out films without sharing
// the ID pointer or genre slice.
func (f Film) Clone() Film {
	out := f
	if f.ID != nil {
		id := *f.ID
		out.ID = &id
	}
	if f.GenreIDs != nil {
		out.GenreIDs = append([]int(nil), f.GenreIDs...)
	}
	return out
}

// IntPtr is a small helper for building films with an identifier.
func IntPtr(v int64) *int64 {
	return &v
}
