package catalog

import (
	"fmt"
	"net/url"
	"strings"
)

// PosterSize is one of the renditions offered by the image CDN.
type PosterSize string

const (
	PosterW92      PosterSize = "w92"
	PosterW154     PosterSize = "w154"
	PosterW185     PosterSize = "w185"
	PosterW300     PosterSize = "w300"
	PosterW342     PosterSize = "w342"
	PosterW500     PosterSize = "w500"
	PosterW780     PosterSize = "w780"
	PosterOriginal PosterSize = "original"
)

// PosterSizes lists every known size from smallest to largest.
var PosterSizes = []PosterSize{
	PosterW92, PosterW154, PosterW185, PosterW300,
	PosterW342, PosterW500, PosterW780, PosterOriginal,
}

// ParsePosterSize maps a raw size name onto a PosterSize.
func ParsePosterSize(raw string) (PosterSize, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, size := range PosterSizes {
		if string(size) == raw {
			return size, true
		}
	}
	return "", false
}

// ImageURLBuilder turns poster paths into CDN URLs. It performs no I/O.
type ImageURLBuilder struct {
	base *url.URL
}

// NewImageURLBuilder validates the CDN base (e.g. https://image.tmdb.org/t/p).
func NewImageURLBuilder(base string) (*ImageURLBuilder, error) {
	parsed, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse image base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("image base url %q is not absolute", base)
	}
	return &ImageURLBuilder{base: parsed}, nil
}

// PosterURL returns the URL for path at size. It reports false when the path
// is empty or the size is unknown.
func (b *ImageURLBuilder) PosterURL(path string, size PosterSize) (string, bool) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return "", false
	}
	parsed, ok := ParsePosterSize(string(size))
	if !ok {
		return "", false
	}
	return b.base.JoinPath(string(parsed), path).String(), true
}
