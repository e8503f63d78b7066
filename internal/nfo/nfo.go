package nfo

import (
	"os"
	"strconv"
	"strings"

	"media-catalog/internal/logging"
)

// ActorInfo is one cast entry from a sidecar document.
type ActorInfo struct {
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Thumb string `json:"thumb,omitempty"`
}

// VideoMetadata is the normalized result of parsing one sidecar document.
// Missing fields are zero values; it is never persisted verbatim.
type VideoMetadata struct {
	Title      string      `json:"title,omitempty"`
	Plot       string      `json:"plot,omitempty"`
	Outline    string      `json:"outline,omitempty"`
	Rating     float64     `json:"rating,omitempty"`
	UserRating float64     `json:"userRating,omitempty"`
	Votes      int         `json:"votes,omitempty"`
	Year       int         `json:"year,omitempty"`
	Premiered  string      `json:"premiered,omitempty"`
	Released   string      `json:"released,omitempty"`
	Runtime    int         `json:"runtime,omitempty"`
	Genres     []string    `json:"genres,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
	Country    string      `json:"country,omitempty"`
	Director   string      `json:"director,omitempty"`
	Studio     string      `json:"studio,omitempty"`
	Actors     []ActorInfo `json:"actors,omitempty"`

	// Local art references as written in the document. Network URLs are
	// discarded here; only values the resolver could find on disk are kept.
	PosterRef string `json:"posterRef,omitempty"`
	FanartRef string `json:"fanartRef,omitempty"`
	ThumbRef  string `json:"thumbRef,omitempty"`
}

// Parse reads a sidecar document and extracts a VideoMetadata record.
// Malformed or missing documents never produce an error: the result is an
// empty record and a warning in the log. Per-item parse failures must not
// abort a whole synchronization run.
func Parse(path string) VideoMetadata {
	var meta VideoMetadata

	f, err := os.Open(path)
	if err != nil {
		logging.Warn("cannot open sidecar document %s: %v", path, err)
		return meta
	}
	defer f.Close()

	root, err := parseDocument(f)
	if err != nil {
		logging.Warn("cannot parse sidecar document %s: %v", path, err)
		return meta
	}

	meta.Title = root.findFirst("title").text()
	meta.Plot = root.findFirst("plot").text()
	meta.Outline = root.findFirst("outline").text()
	meta.Rating = floatOrZero(root.findFirst("rating").text())
	meta.UserRating = floatOrZero(root.findFirst("userrating").text())
	meta.Votes = intOrZero(root.findFirst("votes").text())
	meta.Year = intOrZero(root.findFirst("year").text())
	meta.Premiered = root.findFirst("premiered").text()
	meta.Released = root.findFirst("released").text()
	meta.Runtime = intOrZero(root.findFirst("runtime").text())
	meta.Country = root.findFirst("country").text()
	meta.Director = root.findFirst("director").text()
	meta.Studio = root.findFirst("studio").text()

	// Multi-valued fields keep document order and duplicates; the catalog
	// deduplicates during reconciliation, not here.
	for _, el := range root.findAll("genre") {
		if t := el.text(); t != "" {
			meta.Genres = append(meta.Genres, t)
		}
	}
	for _, el := range root.findAll("tag") {
		if t := el.text(); t != "" {
			meta.Tags = append(meta.Tags, t)
		}
	}

	for _, el := range root.findAll("actor") {
		name := el.findFirst("name").text()
		if name == "" {
			continue
		}
		meta.Actors = append(meta.Actors, ActorInfo{
			Name:  name,
			Role:  el.findFirst("role").text(),
			Thumb: el.findFirst("thumb").text(),
		})
	}

	meta.PosterRef = extractPosterRef(root)
	meta.ThumbRef = extractThumbRef(root)
	meta.FanartRef = extractFanartRef(root)

	return meta
}

// extractPosterRef prefers elements explicitly marked as poster artwork:
// a <poster> element, then <thumb aspect="poster">, then
// <thumb type="poster">. Untyped thumbs never populate the poster field.
func extractPosterRef(root *Element) string {
	if t := root.findFirst("poster").text(); isLocalRef(t) {
		return t
	}
	for _, marker := range []string{"aspect", "type"} {
		for _, el := range root.findAll("thumb") {
			if el.attr(marker) != "poster" {
				continue
			}
			if t := el.text(); isLocalRef(t) {
				return t
			}
		}
	}
	return ""
}

// extractThumbRef takes <thumbnail> first, then the first untyped <thumb>.
// Thumbs already claimed as posters are skipped so a poster marker never
// leaks into the generic thumbnail field.
func extractThumbRef(root *Element) string {
	if t := root.findFirst("thumbnail").text(); isLocalRef(t) {
		return t
	}
	for _, el := range root.findAll("thumb") {
		if el.attr("aspect") == "poster" || el.attr("type") == "poster" {
			continue
		}
		if t := el.text(); isLocalRef(t) {
			return t
		}
	}
	return ""
}

// extractFanartRef reads <fanart>, which may wrap a nested <thumb>.
func extractFanartRef(root *Element) string {
	fanart := root.findFirst("fanart")
	if fanart == nil {
		return ""
	}
	if nested := fanart.findFirst("thumb"); nested != nil {
		if t := nested.text(); isLocalRef(t) {
			return t
		}
		return ""
	}
	if t := fanart.text(); isLocalRef(t) {
		return t
	}
	return ""
}

// isLocalRef reports whether s is a non-empty reference that is not an
// absolute network URL. Network references cannot be resolved against the
// local filesystem and are discarded.
func isLocalRef(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	return !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://")
}

// floatOrZero is the tolerant numeric conversion for rating fields:
// non-numeric text yields the zero value instead of an error.
func floatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func intOrZero(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
