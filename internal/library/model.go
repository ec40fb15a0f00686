// Package library owns the local track index: the SQLite store, the
// filesystem scanner that feeds it, and the fuzzy matcher that resolves
// discovered (artist, title) candidates against it.
package library

import (
	"errors"
	"strings"
	"time"

	"github.com/sydlexius/driftwave/internal/normalize"
)

// ErrIndexNotReady is returned by the matcher before the first successful
// index load. The run that hits it fails; it is not retried automatically.
var ErrIndexNotReady = errors.New("library index not ready")

// Track is one local library entry.
type Track struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Artist      string    `json:"artist"`
	AlbumArtist string    `json:"album_artist,omitempty"`
	Album       string    `json:"album,omitempty"`
	Title       string    `json:"title"`
	Genre       string    `json:"genre,omitempty"`
	Rating      int       `json:"rating"`  // 0-5, 0 = unrated
	Bitrate     int       `json:"bitrate"` // kbps, 0 = unknown
	AddedAt     time.Time `json:"added_at"`
}

// DedupKey returns the stable identity used to collapse duplicate matches:
// the library ID when present, else the file path, else a canonical
// title|album|artist composite.
func (t *Track) DedupKey() string {
	if t.ID != "" {
		return t.ID
	}
	if t.Path != "" {
		return t.Path
	}
	return strings.Join([]string{
		normalize.CanonicalKey(t.Title),
		normalize.CanonicalKey(t.Album),
		normalize.CanonicalKey(t.Artist),
	}, "|")
}

// artistKey is the prefix-aware canonical key tracks are indexed under, so
// "Beatles, The" and "The Beatles" land in the same bucket.
func artistKey(name string) string {
	return normalize.CanonicalKey(normalize.FixPrefixes(name))
}
