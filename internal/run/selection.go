package run

import (
	"context"
	"sync"

	"github.com/sydlexius/driftwave/internal/library"
)

// Selection is the canonical SelectionSource: the API writes the user's
// explicit track selection and the player's now-playing track here, and
// runs read them. Safe for concurrent use.
type Selection struct {
	mu       sync.Mutex
	selected []library.Track
	playing  *library.Track
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{}
}

// SetSelected replaces the explicit selection.
func (s *Selection) SetSelected(tracks []library.Track) {
	s.mu.Lock()
	s.selected = append([]library.Track(nil), tracks...)
	s.mu.Unlock()
}

// ClearSelected drops the explicit selection so the now-playing fallback
// applies again.
func (s *Selection) ClearSelected() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
}

// SetNowPlaying records the playing track; nil means playback stopped.
func (s *Selection) SetNowPlaying(t *library.Track) {
	s.mu.Lock()
	if t == nil {
		s.playing = nil
	} else {
		snapshot := *t
		s.playing = &snapshot
	}
	s.mu.Unlock()
}

// SelectedTracks returns a copy of the explicit selection.
func (s *Selection) SelectedTracks(context.Context) ([]library.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]library.Track(nil), s.selected...), nil
}

// NowPlaying returns a copy of the playing track, or nil.
func (s *Selection) NowPlaying(context.Context) (*library.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing == nil {
		return nil, nil
	}
	snapshot := *s.playing
	return &snapshot, nil
}
