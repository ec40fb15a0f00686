package library

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/sydlexius/driftwave/internal/event"
)

// audioExtensions are the file types the scanner indexes, mapped to a
// coarse default bitrate (kbps) used when the container does not report
// one. Lossless formats rank above lossy in quality tie-breaks.
var audioExtensions = map[string]int{
	".flac": 1000,
	".wav":  1411,
	".mp3":  0,
	".m4a":  0,
	".ogg":  0,
	".opus": 0,
	".wma":  0,
}

// ScanResult summarizes one scan.
type ScanResult struct {
	Scanned   int       `json:"scanned"`
	Added     int       `json:"added"`
	Removed   int       `json:"removed"`
	Errors    int       `json:"errors"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}

// Scanner walks the music directory, reads audio tags, and feeds the
// track store and index. One scan runs at a time.
type Scanner struct {
	store    *Store
	index    *Index
	eventBus *event.Bus
	logger   *slog.Logger
	root     string

	mu      sync.Mutex
	running bool
	last    *ScanResult
}

// NewScanner creates a scanner rooted at the music directory.
func NewScanner(store *Store, index *Index, eventBus *event.Bus, logger *slog.Logger, root string) *Scanner {
	return &Scanner{
		store:    store,
		index:    index,
		eventBus: eventBus,
		logger:   logger.With(slog.String("component", "scanner")),
		root:     root,
	}
}

// Scan walks the root, upserting every audio file found and removing rows
// for files no longer on disk, then reloads the index and publishes
// event.LibraryScanned. Concurrent calls fail fast.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("scan already in progress")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	result := &ScanResult{StartedAt: time.Now().UTC()}
	seen := make(map[string]struct{})

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		defaultBitrate, ok := audioExtensions[ext]
		if !ok {
			return nil
		}

		result.Scanned++
		track := s.readTrack(path, defaultBitrate)
		seen[path] = struct{}{}

		existing, err := s.store.GetByPath(ctx, path)
		if err != nil {
			result.Errors++
			s.logger.Warn("reading existing track", "path", path, "error", err)
			return nil
		}
		if existing != nil {
			track.ID = existing.ID
			track.Rating = existing.Rating
			track.AddedAt = existing.AddedAt
		} else {
			result.Added++
		}
		if err := s.store.Upsert(ctx, track); err != nil {
			result.Errors++
			s.logger.Warn("upserting track", "path", path, "error", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking music directory: %w", err)
	}

	removed, err := s.store.DeleteMissing(ctx, seen)
	if err != nil {
		return nil, fmt.Errorf("pruning removed tracks: %w", err)
	}
	result.Removed = removed

	if err := s.index.Load(ctx, s.store); err != nil {
		return nil, fmt.Errorf("reloading index: %w", err)
	}

	result.Duration = time.Since(result.StartedAt).Round(time.Millisecond).String()
	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	s.logger.Info("scan complete",
		slog.Int("scanned", result.Scanned),
		slog.Int("added", result.Added),
		slog.Int("removed", result.Removed),
		slog.Int("errors", result.Errors))

	if s.eventBus != nil {
		s.eventBus.Publish(event.Event{
			Type: event.LibraryScanned,
			Data: map[string]any{"scanned": result.Scanned, "added": result.Added},
		})
	}
	return result, nil
}

// Last returns a copy of the most recent scan result, or nil.
func (s *Scanner) Last() *ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	snapshot := *s.last
	return &snapshot
}

// readTrack builds a Track from file tags, falling back to path-derived
// metadata (artist/album/title directory convention) when tags are
// unreadable.
func (s *Scanner) readTrack(path string, defaultBitrate int) *Track {
	track := &Track{Path: path, Bitrate: defaultBitrate}

	if f, err := os.Open(path); err == nil {
		if meta, err := tag.ReadFrom(f); err == nil {
			track.Artist = meta.Artist()
			track.AlbumArtist = meta.AlbumArtist()
			track.Album = meta.Album()
			track.Title = meta.Title()
			track.Genre = meta.Genre()
		}
		f.Close() //nolint:errcheck
	}

	if track.Title == "" {
		track.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if track.Artist == "" {
		rel, err := filepath.Rel(s.root, path)
		if err == nil {
			parts := strings.Split(filepath.ToSlash(rel), "/")
			if len(parts) >= 2 {
				track.Artist = parts[0]
			}
			if len(parts) >= 3 {
				track.Album = parts[1]
			}
		}
	}
	if track.Artist == "" {
		track.Artist = "Unknown Artist"
	}
	return track
}
