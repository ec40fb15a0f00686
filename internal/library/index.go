package library

import (
	"context"
	"sort"
	"sync"

	"github.com/sydlexius/driftwave/internal/normalize"
)

// Index is the in-memory snapshot the matcher resolves against. It starts
// not-ready; the matcher returns ErrIndexNotReady until the first Load
// succeeds. Reloads swap the snapshot atomically under the lock.
type Index struct {
	mu          sync.RWMutex
	ready       bool
	tracks      []Track
	byArtist    map[string][]int // prefix-aware canonical artist key -> track indices
	artistKeys  []string         // sorted, for fuzzy scans
	artistNames map[string]string
}

// NewIndex creates an empty, not-ready index.
func NewIndex() *Index {
	return &Index{}
}

// Load rebuilds the index from the store.
func (x *Index) Load(ctx context.Context, store *Store) error {
	tracks, err := store.All(ctx)
	if err != nil {
		return err
	}
	x.Replace(tracks)
	return nil
}

// Replace swaps in a new track snapshot and marks the index ready.
func (x *Index) Replace(tracks []Track) {
	byArtist := make(map[string][]int)
	names := make(map[string]string)
	for i, t := range tracks {
		for _, name := range []string{t.Artist, t.AlbumArtist} {
			if name == "" {
				continue
			}
			key := artistKey(name)
			if key == "" {
				continue
			}
			if ids := byArtist[key]; len(ids) == 0 || ids[len(ids)-1] != i {
				byArtist[key] = append(byArtist[key], i)
			}
			names[key] = name
		}
	}
	keys := make([]string, 0, len(byArtist))
	for k := range byArtist {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	x.mu.Lock()
	x.tracks = tracks
	x.byArtist = byArtist
	x.artistKeys = keys
	x.artistNames = names
	x.ready = true
	x.mu.Unlock()
}

// Ready reports whether the index has been loaded at least once.
func (x *Index) Ready() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.ready
}

// Size returns the number of indexed tracks.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.tracks)
}

// ArtistNames returns one display name per indexed artist.
func (x *Index) ArtistNames() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, 0, len(x.artistNames))
	for _, k := range x.artistKeys {
		out = append(out, x.artistNames[k])
	}
	return out
}

// tracksForArtistKey returns copies of the tracks indexed under key.
func (x *Index) tracksForArtistKey(key string) []Track {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ids := x.byArtist[key]
	out := make([]Track, 0, len(ids))
	for _, i := range ids {
		out = append(out, x.tracks[i])
	}
	return out
}

// allArtistKeys returns the sorted canonical artist keys.
func (x *Index) allArtistKeys() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.artistKeys
}

// GenresForTracks collects the distinct genres of the given tracks, in
// first-seen order, used by the genre discovery strategy.
func GenresForTracks(tracks []Track) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tracks {
		if t.Genre == "" {
			continue
		}
		key := normalize.CanonicalKey(t.Genre)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t.Genre)
	}
	return out
}
