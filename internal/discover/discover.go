// Package discover turns seed artists and tracks into candidate
// (artist, title) pairs using the configured discovery strategy. Five
// strategies exist: artist and track similarity, genre expansion, and the
// mood/activity pair that blends a similarity pool with a context pool.
//
// Provider failures local to one seed or one artist are logged and
// skipped; a strategy only fails outright on programmer error. An empty
// candidate list is a valid outcome.
package discover

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sydlexius/driftwave/internal/blend"
	"github.com/sydlexius/driftwave/internal/library"
	"github.com/sydlexius/driftwave/internal/normalize"
	"github.com/sydlexius/driftwave/internal/provider"
)

// Kind selects a discovery strategy.
type Kind string

// Strategy kinds.
const (
	KindArtist   Kind = "artist"
	KindTrack    Kind = "track"
	KindGenre    Kind = "genre"
	KindMood     Kind = "mood"
	KindActivity Kind = "activity"
)

// AllKinds returns the strategy kinds in display order.
func AllKinds() []Kind {
	return []Kind{KindArtist, KindTrack, KindGenre, KindMood, KindActivity}
}

// Valid reports whether k names a known strategy.
func (k Kind) Valid() bool {
	switch k {
	case KindArtist, KindTrack, KindGenre, KindMood, KindActivity:
		return true
	}
	return false
}

// Seed is one starting point for discovery: a distinct artist name plus
// the library track it came from.
type Seed struct {
	Name   string
	Source library.Track
}

// Candidate is a proposed (artist, title) pair awaiting library
// resolution. Title may be empty when a strategy recommends at artist
// granularity and track expansion failed.
type Candidate struct {
	Artist string
	Title  string
	Score  float64
	Origin blend.Origin
}

// Params are the discovery knobs for one run, built by the orchestrator
// from its run configuration.
type Params struct {
	SimilarLimit       int
	TracksPerArtist    int
	IncludeSeedArtists bool
	BlendRatio         float64
	ContextValue       string // mood or activity label for the context strategies
	GenreHint          string
	Blacklist          map[string]struct{} // canonical artist keys
}

// Blacklisted reports whether the artist is excluded. The check happens
// before any per-artist track fetch so rejected artists never cost a
// network call.
func (p Params) Blacklisted(artist string) bool {
	if len(p.Blacklist) == 0 {
		return false
	}
	_, ok := p.Blacklist[normalize.CanonicalKey(artist)]
	return ok
}

// SimilarityClient is the slice of the similarity provider the
// strategies need.
type SimilarityClient interface {
	SimilarArtists(ctx context.Context, artist string, limit int) ([]provider.SimilarArtist, error)
	SimilarTracks(ctx context.Context, artist, title string, limit int) ([]provider.SimilarTrack, error)
	TopTracks(ctx context.Context, artist string, limit int) ([]provider.TopTrack, error)
	TagTopArtists(ctx context.Context, tag string, limit int) ([]provider.TagArtist, error)
}

// ContextClient is the slice of the context provider the mood and
// activity strategies need.
type ContextClient interface {
	Recommend(ctx context.Context, kind provider.ContextKind, value, genreHint string, limit int) ([]provider.Recommendation, error)
}

// Sink receives candidate batches as discovery produces them, one batch
// per expanded artist or seed. Returning false stops discovery: no
// further provider calls are made once the consumer has enough.
type Sink func(batch []Candidate) bool

// Strategy streams candidates for the given seeds into the sink.
type Strategy interface {
	Kind() Kind
	Discover(ctx context.Context, seeds []Seed, p Params, sink Sink) error
}

// Collect runs discovery to completion and gathers every candidate.
func Collect(ctx context.Context, s Strategy, seeds []Seed, p Params) ([]Candidate, error) {
	var all []Candidate
	err := s.Discover(ctx, seeds, p, func(batch []Candidate) bool {
		all = append(all, batch...)
		return true
	})
	return all, err
}

// ForKind builds the strategy for the given kind.
func ForKind(kind Kind, sim SimilarityClient, ctxc ContextClient, logger *slog.Logger) (Strategy, error) {
	logger = logger.With(slog.String("strategy", string(kind)))
	switch kind {
	case KindArtist:
		return &artistStrategy{sim: sim, logger: logger}, nil
	case KindTrack:
		return &trackStrategy{sim: sim, logger: logger}, nil
	case KindGenre:
		return &genreStrategy{sim: sim, logger: logger}, nil
	case KindMood:
		return &contextStrategy{kind: KindMood, sim: sim, ctxc: ctxc, logger: logger}, nil
	case KindActivity:
		return &contextStrategy{kind: KindActivity, sim: sim, ctxc: ctxc, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown discovery strategy %q", kind)
	}
}

// expandToTracks resolves each pooled artist to its top tracks and feeds
// the sink one batch per artist. Blacklisted artists are skipped before
// any fetch, as are artists whose fetch fails. Artists already expanded
// this run (same canonical key) are expanded once. Expansion halts as
// soon as the sink declines more.
func expandToTracks(ctx context.Context, sim SimilarityClient, pool []blend.Artist, p Params, logger *slog.Logger, sink Sink) {
	seen := make(map[string]struct{}, len(pool))
	for _, artist := range pool {
		if ctx.Err() != nil {
			return
		}
		key := normalize.CanonicalKey(artist.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if p.Blacklisted(artist.Name) {
			continue
		}

		tracks, err := sim.TopTracks(ctx, artist.Name, p.TracksPerArtist)
		if err != nil {
			logger.Warn("top tracks fetch failed, skipping artist",
				slog.String("artist", artist.Name), "error", err)
			continue
		}
		if len(tracks) == 0 {
			continue
		}
		batch := make([]Candidate, 0, len(tracks))
		for _, tr := range tracks {
			batch = append(batch, Candidate{
				Artist: artist.Name,
				Title:  tr.Title,
				Score:  artist.Score,
				Origin: artist.Origin,
			})
		}
		if !sink(batch) {
			return
		}
	}
}
