package discover

import (
	"context"
	"log/slog"

	"github.com/sydlexius/driftwave/internal/blend"
	"github.com/sydlexius/driftwave/internal/normalize"
)

// artistStrategy expands every seed through artist similarity, then each
// similar artist to its top tracks.
type artistStrategy struct {
	sim    SimilarityClient
	logger *slog.Logger
}

func (s *artistStrategy) Kind() Kind { return KindArtist }

func (s *artistStrategy) Discover(ctx context.Context, seeds []Seed, p Params, sink Sink) error {
	pool := similarityPool(ctx, s.sim, seeds, p, s.logger)
	expandToTracks(ctx, s.sim, pool, p, s.logger, sink)
	return nil
}

// similarityPool builds the ordered artist pool from seed similarity. One
// seed's provider failure is logged and skipped; remaining seeds still
// contribute. Duplicate artists across seeds keep their first, higher
// placed occurrence.
func similarityPool(ctx context.Context, sim SimilarityClient, seeds []Seed, p Params, logger *slog.Logger) []blend.Artist {
	var pool []blend.Artist
	seen := make(map[string]struct{})
	add := func(name string, score float64) {
		key := normalize.CanonicalKey(name)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		pool = append(pool, blend.Artist{Name: name, Score: score, Origin: blend.OriginSeed})
	}

	for _, seed := range seeds {
		if ctx.Err() != nil {
			return pool
		}
		if p.IncludeSeedArtists && !p.Blacklisted(seed.Name) {
			add(seed.Name, 1.0)
		}

		similar, err := sim.SimilarArtists(ctx, normalize.FixPrefixes(seed.Name), p.SimilarLimit)
		if err != nil {
			logger.Warn("similar artists fetch failed, skipping seed",
				slog.String("seed", seed.Name), "error", err)
			continue
		}
		for _, art := range similar {
			add(art.Name, art.Score)
		}
	}
	return pool
}
