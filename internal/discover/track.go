package discover

import (
	"context"
	"log/slog"

	"github.com/sydlexius/driftwave/internal/blend"
	"github.com/sydlexius/driftwave/internal/normalize"
)

// trackStrategy expands seeds through track similarity. The provider
// already answers at (artist, title) granularity, so no per-artist top
// track expansion is needed.
type trackStrategy struct {
	sim    SimilarityClient
	logger *slog.Logger
}

func (s *trackStrategy) Kind() Kind { return KindTrack }

func (s *trackStrategy) Discover(ctx context.Context, seeds []Seed, p Params, sink Sink) error {
	for _, seed := range seeds {
		if ctx.Err() != nil {
			return nil
		}
		if seed.Source.Title == "" {
			continue
		}

		similar, err := s.sim.SimilarTracks(ctx, normalize.FixPrefixes(seed.Name), seed.Source.Title, p.SimilarLimit)
		if err != nil {
			s.logger.Warn("similar tracks fetch failed, skipping seed",
				slog.String("seed", seed.Name),
				slog.String("title", seed.Source.Title),
				"error", err)
			continue
		}

		var batch []Candidate
		for _, tr := range similar {
			if p.Blacklisted(tr.Artist) {
				continue
			}
			batch = append(batch, Candidate{
				Artist: tr.Artist,
				Title:  tr.Title,
				Score:  tr.Score,
				Origin: blend.OriginSeed,
			})
		}
		if len(batch) > 0 && !sink(batch) {
			return nil
		}
	}
	return nil
}
