package discover

import (
	"context"
	"log/slog"

	"github.com/sydlexius/driftwave/internal/blend"
	"github.com/sydlexius/driftwave/internal/library"
)

// genreStrategy derives genre tags from the seed tracks' metadata, pulls
// each tag's top artists, then expands those artists to tracks.
type genreStrategy struct {
	sim    SimilarityClient
	logger *slog.Logger
}

func (s *genreStrategy) Kind() Kind { return KindGenre }

func (s *genreStrategy) Discover(ctx context.Context, seeds []Seed, p Params, sink Sink) error {
	tracks := make([]library.Track, 0, len(seeds))
	for _, seed := range seeds {
		tracks = append(tracks, seed.Source)
	}
	genres := library.GenresForTracks(tracks)
	if len(genres) == 0 {
		s.logger.Info("seeds carry no genre metadata")
		return nil
	}

	var pool []blend.Artist
	for _, genre := range genres {
		if ctx.Err() != nil {
			break
		}
		artists, err := s.sim.TagTopArtists(ctx, genre, p.SimilarLimit)
		if err != nil {
			s.logger.Warn("tag top artists fetch failed, skipping genre",
				slog.String("genre", genre), "error", err)
			continue
		}
		for _, art := range artists {
			pool = append(pool, blend.Artist{Name: art.Name, Score: art.Score, Origin: blend.OriginSeed})
		}
	}
	expandToTracks(ctx, s.sim, pool, p, s.logger, sink)
	return nil
}
