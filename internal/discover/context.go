package discover

import (
	"context"
	"log/slog"

	"github.com/sydlexius/driftwave/internal/blend"
	"github.com/sydlexius/driftwave/internal/normalize"
	"github.com/sydlexius/driftwave/internal/provider"
)

// contextStrategy implements the mood and activity strategies: a seed
// similarity pool and a context recommendation pool are blended by the
// configured ratio, then the merged artist list is expanded to tracks.
//
// A ratio of 0 skips seed pool retrieval entirely and a ratio of 1 skips
// the context pool; an unused pool must not cost network calls.
type contextStrategy struct {
	kind   Kind
	sim    SimilarityClient
	ctxc   ContextClient
	logger *slog.Logger
}

func (s *contextStrategy) Kind() Kind { return s.kind }

func (s *contextStrategy) Discover(ctx context.Context, seeds []Seed, p Params, sink Sink) error {
	var seedPool, contextPool []blend.Artist

	if p.BlendRatio > 0 {
		seedPool = similarityPool(ctx, s.sim, seeds, p, s.logger)
	}
	if p.BlendRatio < 1 {
		contextPool = s.contextPool(ctx, p)
	}

	merged := blend.Merge(seedPool, contextPool, p.BlendRatio, p.SimilarLimit)
	expandToTracks(ctx, s.sim, merged, p, s.logger, sink)
	return nil
}

// contextPool fetches the mood/activity recommendation pool. Provider
// failure degrades to an empty pool; the seed pool then supplies the
// whole output.
func (s *contextStrategy) contextPool(ctx context.Context, p Params) []blend.Artist {
	kind := provider.ContextMood
	if s.kind == KindActivity {
		kind = provider.ContextActivity
	}

	recs, err := s.ctxc.Recommend(ctx, kind, p.ContextValue, p.GenreHint, p.SimilarLimit)
	if err != nil {
		s.logger.Warn("context recommendation failed",
			slog.String("value", p.ContextValue), "error", err)
		return nil
	}

	pool := make([]blend.Artist, 0, len(recs))
	seen := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		key := normalize.CanonicalKey(rec.Artist)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		pool = append(pool, blend.Artist{Name: rec.Artist, Score: rec.Score, Origin: blend.OriginContext})
	}
	return pool
}
