// Package blend merges the seed-similarity artist pool and the context
// (mood/activity) artist pool into one ordered pool honoring a configured
// ratio. The merge is fully deterministic: identical inputs always produce
// the identical ordered output.
package blend

import (
	"math"

	"github.com/sydlexius/driftwave/internal/normalize"
)

// Origin records which pool contributed an artist.
type Origin string

// Pool origins.
const (
	OriginSeed    Origin = "seed"
	OriginContext Origin = "context"
)

// Artist is one entry of a blendable pool.
type Artist struct {
	Name   string
	Score  float64
	Origin Origin
}

// Counts splits total output slots between the two pools. The seed share is
// rounded half away from zero (math.Round), so ratio 0.5 with an odd total
// gives the extra slot to the seed pool.
func Counts(ratio float64, total int) (seedCount, contextCount int) {
	if total <= 0 {
		return 0, 0
	}
	seedCount = int(math.Round(float64(total) * ratio))
	if seedCount > total {
		seedCount = total
	}
	if seedCount < 0 {
		seedCount = 0
	}
	return seedCount, total - seedCount
}

// Merge combines the two pools into a single ordered, deduplicated pool of
// at most total entries. Each pool's internal order is preserved; entries
// alternate seed, context, seed, ... and the remainder of the longer slice
// is appended once the other runs out. When one pool is empty the other
// supplies the whole output regardless of ratio.
//
// Duplicate artists (same canonical key) keep their first occurrence, which
// favors whichever pool contributed the name earlier in the interleave.
func Merge(seedPool, contextPool []Artist, ratio float64, total int) []Artist {
	seedCount, contextCount := Counts(ratio, total)

	// Graceful degradation: an empty pool cedes its slots to the other.
	if len(seedPool) == 0 {
		contextCount = total
	}
	if len(contextPool) == 0 {
		seedCount = total
	}

	seed := take(seedPool, seedCount, OriginSeed)
	context := take(contextPool, contextCount, OriginContext)

	merged := make([]Artist, 0, len(seed)+len(context))
	for i := 0; i < len(seed) || i < len(context); i++ {
		if i < len(seed) {
			merged = append(merged, seed[i])
		}
		if i < len(context) {
			merged = append(merged, context[i])
		}
	}

	seen := make(map[string]struct{}, len(merged))
	out := merged[:0]
	for _, a := range merged {
		key := normalize.CanonicalKey(a.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// take copies up to n entries of pool, tagging each with origin.
func take(pool []Artist, n int, origin Origin) []Artist {
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Artist, n)
	for i := range n {
		out[i] = pool[i]
		out[i].Origin = origin
	}
	return out
}
