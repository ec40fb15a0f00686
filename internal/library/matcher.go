package library

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/sydlexius/driftwave/internal/normalize"
)

// Minimum levenshtein similarity between canonical artist keys for the
// fuzzy artist fallback.
const artistFuzzyThreshold = 0.85

// MatchOptions carries the post-match quality filters.
type MatchOptions struct {
	MinRating    int  // tracks below this rating are dropped
	AllowUnrated bool // retain tracks with no rating despite MinRating
}

// MatchPass identifies which pass resolved a title.
type MatchPass int

// Matching passes, in the order they are attempted. The first pass that
// yields at least one result wins; later passes never run for that title.
const (
	PassExact MatchPass = iota + 1
	PassNormalized
	PassPartial
)

// Match pairs a resolved library track with the pass that found it.
type Match struct {
	Track Track
	Pass  MatchPass
}

// Matcher resolves (artist, title) candidates against the library index.
type Matcher struct {
	index *Index
}

// NewMatcher creates a matcher over the given index.
func NewMatcher(index *Index) *Matcher {
	return &Matcher{index: index}
}

// FindTracksBatch resolves each title for the given artist. Titles that
// resolve to nothing simply have no entry in the result; that is not an
// error. ErrIndexNotReady is returned only when the index has never loaded.
//
// Per title, up to perTitleLimit deduplicated matches are returned, best
// quality first.
func (m *Matcher) FindTracksBatch(artist string, titles []string, perTitleLimit int, opts MatchOptions) (map[string][]Match, error) {
	if !m.index.Ready() {
		return nil, ErrIndexNotReady
	}
	if perTitleLimit <= 0 {
		perTitleLimit = 1
	}

	pool := m.artistPool(artist)
	results := make(map[string][]Match, len(titles))
	if len(pool) == 0 {
		return results, nil
	}

	for _, title := range titles {
		matches := matchTitle(pool, artist, title)
		matches = dedupMatches(matches)
		matches = filterMatches(matches, opts)
		if len(matches) > perTitleLimit {
			matches = matches[:perTitleLimit]
		}
		if len(matches) > 0 {
			results[title] = matches
		}
	}
	return results, nil
}

// artistPool collects the library tracks that could belong to the artist:
// the prefix-aware canonical bucket first, then a fuzzy scan over artist
// keys when the exact bucket is empty (catches minor spelling drift).
func (m *Matcher) artistPool(artist string) []Track {
	key := artistKey(artist)
	if key == "" {
		return nil
	}
	if pool := m.index.tracksForArtistKey(key); len(pool) > 0 {
		return pool
	}

	var pool []Track
	for _, candidate := range m.index.allArtistKeys() {
		if keySimilarity(key, candidate) >= artistFuzzyThreshold {
			pool = append(pool, m.index.tracksForArtistKey(candidate)...)
		}
	}
	return pool
}

// matchTitle runs the three passes over the artist pool, stopping at the
// first pass with results.
func matchTitle(pool []Track, artist, title string) []Match {
	// Pass 1: case-insensitive equality on both fields.
	var exact []Match
	for _, t := range pool {
		if strings.EqualFold(t.Title, title) && trackArtistEqualFold(t, artist) {
			exact = append(exact, Match{Track: t, Pass: PassExact})
		}
	}
	if len(exact) > 0 {
		return exact
	}

	// Pass 2: equality after punctuation/whitespace normalization.
	titleKey := normalize.CanonicalKey(title)
	artistCanon := normalize.CanonicalKey(artist)
	var normalized []Match
	for _, t := range pool {
		if normalize.CanonicalKey(t.Title) == titleKey && trackArtistCanonical(t, artistCanon) {
			normalized = append(normalized, Match{Track: t, Pass: PassNormalized})
		}
	}
	if len(normalized) > 0 {
		return normalized
	}

	// Pass 3: token overlap. Every candidate-title token of length >= 3
	// must appear in the library title (handles "(Remastered)" and
	// "(feat. X)" suffixes in either direction); artists already matched
	// via the prefix-aware pool.
	tokens := normalize.Tokens(title)
	if len(tokens) == 0 {
		return nil
	}
	var partial []Match
	for _, t := range pool {
		libTokens := tokenSet(t.Title)
		if containsAll(libTokens, tokens) {
			partial = append(partial, Match{Track: t, Pass: PassPartial})
			continue
		}
		// Symmetric check: the candidate carries the suffix instead.
		if containsAll(toSet(tokens), normalize.Tokens(t.Title)) {
			partial = append(partial, Match{Track: t, Pass: PassPartial})
		}
	}
	return partial
}

func trackArtistEqualFold(t Track, artist string) bool {
	return strings.EqualFold(t.Artist, artist) || strings.EqualFold(t.AlbumArtist, artist)
}

func trackArtistCanonical(t Track, artistCanon string) bool {
	return normalize.CanonicalKey(t.Artist) == artistCanon ||
		normalize.CanonicalKey(t.AlbumArtist) == artistCanon ||
		artistKey(t.Artist) == artistCanon ||
		artistKey(t.AlbumArtist) == artistCanon
}

func tokenSet(s string) map[string]struct{} {
	return toSet(normalize.Tokens(s))
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

func containsAll(set map[string]struct{}, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if _, ok := set[tok]; !ok {
			return false
		}
	}
	return true
}

// keySimilarity is the levenshtein similarity of two canonical keys in [0,1].
func keySimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

// dedupMatches collapses matches sharing a DedupKey, keeping exactly one:
// higher bitrate wins, then higher rating. Metadata is never merged. The
// survivors are ordered best quality first, ties preserving input order.
func dedupMatches(matches []Match) []Match {
	if len(matches) <= 1 {
		return matches
	}
	best := make(map[string]int, len(matches)) // dedup key -> index into out
	var out []Match
	for _, m := range matches {
		key := m.Track.DedupKey()
		if i, ok := best[key]; ok {
			if betterQuality(m.Track, out[i].Track) {
				out[i] = m
			}
			continue
		}
		best[key] = len(out)
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return betterQuality(out[i].Track, out[j].Track)
	})
	return out
}

// betterQuality reports whether a beats b on the tie-break order:
// bitrate, then rating.
func betterQuality(a, b Track) bool {
	if a.Bitrate != b.Bitrate {
		return a.Bitrate > b.Bitrate
	}
	return a.Rating > b.Rating
}

// filterMatches applies the rating threshold. A track survives when its
// rating meets the minimum, or when it is unrated and unrated tracks are
// allowed.
func filterMatches(matches []Match, opts MatchOptions) []Match {
	if opts.MinRating <= 0 {
		return matches
	}
	out := matches[:0]
	for _, m := range matches {
		switch {
		case m.Track.Rating >= opts.MinRating:
			out = append(out, m)
		case m.Track.Rating == 0 && opts.AllowUnrated:
			out = append(out, m)
		}
	}
	return out
}
