package library

import (
	"testing"
)

func testIndex(tracks []Track) *Index {
	idx := NewIndex()
	idx.Replace(tracks)
	return idx
}

func TestFindTracksBatchNotReady(t *testing.T) {
	m := NewMatcher(NewIndex())
	if _, err := m.FindTracksBatch("Genesis", []string{"Mama"}, 1, MatchOptions{}); err != ErrIndexNotReady {
		t.Fatalf("expected ErrIndexNotReady, got %v", err)
	}
}

func TestExactPass(t *testing.T) {
	idx := testIndex([]Track{
		{ID: "1", Path: "/m/genesis/mama.flac", Artist: "Genesis", Title: "Mama", Bitrate: 1000},
		{ID: "2", Path: "/m/genesis/other.flac", Artist: "Genesis", Title: "Invisible Touch", Bitrate: 1000},
	})
	m := NewMatcher(idx)

	results, err := m.FindTracksBatch("genesis", []string{"mama"}, 3, MatchOptions{})
	if err != nil {
		t.Fatalf("FindTracksBatch: %v", err)
	}
	matches := results["mama"]
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Track.ID != "1" || matches[0].Pass != PassExact {
		t.Errorf("unexpected match: %+v", matches[0])
	}
}

func TestNormalizedPass(t *testing.T) {
	idx := testIndex([]Track{
		{ID: "1", Path: "/m/a.mp3", Artist: "Guns N' Roses", Title: "Sweet Child O' Mine", Bitrate: 320},
	})
	m := NewMatcher(idx)

	results, err := m.FindTracksBatch("Guns N Roses", []string{"Sweet Child O Mine"}, 1, MatchOptions{})
	if err != nil {
		t.Fatalf("FindTracksBatch: %v", err)
	}
	matches := results["Sweet Child O Mine"]
	if len(matches) != 1 || matches[0].Pass != PassNormalized {
		t.Fatalf("expected normalized-pass match, got %+v", matches)
	}
}

func TestPartialPassHandlesSuffixes(t *testing.T) {
	idx := testIndex([]Track{
		{ID: "1", Path: "/m/a.mp3", Artist: "Pink Floyd", Title: "Wish You Were Here (Remastered 2011)", Bitrate: 320},
	})
	m := NewMatcher(idx)

	results, err := m.FindTracksBatch("Pink Floyd", []string{"Wish You Were Here"}, 1, MatchOptions{})
	if err != nil {
		t.Fatalf("FindTracksBatch: %v", err)
	}
	matches := results["Wish You Were Here"]
	if len(matches) != 1 || matches[0].Pass != PassPartial {
		t.Fatalf("expected partial-pass match, got %+v", matches)
	}
}

func TestPassShortCircuit(t *testing.T) {
	// A title resolvable by the exact pass must never also surface the
	// partial-pass variant of the same name.
	idx := testIndex([]Track{
		{ID: "1", Path: "/m/a.flac", Artist: "Pink Floyd", Title: "Money", Bitrate: 1000},
		{ID: "2", Path: "/m/b.mp3", Artist: "Pink Floyd", Title: "Money (Live at Wembley)", Bitrate: 320},
	})
	m := NewMatcher(idx)

	results, err := m.FindTracksBatch("Pink Floyd", []string{"Money"}, 5, MatchOptions{})
	if err != nil {
		t.Fatalf("FindTracksBatch: %v", err)
	}
	matches := results["Money"]
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Track.ID != "1" || matches[0].Pass != PassExact {
		t.Errorf("expected exact match only, got %+v", matches[0])
	}
}

func TestPrefixAwareArtistMatch(t *testing.T) {
	idx := testIndex([]Track{
		{ID: "1", Path: "/m/a.mp3", Artist: "Beatles, The", Title: "Let It Be", Bitrate: 256},
	})
	m := NewMatcher(idx)

	results, err := m.FindTracksBatch("The Beatles", []string{"Let It Be"}, 1, MatchOptions{})
	if err != nil {
		t.Fatalf("FindTracksBatch: %v", err)
	}
	if len(results["Let It Be"]) != 1 {
		t.Fatalf("expected prefix-aware artist match, got %v", results)
	}
}

func TestFuzzyArtistFallback(t *testing.T) {
	idx := testIndex([]Track{
		{ID: "1", Path: "/m/a.mp3", Artist: "Motorhead", Title: "Ace of Spades", Bitrate: 320},
	})
	m := NewMatcher(idx)

	// Diacritics differ but the canonical keys already align; add a real
	// spelling drift to exercise the levenshtein fallback.
	results, err := m.FindTracksBatch("Motoerhead", []string{"Ace of Spades"}, 1, MatchOptions{})
	if err != nil {
		t.Fatalf("FindTracksBatch: %v", err)
	}
	if len(results["Ace of Spades"]) != 1 {
		t.Fatalf("expected fuzzy artist fallback match, got %v", results)
	}
}

func TestDedupPrefersBitrateThenRating(t *testing.T) {
	// Same composite identity (no ID, no path): title|album|artist.
	dupA := Track{Artist: "Yes", Album: "Fragile", Title: "Roundabout", Bitrate: 320, Rating: 3}
	dupB := Track{Artist: "Yes", Album: "Fragile", Title: "Roundabout", Bitrate: 1000, Rating: 2}
	dupC := Track{Artist: "Yes", Album: "Fragile", Title: "Roundabout", Bitrate: 1000, Rating: 4}

	matches := dedupMatches([]Match{
		{Track: dupA, Pass: PassExact},
		{Track: dupB, Pass: PassExact},
		{Track: dupC, Pass: PassExact},
	})
	if len(matches) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(matches))
	}
	got := matches[0].Track
	if got.Bitrate != 1000 || got.Rating != 4 {
		t.Errorf("expected highest bitrate then rating to survive, got %+v", got)
	}
}

func TestDedupDistinctKeysAllSurvive(t *testing.T) {
	a := Track{ID: "1", Title: "Roundabout", Bitrate: 320}
	b := Track{ID: "2", Title: "Roundabout", Bitrate: 192}
	matches := dedupMatches([]Match{{Track: a}, {Track: b}})
	if len(matches) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(matches))
	}
	// Ordered best quality first.
	if matches[0].Track.ID != "1" {
		t.Errorf("expected higher bitrate first, got %+v", matches[0].Track)
	}
}

func TestRatingFilter(t *testing.T) {
	idx := testIndex([]Track{
		{ID: "1", Path: "/m/a.mp3", Artist: "Rush", Title: "YYZ", Rating: 5, Bitrate: 320},
		{ID: "2", Path: "/m/b.mp3", Artist: "Rush", Title: "Limelight", Rating: 2, Bitrate: 320},
		{ID: "3", Path: "/m/c.mp3", Artist: "Rush", Title: "Subdivisions", Rating: 0, Bitrate: 320},
	})
	m := NewMatcher(idx)
	titles := []string{"YYZ", "Limelight", "Subdivisions"}

	results, err := m.FindTracksBatch("Rush", titles, 1, MatchOptions{MinRating: 3, AllowUnrated: true})
	if err != nil {
		t.Fatalf("FindTracksBatch: %v", err)
	}
	if len(results["YYZ"]) != 1 {
		t.Error("expected rated-above-threshold track to survive")
	}
	if len(results["Limelight"]) != 0 {
		t.Error("expected rated-below-threshold track to be dropped")
	}
	if len(results["Subdivisions"]) != 1 {
		t.Error("expected unrated track to survive with AllowUnrated")
	}

	results, err = m.FindTracksBatch("Rush", titles, 1, MatchOptions{MinRating: 3, AllowUnrated: false})
	if err != nil {
		t.Fatalf("FindTracksBatch: %v", err)
	}
	if len(results["Subdivisions"]) != 0 {
		t.Error("expected unrated track dropped without AllowUnrated")
	}
}

func TestPerTitleLimit(t *testing.T) {
	idx := testIndex([]Track{
		{ID: "1", Path: "/m/a.flac", Artist: "Genesis", Title: "Mama", Bitrate: 1000},
		{ID: "2", Path: "/m/b.mp3", Artist: "Genesis", Title: "Mama", Bitrate: 320},
		{ID: "3", Path: "/m/c.mp3", Artist: "Genesis", Title: "Mama", Bitrate: 192},
	})
	m := NewMatcher(idx)

	results, err := m.FindTracksBatch("Genesis", []string{"Mama"}, 2, MatchOptions{})
	if err != nil {
		t.Fatalf("FindTracksBatch: %v", err)
	}
	matches := results["Mama"]
	if len(matches) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(matches))
	}
	if matches[0].Track.Bitrate < matches[1].Track.Bitrate {
		t.Error("expected best quality first")
	}
}

func TestUnknownArtistNoError(t *testing.T) {
	idx := testIndex([]Track{
		{ID: "1", Path: "/m/a.mp3", Artist: "Genesis", Title: "Mama", Bitrate: 320},
	})
	m := NewMatcher(idx)

	results, err := m.FindTracksBatch("Nonexistent Band", []string{"Nothing"}, 1, MatchOptions{})
	if err != nil {
		t.Fatalf("expected no error for zero matches, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %v", results)
	}
}

func TestDedupKeyFallbacks(t *testing.T) {
	withID := Track{ID: "abc", Path: "/p", Title: "T", Album: "A", Artist: "X"}
	if withID.DedupKey() != "abc" {
		t.Errorf("expected ID key, got %s", withID.DedupKey())
	}
	withPath := Track{Path: "/p", Title: "T", Album: "A", Artist: "X"}
	if withPath.DedupKey() != "/p" {
		t.Errorf("expected path key, got %s", withPath.DedupKey())
	}
	composite := Track{Title: "T!", Album: "A", Artist: "The X"}
	same := Track{Title: "t", Album: "a", Artist: "the x"}
	if composite.DedupKey() != same.DedupKey() {
		t.Errorf("expected canonical composite keys to match: %s vs %s",
			composite.DedupKey(), same.DedupKey())
	}
}
