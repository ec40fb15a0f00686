package provider

import "testing"

func TestCacheKeyCanonicalization(t *testing.T) {
	k1 := Key("lastfm.artist.similar", 10, "The Beatles")
	k2 := Key("lastfm.artist.similar", 10, "the  beatles")
	if k1 != k2 {
		t.Errorf("expected same key for equivalent names: %q vs %q", k1, k2)
	}
	k3 := Key("lastfm.artist.similar", 20, "The Beatles")
	if k1 == k3 {
		t.Error("expected different key for different limit")
	}
	k4 := Key("lastfm.artist.toptracks", 10, "The Beatles")
	if k1 == k4 {
		t.Error("expected different key for different call")
	}
}

func TestCachePutGetClear(t *testing.T) {
	c := NewCache()
	key := Key("test", 1, "x")

	if _, ok := c.Get(key); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	c.Put(key, []SimilarArtist{{Name: "Genesis", Score: 0.9}})
	v, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got := v.([]SimilarArtist); got[0].Name != "Genesis" {
		t.Errorf("unexpected value: %+v", got)
	}

	// Same-key overwrite is last-write-wins.
	c.Put(key, []SimilarArtist{{Name: "Yes", Score: 0.8}})
	v, _ = c.Get(key)
	if got := v.([]SimilarArtist); got[0].Name != "Yes" {
		t.Errorf("expected overwrite, got %+v", got)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d entries", c.Len())
	}
}

func TestCachedFetchesOnceAndSkipsErrors(t *testing.T) {
	c := NewCache()
	calls := 0
	fetch := func() ([]TopTrack, error) {
		calls++
		return []TopTrack{{Title: "Mama", Rank: 1}}, nil
	}

	for range 3 {
		got, err := Cached(c, "k", fetch)
		if err != nil {
			t.Fatalf("Cached: %v", err)
		}
		if len(got) != 1 || got[0].Title != "Mama" {
			t.Fatalf("unexpected result: %+v", got)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 fetch, got %d", calls)
	}

	failing := func() ([]TopTrack, error) {
		return nil, &ErrUnavailable{Provider: NameLastFM, Kind: FailureNetwork}
	}
	if _, err := Cached(c, "fail", failing); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := c.Get("fail"); ok {
		t.Error("errors must not be cached")
	}
}
