package library

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE tracks (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		artist TEXT NOT NULL,
		album_artist TEXT NOT NULL DEFAULT '',
		album TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		genre TEXT NOT NULL DEFAULT '',
		rating INTEGER NOT NULL DEFAULT 0,
		bitrate INTEGER NOT NULL DEFAULT 0,
		added_at TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("creating tracks table: %v", err)
	}
	return NewStore(db)
}

func TestUpsertAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	track := &Track{Path: "/m/genesis/mama.mp3", Artist: "Genesis", Title: "Mama", Bitrate: 320}
	if err := s.Upsert(ctx, track); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if track.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetByPath(ctx, "/m/genesis/mama.mp3")
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if got == nil || got.Title != "Mama" || got.Artist != "Genesis" {
		t.Errorf("unexpected track: %+v", got)
	}

	byID, err := s.GetByID(ctx, track.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID == nil || byID.Path != track.Path {
		t.Errorf("unexpected track by id: %+v", byID)
	}
}

func TestUpsertSamePathPreservesIDAndRating(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	first := &Track{Path: "/m/a.mp3", Artist: "Yes", Title: "Roundabout", Bitrate: 192}
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.SetRating(ctx, first.ID, 4); err != nil {
		t.Fatalf("SetRating: %v", err)
	}

	// Rescan rewrites metadata, not identity or rating.
	again := &Track{Path: "/m/a.mp3", Artist: "Yes", Title: "Roundabout", Bitrate: 320, ID: first.ID, Rating: 4}
	if err := s.Upsert(ctx, again); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, err := s.GetByPath(ctx, "/m/a.mp3")
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("expected ID preserved, got %s vs %s", got.ID, first.ID)
	}
	if got.Rating != 4 {
		t.Errorf("expected rating preserved, got %d", got.Rating)
	}
	if got.Bitrate != 320 {
		t.Errorf("expected bitrate updated, got %d", got.Bitrate)
	}
}

func TestSetRatingValidation(t *testing.T) {
	s := setupStore(t)
	if err := s.SetRating(context.Background(), "missing", 6); err == nil {
		t.Error("expected error for out-of-range rating")
	}
	if err := s.SetRating(context.Background(), "missing", 3); err == nil {
		t.Error("expected error for unknown track")
	}
}

func TestDeleteMissing(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for _, p := range []string{"/m/a.mp3", "/m/b.mp3", "/m/c.mp3"} {
		if err := s.Upsert(ctx, &Track{Path: p, Artist: "X", Title: p}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	keep := map[string]struct{}{"/m/a.mp3": {}, "/m/c.mp3": {}}
	removed, err := s.DeleteMissing(ctx, keep)
	if err != nil {
		t.Fatalf("DeleteMissing: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 tracks, got %d", len(all))
	}
}

func TestIndexLoad(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	tracks := []*Track{
		{Path: "/m/1.mp3", Artist: "Beatles, The", Title: "Let It Be", Genre: "Rock"},
		{Path: "/m/2.mp3", Artist: "Genesis", Title: "Mama", Genre: "Progressive Rock"},
	}
	for _, tr := range tracks {
		if err := s.Upsert(ctx, tr); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	idx := NewIndex()
	if idx.Ready() {
		t.Fatal("index should not be ready before load")
	}
	if err := idx.Load(ctx, s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !idx.Ready() {
		t.Fatal("index should be ready after load")
	}
	if idx.Size() != 2 {
		t.Errorf("expected 2 tracks, got %d", idx.Size())
	}

	// Prefix-aware bucket: both orderings resolve.
	if got := idx.tracksForArtistKey(artistKey("The Beatles")); len(got) != 1 {
		t.Errorf("expected prefix-aware lookup to find 1 track, got %d", len(got))
	}
}

func TestGenresForTracks(t *testing.T) {
	tracks := []Track{
		{Genre: "Rock"},
		{Genre: "rock"},
		{Genre: ""},
		{Genre: "Jazz"},
	}
	got := GenresForTracks(tracks)
	if len(got) != 2 || got[0] != "Rock" || got[1] != "Jazz" {
		t.Errorf("unexpected genres: %v", got)
	}
}
