package cyanite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sydlexius/driftwave/internal/encryption"
	"github.com/sydlexius/driftwave/internal/provider"
	_ "modernc.org/sqlite"
)

func setupTest(t *testing.T) (*provider.RateLimiterMap, *provider.SettingsService, *provider.Cache) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TEXT NOT NULL DEFAULT (datetime('now')))`)
	if err != nil {
		t.Fatalf("creating settings table: %v", err)
	}
	enc, _, _ := encryption.New("")
	limiter := provider.NewRateLimiterMap()
	settings := provider.NewSettingsService(db, enc)
	if err := settings.SetAPIKey(context.Background(), provider.NameCyanite, "test-key"); err != nil {
		t.Fatalf("setting test key: %v", err)
	}
	return limiter, settings, provider.NewCache()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRecommend(t *testing.T) {
	limiter, settings, cache := setupTest(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/recommendations" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			Kind  string `json:"kind"`
			Value string `json:"value"`
			Limit int    `json:"limit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Kind != "mood" || req.Value != "energetic" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"recommendations":[
			{"artist":"The Prodigy","title":"Firestarter","score":0.95},
			{"artist":"Pendulum","score":0.88}
		]}`))
	}))
	defer srv.Close()

	a := NewWithBaseURL(limiter, settings, cache, testLogger(), srv.URL)
	recs, err := a.Recommend(context.Background(), provider.ContextMood, "energetic", "", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].Artist != "The Prodigy" || recs[0].Title != "Firestarter" {
		t.Errorf("unexpected first recommendation: %+v", recs[0])
	}
	if recs[1].Title != "" {
		t.Errorf("expected artist-only recommendation, got title %q", recs[1].Title)
	}
}

func TestRecommendUnknownValueIsEmpty(t *testing.T) {
	limiter, settings, cache := setupTest(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := NewWithBaseURL(limiter, settings, cache, testLogger(), srv.URL)
	recs, err := a.Recommend(context.Background(), provider.ContextActivity, "spelunking", "", 10)
	if err != nil {
		t.Fatalf("expected empty result, got error: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected 0 recommendations, got %d", len(recs))
	}
}

func TestRecommendAuthError(t *testing.T) {
	limiter, settings, cache := setupTest(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := NewWithBaseURL(limiter, settings, cache, testLogger(), srv.URL)
	_, err := a.Recommend(context.Background(), provider.ContextMood, "calm", "", 5)
	var authErr *provider.ErrAuthRequired
	if !errors.As(err, &authErr) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestRecommendServerError(t *testing.T) {
	limiter, settings, cache := setupTest(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewWithBaseURL(limiter, settings, cache, testLogger(), srv.URL)
	_, err := a.Recommend(context.Background(), provider.ContextMood, "calm", "", 5)
	var unavailable *provider.ErrUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
