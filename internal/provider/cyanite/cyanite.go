// Package cyanite implements the context provider adapter: mood and
// activity based track recommendations from the Cyanite API.
package cyanite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sydlexius/driftwave/internal/provider"
)

const defaultBaseURL = "https://api.cyanite.ai/v1"

// Adapter is the Cyanite context-recommendation adapter.
type Adapter struct {
	client   *http.Client
	limiter  *provider.RateLimiterMap
	settings *provider.SettingsService
	cache    *provider.Cache
	logger   *slog.Logger
	baseURL  string
}

// New creates a Cyanite adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, settings *provider.SettingsService, cache *provider.Cache, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, settings, cache, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Cyanite adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, settings *provider.SettingsService, cache *provider.Cache, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  limiter,
		settings: settings,
		cache:    cache,
		logger:   logger.With(slog.String("provider", "cyanite")),
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.Name { return provider.NameCyanite }

type recommendRequest struct {
	Kind      string `json:"kind"`
	Value     string `json:"value"`
	GenreHint string `json:"genre_hint,omitempty"`
	Limit     int    `json:"limit"`
}

type recommendResponse struct {
	Recommendations []struct {
		Artist string  `json:"artist"`
		Title  string  `json:"title,omitempty"`
		Score  float64 `json:"score"`
	} `json:"recommendations"`
}

// Recommend returns up to limit (artist, optional title, score) tuples for a
// mood or activity query. An unknown mood/activity yields an empty slice.
func (a *Adapter) Recommend(ctx context.Context, kind provider.ContextKind, value, genreHint string, limit int) ([]provider.Recommendation, error) {
	key := provider.Key("cyanite.recommend", limit, string(kind), value, genreHint)
	return provider.Cached(a.cache, key, func() ([]provider.Recommendation, error) {
		apiKey, err := a.settings.GetAPIKey(ctx, provider.NameCyanite)
		if err != nil {
			return nil, fmt.Errorf("getting API key: %w", err)
		}
		if apiKey == "" {
			return nil, &provider.ErrAuthRequired{Provider: provider.NameCyanite}
		}

		if err := a.limiter.Wait(ctx, provider.NameCyanite); err != nil {
			return nil, &provider.ErrUnavailable{
				Provider: provider.NameCyanite,
				Kind:     provider.FailureRateLimit,
				Cause:    fmt.Errorf("rate limiter: %w", err),
			}
		}

		payload, err := json.Marshal(recommendRequest{
			Kind:      string(kind),
			Value:     value,
			GenreHint: genreHint,
			Limit:     limit,
		})
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/recommendations", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Driftwave/1.0")

		a.logger.Debug("requesting",
			slog.String("kind", string(kind)),
			slog.String("value", value))

		resp, err := a.client.Do(req)
		if err != nil {
			kind := provider.FailureNetwork
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				kind = provider.FailureTimeout
			}
			return nil, &provider.ErrUnavailable{Provider: provider.NameCyanite, Kind: kind, Cause: err}
		}
		defer resp.Body.Close() //nolint:errcheck

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, &provider.ErrAuthRequired{Provider: provider.NameCyanite}
		case resp.StatusCode == http.StatusNotFound:
			// Unknown mood/activity value: empty data, not a failure.
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, &provider.ErrUnavailable{
				Provider: provider.NameCyanite,
				Kind:     provider.FailureRateLimit,
				Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
			}
		case resp.StatusCode != http.StatusOK:
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, &provider.ErrUnavailable{
				Provider: provider.NameCyanite,
				Kind:     provider.FailureNetwork,
				Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
			}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
		if err != nil {
			return nil, &provider.ErrUnavailable{Provider: provider.NameCyanite, Kind: provider.FailureNetwork, Cause: err}
		}

		var parsed recommendResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("parsing recommendations: %w", err)
		}

		results := make([]provider.Recommendation, 0, len(parsed.Recommendations))
		for _, rec := range parsed.Recommendations {
			if rec.Artist == "" {
				continue
			}
			results = append(results, provider.Recommendation{
				Artist: rec.Artist,
				Title:  rec.Title,
				Score:  rec.Score,
			})
		}
		return results, nil
	})
}

// TestConnection verifies the API key is valid.
func (a *Adapter) TestConnection(ctx context.Context) error {
	_, err := a.Recommend(ctx, provider.ContextMood, "calm", "", 1)
	return err
}
