// Package lastfm implements the similarity provider adapter over the
// Last.fm web API: artist similarity, track similarity, tag top artists,
// and ranked artist top tracks.
package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/driftwave/internal/provider"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0"

// Last.fm application error codes.
const (
	codeInvalidParams = 6  // unknown artist/track/tag
	codeRateLimited   = 29 // rate limit exceeded
)

// Adapter is the Last.fm similarity adapter.
type Adapter struct {
	client   *http.Client
	limiter  *provider.RateLimiterMap
	settings *provider.SettingsService
	cache    *provider.Cache
	logger   *slog.Logger
	baseURL  string
}

// New creates a Last.fm adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, settings *provider.SettingsService, cache *provider.Cache, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, settings, cache, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Last.fm adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, settings *provider.SettingsService, cache *provider.Cache, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:   &http.Client{Timeout: 10 * time.Second},
		limiter:  limiter,
		settings: settings,
		cache:    cache,
		logger:   logger.With(slog.String("provider", "lastfm")),
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.Name { return provider.NameLastFM }

// SimilarArtists returns up to limit artists similar to the given artist,
// most-similar first. An artist unknown to Last.fm yields an empty slice,
// not an error.
func (a *Adapter) SimilarArtists(ctx context.Context, artist string, limit int) ([]provider.SimilarArtist, error) {
	key := provider.Key("lastfm.artist.similar", limit, artist)
	return provider.Cached(a.cache, key, func() ([]provider.SimilarArtist, error) {
		body, err := a.call(ctx, url.Values{
			"method": {"artist.getsimilar"},
			"artist": {artist},
			"limit":  {strconv.Itoa(limit)},
		})
		if err != nil {
			return nil, err
		}

		var resp similarArtistsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("parsing similar artists: %w", err)
		}

		results := make([]provider.SimilarArtist, 0, len(resp.SimilarArtists.Artist))
		for _, art := range resp.SimilarArtists.Artist {
			if art.Name == "" {
				continue
			}
			score, _ := strconv.ParseFloat(art.Match, 64)
			results = append(results, provider.SimilarArtist{Name: art.Name, Score: score})
		}
		return results, nil
	})
}

// SimilarTracks returns up to limit tracks similar to the given track.
func (a *Adapter) SimilarTracks(ctx context.Context, artist, title string, limit int) ([]provider.SimilarTrack, error) {
	key := provider.Key("lastfm.track.similar", limit, artist, title)
	return provider.Cached(a.cache, key, func() ([]provider.SimilarTrack, error) {
		body, err := a.call(ctx, url.Values{
			"method": {"track.getsimilar"},
			"artist": {artist},
			"track":  {title},
			"limit":  {strconv.Itoa(limit)},
		})
		if err != nil {
			return nil, err
		}

		var resp similarTracksResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("parsing similar tracks: %w", err)
		}

		results := make([]provider.SimilarTrack, 0, len(resp.SimilarTracks.Track))
		for _, tr := range resp.SimilarTracks.Track {
			if tr.Name == "" || tr.Artist.Name == "" {
				continue
			}
			results = append(results, provider.SimilarTrack{
				Artist: tr.Artist.Name,
				Title:  tr.Name,
				Score:  tr.Match,
			})
		}
		return results, nil
	})
}

// TopTracks returns up to limit of the artist's top tracks, rank order.
func (a *Adapter) TopTracks(ctx context.Context, artist string, limit int) ([]provider.TopTrack, error) {
	key := provider.Key("lastfm.artist.toptracks", limit, artist)
	return provider.Cached(a.cache, key, func() ([]provider.TopTrack, error) {
		body, err := a.call(ctx, url.Values{
			"method": {"artist.gettoptracks"},
			"artist": {artist},
			"limit":  {strconv.Itoa(limit)},
		})
		if err != nil {
			return nil, err
		}

		var resp topTracksResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("parsing top tracks: %w", err)
		}

		results := make([]provider.TopTrack, 0, len(resp.TopTracks.Track))
		for i, tr := range resp.TopTracks.Track {
			if tr.Name == "" {
				continue
			}
			rank, err := strconv.Atoi(tr.Attr.Rank)
			if err != nil {
				rank = i + 1
			}
			results = append(results, provider.TopTrack{Title: tr.Name, Rank: rank})
		}
		return results, nil
	})
}

// TagTopArtists returns up to limit of the tag's top artists, rank order.
// Scores are synthesized from rank since the endpoint does not report one.
func (a *Adapter) TagTopArtists(ctx context.Context, tag string, limit int) ([]provider.TagArtist, error) {
	key := provider.Key("lastfm.tag.topartists", limit, tag)
	return provider.Cached(a.cache, key, func() ([]provider.TagArtist, error) {
		body, err := a.call(ctx, url.Values{
			"method": {"tag.gettopartists"},
			"tag":    {tag},
			"limit":  {strconv.Itoa(limit)},
		})
		if err != nil {
			return nil, err
		}

		var resp tagTopArtistsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("parsing tag top artists: %w", err)
		}

		results := make([]provider.TagArtist, 0, len(resp.TopArtists.Artist))
		for i, art := range resp.TopArtists.Artist {
			if art.Name == "" {
				continue
			}
			results = append(results, provider.TagArtist{
				Name:  art.Name,
				Score: 1.0 / float64(i+1),
			})
		}
		return results, nil
	})
}

// TestConnection verifies the API key is valid.
func (a *Adapter) TestConnection(ctx context.Context) error {
	_, err := a.call(ctx, url.Values{
		"method": {"artist.getsimilar"},
		"artist": {"test"},
		"limit":  {"1"},
	})
	return err
}

// call performs a GET against the Last.fm API and returns the raw body.
func (a *Adapter) call(ctx context.Context, params url.Values) ([]byte, error) {
	apiKey, err := a.settings.GetAPIKey(ctx, provider.NameLastFM)
	if err != nil {
		return nil, fmt.Errorf("getting API key: %w", err)
	}
	if apiKey == "" {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameLastFM}
	}

	if err := a.limiter.Wait(ctx, provider.NameLastFM); err != nil {
		return nil, &provider.ErrUnavailable{
			Provider: provider.NameLastFM,
			Kind:     provider.FailureRateLimit,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	params.Set("api_key", apiKey)
	params.Set("format", "json")
	params.Set("autocorrect", "1")
	reqURL := a.baseURL + "/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Driftwave/1.0")
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("method", params.Get("method")))

	resp, err := a.client.Do(req)
	if err != nil {
		kind := provider.FailureNetwork
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = provider.FailureTimeout
		}
		return nil, &provider.ErrUnavailable{Provider: provider.NameLastFM, Kind: kind, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrAuthRequired{Provider: provider.NameLastFM}
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrUnavailable{
			Provider: provider.NameLastFM,
			Kind:     provider.FailureRateLimit,
			Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrUnavailable{
			Provider: provider.NameLastFM,
			Kind:     provider.FailureNetwork,
			Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, &provider.ErrUnavailable{Provider: provider.NameLastFM, Kind: provider.FailureNetwork, Cause: err}
	}

	// Last.fm reports application errors inside a 200 response.
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		// Unknown artist/track/tag is empty data, not a failure.
		if apiErr.Error == codeInvalidParams {
			return []byte("{}"), nil
		}
		kind := provider.FailureNetwork
		if apiErr.Error == codeRateLimited {
			kind = provider.FailureRateLimit
		}
		return nil, &provider.ErrUnavailable{
			Provider: provider.NameLastFM,
			Kind:     kind,
			Cause:    fmt.Errorf("lastfm error %d: %s", apiErr.Error, apiErr.Message),
		}
	}

	return body, nil
}
