// Package provider defines the shared contract for the two recommendation
// services driftwave talks to: the similarity provider (artist/track/tag
// expansion) and the context provider (mood/activity recommendation).
// Adapters live in subpackages; this package holds the result types, the
// error taxonomy, the per-provider rate limiters, and the session cache.
package provider

import (
	"fmt"
	"time"
)

// Name uniquely identifies a recommendation provider.
type Name string

// Known provider names.
const (
	NameLastFM  Name = "lastfm"
	NameCyanite Name = "cyanite"
)

// DisplayName returns a human-readable name for the provider.
func (n Name) DisplayName() string {
	switch n {
	case NameLastFM:
		return "Last.fm"
	case NameCyanite:
		return "Cyanite"
	default:
		return string(n)
	}
}

// AllNames returns all known provider names in display order.
func AllNames() []Name {
	return []Name{NameLastFM, NameCyanite}
}

// ContextKind selects the flavor of a context recommendation query.
type ContextKind string

// Context recommendation kinds.
const (
	ContextMood     ContextKind = "mood"
	ContextActivity ContextKind = "activity"
)

// SimilarArtist is one entry of an artist-similarity result, most-similar
// first. Score is in [0,1] as reported by the provider.
type SimilarArtist struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// SimilarTrack is one entry of a track-similarity result.
type SimilarTrack struct {
	Artist string  `json:"artist"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

// TopTrack is one entry of an artist's ranked top-tracks list.
type TopTrack struct {
	Title string `json:"title"`
	Rank  int    `json:"rank"`
}

// TagArtist is one entry of a tag's top-artists list.
type TagArtist struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Recommendation is one entry of a mood/activity recommendation result.
// Title may be empty when the provider recommends at artist granularity.
type Recommendation struct {
	Artist string  `json:"artist"`
	Title  string  `json:"title,omitempty"`
	Score  float64 `json:"score"`
}

// FailureKind classifies why a provider call failed.
type FailureKind string

// Failure kinds. An empty result is success, never a failure.
const (
	FailureNetwork   FailureKind = "network"
	FailureTimeout   FailureKind = "timeout"
	FailureRateLimit FailureKind = "rate_limit"
)

// ErrUnavailable indicates a provider call failed. Callers in the discovery
// pipeline recover locally: the affected seed or artist is skipped and the
// run continues.
type ErrUnavailable struct {
	Provider   Name
	Kind       FailureKind
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable (%s): %v", e.Provider, e.Kind, e.Cause)
}

func (e *ErrUnavailable) Unwrap() error { return e.Cause }

// ErrAuthRequired indicates the provider needs an API key but none is configured.
type ErrAuthRequired struct {
	Provider Name
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("provider %s: API key not configured", e.Provider)
}
