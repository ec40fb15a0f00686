package run

import (
	"fmt"
	"strings"

	"github.com/sydlexius/driftwave/internal/discover"
	"github.com/sydlexius/driftwave/internal/normalize"
)

// PlaylistMode controls what happens to the target playlist.
type PlaylistMode string

// Playlist modes. PlaylistDoNotCreate redirects the output to the
// playback queue when the named playlist does not already exist; this
// quiet redirect is intended behavior, not an error.
const (
	PlaylistCreate      PlaylistMode = "create"
	PlaylistOverwrite   PlaylistMode = "overwrite"
	PlaylistDoNotCreate PlaylistMode = "do-not-create"
)

// Config is the immutable tunable snapshot for one generation run.
// Build it with NewConfig; a zero or hand-rolled Config may carry
// out-of-range values.
type Config struct {
	Strategy discover.Kind `json:"strategy" yaml:"strategy"`

	SeedLimit       int `json:"seed_limit" yaml:"seed_limit"`
	SimilarLimit    int `json:"similar_limit" yaml:"similar_limit"`
	TracksPerArtist int `json:"tracks_per_artist" yaml:"tracks_per_artist"`
	TotalLimit      int `json:"total_limit" yaml:"total_limit"`

	IncludeSeedArtists bool    `json:"include_seed_artists" yaml:"include_seed_artists"`
	BlendRatio         float64 `json:"blend_ratio" yaml:"blend_ratio"`
	ContextValue       string  `json:"context_value,omitempty" yaml:"context_value"`
	GenreHint          string  `json:"genre_hint,omitempty" yaml:"genre_hint"`

	Blacklist    []string `json:"blacklist,omitempty" yaml:"blacklist"`
	MinRating    int      `json:"min_rating" yaml:"min_rating"`
	AllowUnrated bool     `json:"allow_unrated" yaml:"allow_unrated"`

	Rank    bool `json:"rank" yaml:"rank"`
	Shuffle bool `json:"shuffle" yaml:"shuffle"`

	Enqueue        bool `json:"enqueue" yaml:"enqueue"`
	ClearQueue     bool `json:"clear_queue" yaml:"clear_queue"`
	SkipDuplicates bool `json:"skip_duplicates" yaml:"skip_duplicates"`

	PlaylistMode     PlaylistMode `json:"playlist_mode" yaml:"playlist_mode"`
	PlaylistTemplate string       `json:"playlist_template" yaml:"playlist_template"`
	ParentPlaylist   string       `json:"parent_playlist,omitempty" yaml:"parent_playlist"`

	AutoMode bool `json:"auto_mode" yaml:"auto_mode"`
}

// Auto-mode caps. Unattended runs stay small so a background trigger
// never produces a surprise hour-long queue.
const (
	autoMaxSimilar         = 5
	autoMaxTracksPerArtist = 2
	autoMaxTotal           = 10
)

// NewConfig validates and normalizes a run configuration. Out-of-range
// values are rejected here, never at point of use.
func NewConfig(c Config) (Config, error) {
	if c.Strategy == "" {
		c.Strategy = discover.KindArtist
	}
	if !c.Strategy.Valid() {
		return Config{}, fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	if c.BlendRatio < 0 || c.BlendRatio > 1 {
		return Config{}, fmt.Errorf("blend ratio must be within [0, 1], got %g", c.BlendRatio)
	}
	if c.SeedLimit <= 0 {
		c.SeedLimit = 5
	}
	if c.SimilarLimit <= 0 {
		return Config{}, fmt.Errorf("similar limit must be positive, got %d", c.SimilarLimit)
	}
	if c.TracksPerArtist <= 0 {
		return Config{}, fmt.Errorf("tracks per artist must be positive, got %d", c.TracksPerArtist)
	}
	if c.TotalLimit <= 0 {
		return Config{}, fmt.Errorf("total limit must be positive, got %d", c.TotalLimit)
	}
	if c.MinRating < 0 || c.MinRating > 5 {
		return Config{}, fmt.Errorf("min rating must be 0-5, got %d", c.MinRating)
	}
	if (c.Strategy == discover.KindMood || c.Strategy == discover.KindActivity) && c.ContextValue == "" {
		return Config{}, fmt.Errorf("strategy %s requires a context value", c.Strategy)
	}
	if c.PlaylistMode == "" {
		c.PlaylistMode = PlaylistCreate
	}
	switch c.PlaylistMode {
	case PlaylistCreate, PlaylistOverwrite, PlaylistDoNotCreate:
	default:
		return Config{}, fmt.Errorf("unknown playlist mode %q", c.PlaylistMode)
	}
	if c.PlaylistTemplate == "" {
		c.PlaylistTemplate = "Driftwave: %"
	}
	if c.AutoMode {
		c = applyAutoOverrides(c)
	}
	return c, nil
}

// applyAutoOverrides forces the conservative unattended limits and routes
// output to the queue.
func applyAutoOverrides(c Config) Config {
	if c.SimilarLimit > autoMaxSimilar {
		c.SimilarLimit = autoMaxSimilar
	}
	if c.TracksPerArtist > autoMaxTracksPerArtist {
		c.TracksPerArtist = autoMaxTracksPerArtist
	}
	if c.TotalLimit > autoMaxTotal {
		c.TotalLimit = autoMaxTotal
	}
	c.Enqueue = true
	c.ClearQueue = false
	c.SkipDuplicates = true
	return c
}

// PlaylistName substitutes the seed label into the name template.
func (c Config) PlaylistName(seedLabel string) string {
	if seedLabel == "" {
		seedLabel = "Mix"
	}
	return strings.ReplaceAll(c.PlaylistTemplate, "%", seedLabel)
}

// discoverParams translates the run configuration into discovery knobs.
func (c Config) discoverParams() discover.Params {
	blacklist := make(map[string]struct{}, len(c.Blacklist))
	for _, name := range c.Blacklist {
		if key := normalize.CanonicalKey(name); key != "" {
			blacklist[key] = struct{}{}
		}
	}
	return discover.Params{
		SimilarLimit:       c.SimilarLimit,
		TracksPerArtist:    c.TracksPerArtist,
		IncludeSeedArtists: c.IncludeSeedArtists,
		BlendRatio:         c.BlendRatio,
		ContextValue:       c.ContextValue,
		GenreHint:          c.GenreHint,
		Blacklist:          blacklist,
	}
}
