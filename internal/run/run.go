// Package run drives one playlist generation from seeds to output: seed
// collection, discovery, library matching, post-processing, and the
// playlist-or-queue dispatch. One run is a linear pass with no state
// shared across runs; at most one run executes at a time.
package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sydlexius/driftwave/internal/discover"
	"github.com/sydlexius/driftwave/internal/event"
	"github.com/sydlexius/driftwave/internal/library"
	"github.com/sydlexius/driftwave/internal/normalize"
	"github.com/sydlexius/driftwave/internal/playlist"
)

// Run errors surfaced to the caller.
var (
	// ErrNoSeeds means nothing was selected and nothing is playing.
	ErrNoSeeds = errors.New("no seeds: select tracks or start playback")

	// ErrNoMatches means discovery worked but nothing resolved in the
	// library. Informational, not a failure.
	ErrNoMatches = errors.New("no library matches for discovered candidates")

	// ErrRunInProgress means another run holds the single run slot.
	ErrRunInProgress = errors.New("a generation run is already in progress")
)

// ErrCommit wraps a failure to persist the output playlist or queue.
type ErrCommit struct {
	Target string
	Cause  error
}

func (e *ErrCommit) Error() string {
	return fmt.Sprintf("committing %s: %v", e.Target, e.Cause)
}

func (e *ErrCommit) Unwrap() error { return e.Cause }

// State names the phase a run is in.
type State string

// Run states, in order. StateFailed is reachable from any non-done state.
const (
	StateInit         State = "init"
	StateCollectSeeds State = "collect_seeds"
	StateDiscover     State = "discover"
	StateMatch        State = "match"
	StatePostprocess  State = "postprocess"
	StateDispatch     State = "dispatch_output"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Result is the outcome of one run.
type Result struct {
	RunID      string          `json:"run_id"`
	State      State           `json:"state"`
	Strategy   discover.Kind   `json:"strategy"`
	SeedNames  []string        `json:"seed_names,omitempty"`
	Candidates int             `json:"candidates"`
	Tracks     []library.Track `json:"tracks,omitempty"`
	Output     string          `json:"output,omitempty"` // "playlist" or "queue"
	PlaylistID string          `json:"playlist_id,omitempty"`
	Playlist   string          `json:"playlist,omitempty"`
	Queued     int             `json:"queued,omitempty"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// SelectionSource supplies the seeds: the user's current selection, or
// the playing track as a fallback.
type SelectionSource interface {
	SelectedTracks(ctx context.Context) ([]library.Track, error)
	NowPlaying(ctx context.Context) (*library.Track, error)
}

// TrackRankMap holds per-track discovery scores for the rank sort,
// keyed by dedup key. Owned by one run, discarded after.
type TrackRankMap map[string]float64

// Orchestrator executes generation runs.
type Orchestrator struct {
	sim       discover.SimilarityClient
	ctxc      discover.ContextClient
	matcher   *library.Matcher
	playlists *playlist.Store
	queue     *playlist.Queue
	selection SelectionSource
	bus       *event.Bus
	logger    *slog.Logger

	running atomic.Bool

	mu     sync.Mutex
	latest *Result

	// shuffleFn is swappable for deterministic tests.
	shuffleFn func(n int, swap func(i, j int))
}

// NewOrchestrator wires an orchestrator.
func NewOrchestrator(sim discover.SimilarityClient, ctxc discover.ContextClient, matcher *library.Matcher,
	playlists *playlist.Store, queue *playlist.Queue, selection SelectionSource,
	bus *event.Bus, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sim:       sim,
		ctxc:      ctxc,
		matcher:   matcher,
		playlists: playlists,
		queue:     queue,
		selection: selection,
		bus:       bus,
		logger:    logger.With(slog.String("component", "orchestrator")),
		shuffleFn: rand.Shuffle,
	}
}

// Latest returns the most recent run result, or nil before the first run.
func (o *Orchestrator) Latest() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.latest == nil {
		return nil
	}
	snapshot := *o.latest
	return &snapshot
}

// Run executes one generation end to end. A second call while a run is
// in flight returns ErrRunInProgress immediately; triggers are dropped,
// never queued. Run never lets a panic or unclassified error escape.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (result *Result, err error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	cfg, err = NewConfig(cfg)
	if err != nil {
		return nil, err
	}

	result = &Result{
		RunID:     uuid.New().String(),
		State:     StateInit,
		Strategy:  cfg.Strategy,
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("run panicked", slog.String("run_id", result.RunID), "panic", r)
			err = fmt.Errorf("internal error: %v", r)
			o.fail(result, err)
		}
	}()

	o.publish(event.RunStarted, map[string]any{"run_id": result.RunID, "strategy": string(cfg.Strategy)})
	o.logger.Info("run starting",
		slog.String("run_id", result.RunID),
		slog.String("strategy", string(cfg.Strategy)),
		slog.Bool("auto", cfg.AutoMode))

	result.State = StateCollectSeeds
	seeds, err := o.collectSeeds(ctx, cfg)
	if err != nil {
		o.fail(result, err)
		return result, err
	}
	for _, s := range seeds {
		result.SeedNames = append(result.SeedNames, s.Name)
	}

	result.State = StateDiscover
	strategy, err := discover.ForKind(cfg.Strategy, o.sim, o.ctxc, o.logger)
	if err != nil {
		o.fail(result, err)
		return result, err
	}

	result.State = StateMatch
	tracks, ranks, candidates, err := o.discoverAndMatch(ctx, strategy, seeds, cfg)
	result.Candidates = candidates
	if err != nil {
		o.fail(result, err)
		return result, err
	}
	if err := ctx.Err(); err != nil {
		o.fail(result, err)
		return result, err
	}
	if len(tracks) == 0 {
		result.State = StateDone
		result.Message = ErrNoMatches.Error()
		result.FinishedAt = time.Now().UTC()
		o.store(result)
		o.publish(event.RunCompleted, map[string]any{"run_id": result.RunID, "tracks": 0})
		o.logger.Info("run finished without matches", slog.String("run_id", result.RunID))
		return result, ErrNoMatches
	}

	result.State = StatePostprocess
	o.postprocess(tracks, ranks, cfg)
	result.Tracks = tracks

	result.State = StateDispatch
	if err := ctx.Err(); err != nil {
		o.fail(result, err)
		return result, err
	}
	if err := o.dispatch(ctx, cfg, seeds, tracks, result); err != nil {
		o.fail(result, err)
		return result, err
	}

	result.State = StateDone
	result.FinishedAt = time.Now().UTC()
	o.store(result)
	o.publish(event.RunCompleted, map[string]any{
		"run_id": result.RunID,
		"tracks": len(tracks),
		"output": result.Output,
	})
	o.logger.Info("run complete",
		slog.String("run_id", result.RunID),
		slog.Int("tracks", len(tracks)),
		slog.String("output", result.Output))
	return result, nil
}

// collectSeeds derives distinct seed artists from the selection, falling
// back to the playing track. Multi-artist strings contribute one seed per
// artist; duplicates by canonical key collapse to the first occurrence.
func (o *Orchestrator) collectSeeds(ctx context.Context, cfg Config) ([]discover.Seed, error) {
	tracks, err := o.selection.SelectedTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading selection: %w", err)
	}
	if len(tracks) == 0 {
		playing, err := o.selection.NowPlaying(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading playback state: %w", err)
		}
		if playing != nil {
			tracks = []library.Track{*playing}
		}
	}
	if len(tracks) == 0 {
		return nil, ErrNoSeeds
	}

	var seeds []discover.Seed
	seen := make(map[string]struct{})
	for _, t := range tracks {
		for _, name := range normalize.SplitArtists(t.Artist) {
			key := normalize.CanonicalKey(name)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			seeds = append(seeds, discover.Seed{Name: name, Source: t})
			if len(seeds) >= cfg.SeedLimit {
				return seeds, nil
			}
		}
	}
	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}
	return seeds, nil
}

// discoverAndMatch streams candidate batches from the strategy straight
// into the matcher. The total limit is checked after every appended
// track; once reached the sink declines and discovery stops issuing
// provider calls. A matcher index failure aborts the run.
func (o *Orchestrator) discoverAndMatch(ctx context.Context, strategy discover.Strategy, seeds []discover.Seed, cfg Config) ([]library.Track, TrackRankMap, int, error) {
	var (
		tracks     []library.Track
		candidates int
		fatal      error
	)
	ranks := make(TrackRankMap)
	seen := make(map[string]struct{})
	opts := library.MatchOptions{MinRating: cfg.MinRating, AllowUnrated: cfg.AllowUnrated}

	sink := func(batch []discover.Candidate) bool {
		if ctx.Err() != nil {
			return false
		}
		candidates += len(batch)

		for _, artist := range artistOrder(batch) {
			group := groupFor(batch, artist)
			titles := make([]string, 0, len(group))
			for _, c := range group {
				titles = append(titles, c.Title)
			}

			found, err := o.matcher.FindTracksBatch(artist, titles, 1, opts)
			if err != nil {
				fatal = err
				return false
			}

			for _, c := range group {
				for _, m := range found[c.Title] {
					key := m.Track.DedupKey()
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}
					if cfg.Rank {
						ranks[key] = c.Score
					}
					tracks = append(tracks, m.Track)
					if len(tracks) >= cfg.TotalLimit {
						return false
					}
				}
			}
		}
		return true
	}

	if err := strategy.Discover(ctx, seeds, cfg.discoverParams(), sink); err != nil {
		return nil, nil, candidates, err
	}
	if fatal != nil {
		return nil, nil, candidates, fatal
	}
	return tracks, ranks, candidates, nil
}

// artistOrder lists the batch's artists in first-appearance order so
// matching stays deterministic for mixed-artist batches.
func artistOrder(batch []discover.Candidate) []string {
	var order []string
	seen := make(map[string]struct{})
	for _, c := range batch {
		if _, ok := seen[c.Artist]; ok {
			continue
		}
		seen[c.Artist] = struct{}{}
		order = append(order, c.Artist)
	}
	return order
}

func groupFor(batch []discover.Candidate, artist string) []discover.Candidate {
	var group []discover.Candidate
	for _, c := range batch {
		if c.Artist == artist {
			group = append(group, c)
		}
	}
	return group
}

// postprocess applies the rank sort and then the shuffle. Both flags are
// independent; shuffle runs last since it exists to destroy ordering
// bias.
func (o *Orchestrator) postprocess(tracks []library.Track, ranks TrackRankMap, cfg Config) {
	if cfg.Rank {
		sort.SliceStable(tracks, func(i, j int) bool {
			return ranks[tracks[i].DedupKey()] > ranks[tracks[j].DedupKey()]
		})
	}
	if cfg.Shuffle {
		o.shuffleFn(len(tracks), func(i, j int) {
			tracks[i], tracks[j] = tracks[j], tracks[i]
		})
	}
}

// dispatch resolves the output target exactly once, before any
// collection object is created, then commits the tracks. Playlist
// population is all or nothing: a creation that fails to populate is
// rolled back.
func (o *Orchestrator) dispatch(ctx context.Context, cfg Config, seeds []discover.Seed, tracks []library.Track, result *Result) error {
	toQueue := cfg.AutoMode || cfg.Enqueue

	var name string
	var existing *playlist.Playlist
	if !toQueue {
		seedLabel := ""
		if len(seeds) > 0 {
			seedLabel = seeds[0].Name
		}
		name = cfg.PlaylistName(seedLabel)

		var err error
		existing, err = o.playlists.FindByName(ctx, name)
		if err != nil {
			return &ErrCommit{Target: "playlist", Cause: err}
		}
		if cfg.PlaylistMode == PlaylistDoNotCreate && existing == nil {
			toQueue = true
		}
	}

	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, t.ID)
	}

	if toQueue {
		if cfg.ClearQueue {
			if err := o.queue.Clear(ctx); err != nil {
				return &ErrCommit{Target: "queue", Cause: err}
			}
		}
		added, err := o.queue.Add(ctx, ids, cfg.SkipDuplicates)
		if err != nil {
			return &ErrCommit{Target: "queue", Cause: err}
		}
		result.Output = "queue"
		result.Queued = added
		return nil
	}

	target := existing
	created := false
	switch {
	case existing != nil && cfg.PlaylistMode == PlaylistOverwrite:
		if err := o.playlists.Clear(ctx, existing.ID); err != nil {
			return &ErrCommit{Target: "playlist", Cause: err}
		}
	case existing == nil:
		p, err := o.playlists.Create(ctx, name, cfg.ParentPlaylist)
		if err != nil {
			return &ErrCommit{Target: "playlist", Cause: err}
		}
		target = p
		created = true
	}

	if err := o.playlists.AddTracks(ctx, target.ID, ids); err != nil {
		if created {
			// Never leave an empty half-committed playlist behind.
			if delErr := o.playlists.Delete(ctx, target.ID); delErr != nil {
				o.logger.Warn("rolling back playlist", "error", delErr)
			}
		}
		return &ErrCommit{Target: "playlist", Cause: err}
	}

	result.Output = "playlist"
	result.PlaylistID = target.ID
	result.Playlist = target.Name
	return nil
}

func (o *Orchestrator) fail(result *Result, err error) {
	result.State = StateFailed
	result.Error = err.Error()
	result.FinishedAt = time.Now().UTC()
	o.store(result)
	o.publish(event.RunFailed, map[string]any{"run_id": result.RunID, "error": err.Error()})
	o.logger.Warn("run failed", slog.String("run_id", result.RunID), "error", err)
}

func (o *Orchestrator) store(result *Result) {
	o.mu.Lock()
	o.latest = result
	o.mu.Unlock()
}

func (o *Orchestrator) publish(t event.Type, data map[string]any) {
	if o.bus != nil {
		o.bus.Publish(event.Event{Type: t, Data: data})
	}
}
