package run

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sydlexius/driftwave/internal/event"
	"github.com/sydlexius/driftwave/internal/playlist"
)

// AutoQueue is the unattended trigger path: when playback progress shows
// the queue near exhaustion, it starts a generation run with the
// conservative auto-mode limits. A trigger while a run is in flight is
// dropped, not queued, so a burst of progress events never stacks runs.
type AutoQueue struct {
	orch     *Orchestrator
	queue    *playlist.Queue
	bus      *event.Bus
	logger   *slog.Logger
	base     Config
	lowWater int

	cancels []func()
}

// NewAutoQueue builds the auto-queue trigger. base is the run
// configuration auto-mode overrides are applied to; lowWater is the
// queue size at or below which a run is triggered.
func NewAutoQueue(orch *Orchestrator, queue *playlist.Queue, bus *event.Bus, logger *slog.Logger, base Config, lowWater int) *AutoQueue {
	if lowWater <= 0 {
		lowWater = 2
	}
	return &AutoQueue{
		orch:     orch,
		queue:    queue,
		bus:      bus,
		logger:   logger.With(slog.String("component", "autoqueue")),
		base:     base,
		lowWater: lowWater,
	}
}

// Start subscribes to playback events. Call Stop to unsubscribe.
func (a *AutoQueue) Start() {
	a.cancels = append(a.cancels,
		a.bus.Subscribe(event.PlaybackProgress, func(event.Event) {
			a.checkQueue()
		}),
		a.bus.Subscribe(event.QueueLow, func(event.Event) {
			a.trigger()
		}),
	)
	a.logger.Info("auto-queue armed", slog.Int("low_water", a.lowWater))
}

// Stop cancels the subscriptions.
func (a *AutoQueue) Stop() {
	for _, cancel := range a.cancels {
		cancel()
	}
	a.cancels = nil
}

// checkQueue publishes queue.low when the queue is at or under the
// low-water mark.
func (a *AutoQueue) checkQueue() {
	remaining, err := a.queue.Remaining(context.Background())
	if err != nil {
		a.logger.Warn("reading queue size", "error", err)
		return
	}
	if remaining <= a.lowWater {
		a.bus.Publish(event.Event{
			Type: event.QueueLow,
			Data: map[string]any{"remaining": remaining},
		})
	}
}

// trigger starts an auto-mode run. ErrRunInProgress means another
// trigger won the slot; that is the intended drop, not a failure.
func (a *AutoQueue) trigger() {
	cfg := a.base
	cfg.AutoMode = true

	_, err := a.orch.Run(context.Background(), cfg)
	switch {
	case err == nil:
	case errors.Is(err, ErrRunInProgress):
		a.logger.Debug("auto-queue trigger dropped, run in progress")
	case errors.Is(err, ErrNoMatches), errors.Is(err, ErrNoSeeds):
		a.logger.Info("auto-queue run produced nothing", "reason", err)
	default:
		a.logger.Warn("auto-queue run failed", "error", err)
	}
}
