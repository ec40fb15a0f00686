package run

import (
	"context"
	"testing"
	"time"

	"github.com/sydlexius/driftwave/internal/event"
	"github.com/sydlexius/driftwave/internal/library"
	"github.com/sydlexius/driftwave/internal/provider"
)

func TestAutoQueueTriggerFillsQueue(t *testing.T) {
	sim := &fakeSimilarity{
		similarArtists: map[string][]provider.SimilarArtist{
			"Pink Floyd": {{Name: "Genesis", Score: 0.9}},
		},
		topTracks: map[string][]provider.TopTrack{
			"Genesis": {{Title: "Mama", Rank: 1}},
		},
	}
	f := setupRun(t, sim, nil, []library.Track{track("g1", "Genesis", "Mama")})
	playing := track("pf1", "Pink Floyd", "Echoes")
	f.selection.SetNowPlaying(&playing)

	bus := event.NewBus(runLogger(), 16)
	go bus.Start()
	defer bus.Stop()

	aq := NewAutoQueue(f.orch, f.queue, bus, runLogger(), baseConfig(), 2)
	aq.Start()
	defer aq.Stop()

	bus.Publish(event.Event{Type: event.PlaybackProgress})

	deadline := time.After(3 * time.Second)
	for {
		n, err := f.queue.Remaining(context.Background())
		if err != nil {
			t.Fatalf("Remaining: %v", err)
		}
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected queue to be filled, have %d", n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestAutoQueueDropsWhenRunInProgress(t *testing.T) {
	f := setupRun(t, &fakeSimilarity{}, nil, nil)
	f.orch.running.Store(true)
	defer f.orch.running.Store(false)

	bus := event.NewBus(runLogger(), 16)
	go bus.Start()
	defer bus.Stop()

	aq := NewAutoQueue(f.orch, f.queue, bus, runLogger(), baseConfig(), 2)
	aq.Start()
	defer aq.Stop()

	bus.Publish(event.Event{Type: event.QueueLow})
	time.Sleep(200 * time.Millisecond)

	// The trigger was dropped: no run executed, no latest result stored.
	if f.orch.Latest() != nil {
		t.Errorf("expected dropped trigger, got result %+v", f.orch.Latest())
	}
}

func TestAutoQueueIgnoresFullQueue(t *testing.T) {
	f := setupRun(t, &fakeSimilarity{}, nil, nil)
	if _, err := f.queue.Add(context.Background(), []string{"t1", "t2", "t3", "t4"}, false); err != nil {
		t.Fatalf("Add: %v", err)
	}

	bus := event.NewBus(runLogger(), 16)
	go bus.Start()
	defer bus.Stop()

	aq := NewAutoQueue(f.orch, f.queue, bus, runLogger(), baseConfig(), 2)
	aq.Start()
	defer aq.Stop()

	bus.Publish(event.Event{Type: event.PlaybackProgress})
	time.Sleep(200 * time.Millisecond)

	if f.orch.Latest() != nil {
		t.Errorf("queue above low water must not trigger a run, got %+v", f.orch.Latest())
	}
}
