//go:build integration
// +build integration

package syncer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/navid4x/ghesta/internal/connectivity"
	"github.com/navid4x/ghesta/internal/models"
	"github.com/navid4x/ghesta/internal/storage"
)

// engineHarness bundles an engine over a real queue, a fake remote, and a
// monitor whose probe outcome the test controls.
type engineHarness struct {
	engine  *Engine
	monitor *connectivity.Monitor
	queue   *storage.QueueRepo
	store   *fakeRemote
	events  chan Event

	online *atomic.Bool
}

func newEngineHarness(t *testing.T, store *fakeRemote, cfg Config) *engineHarness {
	t.Helper()
	db := openTestDB(t)
	queue := storage.NewQueueRepo(db)
	state := storage.NewSyncStateRepo(db)

	online := new(atomic.Bool)
	probe := func(ctx context.Context) error {
		if !online.Load() {
			return errors.New("store down")
		}
		return nil
	}
	monitor := connectivity.New(probe, connectivity.Config{
		ProbeTimeout: time.Second,
		PollInterval: time.Hour,
		Debounce:     time.Millisecond,
	})

	events := make(chan Event, 32)
	engine := NewEngine(cfg, NewReconciler(queue, store), state, monitor, func(evt Event) {
		events <- evt
	})
	return &engineHarness{
		engine:  engine,
		monitor: monitor,
		queue:   queue,
		store:   store,
		events:  events,
		online:  online,
	}
}

func (h *engineHarness) setOnline(up bool) {
	h.online.Store(up)
}

func waitForEvent(t *testing.T, events <-chan Event, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-events:
			if evt.Type == want {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func TestEngineDrainsOnReachableTransition(t *testing.T) {
	ctx := context.Background()
	h := newEngineHarness(t, &fakeRemote{}, Config{PollInterval: time.Hour})

	enqueueOp(t, h.queue, "op-1", models.OpCreate, "inst-a", `{"id":"inst-a"}`)

	h.engine.Start(ctx)
	defer h.engine.Stop()

	// Unreachable: nothing drains.
	select {
	case evt := <-h.events:
		t.Fatalf("got %s event while unreachable", evt.Type)
	case <-time.After(50 * time.Millisecond):
	}

	h.setOnline(true)
	h.monitor.CheckNow(ctx)

	evt := waitForEvent(t, h.events, EventDrainOK)
	if evt.Result.Applied != 1 {
		t.Fatalf("got %+v, want 1 applied", evt.Result)
	}

	h.engine.Stop()
	if len(h.store.calls) != 1 || h.store.calls[0] != "create:inst-a" {
		t.Fatalf("got calls %v, want [create:inst-a]", h.store.calls)
	}
	count, err := h.queue.PendingCount(ctx)
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if count != 0 {
		t.Fatalf("got %d pending after drain, want 0", count)
	}
}

func TestEngineRetriesIncompleteDrainOnBackoff(t *testing.T) {
	ctx := context.Background()
	store := &fakeRemote{failing: map[string]bool{"inst-a": true}}
	h := newEngineHarness(t, store, Config{
		PollInterval: time.Hour,
		Backoff:      []time.Duration{20 * time.Millisecond, 20 * time.Millisecond},
	})

	enqueueOp(t, h.queue, "op-1", models.OpCreate, "inst-a", `{"id":"inst-a"}`)

	h.setOnline(true)
	h.monitor.CheckNow(ctx)

	h.engine.Start(ctx)
	defer h.engine.Stop()

	// Initial attempt: the remote rejects the op, so the drain counts as
	// failed even though Drain itself returned no error.
	first := waitForEvent(t, h.events, EventDrainFailed)
	if !errors.Is(first.Err, ErrDrainIncomplete) {
		t.Fatalf("got err %v, want ErrDrainIncomplete", first.Err)
	}
	if first.Result.Failed != 1 {
		t.Fatalf("got %+v, want 1 failed", first.Result)
	}

	// The poll interval is an hour, so only the backoff timer can produce
	// another attempt this quickly.
	second := waitForEvent(t, h.events, EventDrainFailed)
	if !errors.Is(second.Err, ErrDrainIncomplete) {
		t.Fatalf("got err %v on retry, want ErrDrainIncomplete", second.Err)
	}
}

func TestEngineManualRefreshTriggersDrain(t *testing.T) {
	ctx := context.Background()
	h := newEngineHarness(t, &fakeRemote{}, Config{PollInterval: time.Hour})

	h.setOnline(true)
	h.monitor.CheckNow(ctx)

	h.engine.Start(ctx)
	defer h.engine.Stop()

	// Drain the startup attempt before requesting a manual one.
	waitForEvent(t, h.events, EventDrainOK)

	enqueueOp(t, h.queue, "op-1", models.OpCreate, "inst-a", `{"id":"inst-a"}`)
	h.engine.ManualRefresh()

	evt := waitForEvent(t, h.events, EventDrainOK)
	if evt.Result.Applied != 1 {
		t.Fatalf("got %+v, want 1 applied", evt.Result)
	}
}
