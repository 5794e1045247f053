package connectivity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		ProbeTimeout: time.Second,
		PollInterval: time.Hour,
		Debounce:     50 * time.Millisecond,
	}
}

func TestCheckNowReflectsProbeResult(t *testing.T) {
	var probeErr atomic.Value
	m := New(func(ctx context.Context) error {
		if err, _ := probeErr.Load().(error); err != nil {
			return err
		}
		return nil
	}, testConfig())

	if m.Reachable() {
		t.Fatal("Reachable() = true before first probe")
	}
	if !m.CheckNow(context.Background()) {
		t.Fatal("CheckNow() = false, want true")
	}
	if !m.Reachable() {
		t.Fatal("Reachable() = false after successful probe")
	}

	probeErr.Store(errors.New("down"))
	time.Sleep(60 * time.Millisecond)
	if m.CheckNow(context.Background()) {
		t.Fatal("CheckNow() = true, want false")
	}
}

func TestSubscribersNotifiedInRegistrationOrderOnTransitions(t *testing.T) {
	up := true
	m := New(func(ctx context.Context) error {
		if up {
			return nil
		}
		return errors.New("down")
	}, testConfig())

	var order []string
	m.Subscribe(func(reachable bool) { order = append(order, "first") })
	m.Subscribe(func(reachable bool) { order = append(order, "second") })

	m.CheckNow(context.Background())
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("notification order = %v, want [first second]", order)
	}

	// Same state again: no transition, no notification.
	order = nil
	time.Sleep(60 * time.Millisecond)
	m.CheckNow(context.Background())
	if len(order) != 0 {
		t.Fatalf("subscribers notified without a transition: %v", order)
	}

	up = false
	time.Sleep(60 * time.Millisecond)
	m.CheckNow(context.Background())
	if len(order) != 2 {
		t.Fatalf("transition to unreachable notified %d subscribers, want 2", len(order))
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	up := true
	m := New(func(ctx context.Context) error {
		if up {
			return nil
		}
		return errors.New("down")
	}, testConfig())

	calls := 0
	unsubscribe := m.Subscribe(func(reachable bool) { calls++ })

	m.CheckNow(context.Background())
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	unsubscribe()
	up = false
	time.Sleep(60 * time.Millisecond)
	m.CheckNow(context.Background())
	if calls != 1 {
		t.Fatalf("calls = %d after unsubscribe, want 1", calls)
	}
}

func TestDebounceSkipsRapidProbes(t *testing.T) {
	var probes atomic.Int32
	m := New(func(ctx context.Context) error {
		probes.Add(1)
		return nil
	}, testConfig())

	m.CheckNow(context.Background())
	m.CheckNow(context.Background())
	m.CheckNow(context.Background())
	if got := probes.Load(); got != 1 {
		t.Fatalf("probe count = %d, want 1 (debounced)", got)
	}

	time.Sleep(60 * time.Millisecond)
	m.CheckNow(context.Background())
	if got := probes.Load(); got != 2 {
		t.Fatalf("probe count = %d after debounce window, want 2", got)
	}
}

func TestLinkLossFlipsStateWithoutProbe(t *testing.T) {
	var probes atomic.Int32
	m := New(func(ctx context.Context) error {
		probes.Add(1)
		return nil
	}, testConfig())

	m.CheckNow(context.Background())
	if !m.Reachable() {
		t.Fatal("Reachable() = false after successful probe")
	}
	before := probes.Load()

	var notified []bool
	m.Subscribe(func(reachable bool) { notified = append(notified, reachable) })

	m.LinkChanged(context.Background(), false)
	if m.Reachable() {
		t.Fatal("Reachable() = true after link loss")
	}
	if probes.Load() != before {
		t.Fatal("link loss triggered a probe")
	}
	if len(notified) != 1 || notified[0] {
		t.Fatalf("notifications = %v, want [false]", notified)
	}

	// Link regained: probe required before reporting reachable.
	time.Sleep(60 * time.Millisecond)
	m.LinkChanged(context.Background(), true)
	if !m.Reachable() {
		t.Fatal("Reachable() = false after link regained and probe succeeded")
	}
	if probes.Load() != before+1 {
		t.Fatalf("probe count = %d, want %d", probes.Load(), before+1)
	}
}

func TestStartBlocksUntilCancelled(t *testing.T) {
	m := New(func(ctx context.Context) error { return nil }, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	// Start owns the poll loop for its whole lifetime; callers that need to
	// keep going must launch it on its own goroutine.
	select {
	case <-done:
		t.Fatal("Start() returned with the context still alive")
	case <-time.After(100 * time.Millisecond):
	}
	if !m.Reachable() {
		t.Fatal("Reachable() = false after Start's initial probe")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after cancellation")
	}
}

func TestProbeTimeoutCountsAsUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.ProbeTimeout = 20 * time.Millisecond
	m := New(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, cfg)

	if m.CheckNow(context.Background()) {
		t.Fatal("CheckNow() = true for a hanging probe, want false")
	}
}
