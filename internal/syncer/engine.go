package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/navid4x/ghesta/internal/connectivity"
	"github.com/navid4x/ghesta/internal/storage"
)

// ErrDrainIncomplete reports a drain that removed some operations but left
// others failing against the remote store. The queue still holds the
// failures, so the engine retries on its backoff schedule.
var ErrDrainIncomplete = errors.New("drain left failing operations queued")

type EventType string

const (
	EventDrainStarted EventType = "drain_started"
	EventDrainOK      EventType = "drain_ok"
	EventDrainFailed  EventType = "drain_failed"
)

type Event struct {
	Type    EventType
	At      time.Time
	Result  DrainResult
	Err     error
	RetryIn time.Duration
}

type Config struct {
	PollInterval time.Duration
	Backoff      []time.Duration
}

// Engine drives queue drains: immediately when connectivity comes back,
// periodically while the remote stays reachable, and on manual refresh.
// Failed drains retry on a backoff schedule instead of waiting for the
// next poll tick.
type Engine struct {
	cfg        Config
	reconciler *Reconciler
	state      *storage.SyncStateRepo
	monitor    *connectivity.Monitor
	onEvent    func(Event)

	mu      sync.Mutex
	running *engineRun
}

type engineRun struct {
	cancel      context.CancelFunc
	manual      chan struct{}
	reachableCh chan bool
	unsubscribe func()
	done        chan struct{}
}

func NewEngine(cfg Config, reconciler *Reconciler, state *storage.SyncStateRepo, monitor *connectivity.Monitor, onEvent func(Event)) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Minute
	}
	if len(cfg.Backoff) == 0 {
		cfg.Backoff = []time.Duration{2 * time.Second, 5 * time.Second, 15 * time.Second, 60 * time.Second}
	}
	return &Engine{cfg: cfg, reconciler: reconciler, state: state, monitor: monitor, onEvent: onEvent}
}

// Start launches the drain loop. It is a no-op if the engine is already
// running.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running != nil {
		e.mu.Unlock()
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &engineRun{
		cancel:      cancel,
		manual:      make(chan struct{}, 1),
		reachableCh: make(chan bool, 1),
		done:        make(chan struct{}),
	}
	run.unsubscribe = e.monitor.Subscribe(func(reachable bool) {
		select {
		case run.reachableCh <- reachable:
		default:
		}
	})
	e.running = run
	e.mu.Unlock()

	go e.runLoop(runCtx, run)
}

// Stop cancels the drain loop and waits for it to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	run := e.running
	e.running = nil
	e.mu.Unlock()

	if run != nil {
		run.unsubscribe()
		run.cancel()
		<-run.done
	}
}

// ManualRefresh requests an immediate drain attempt. Requests made while
// a drain is in flight coalesce into a single followup.
func (e *Engine) ManualRefresh() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running == nil {
		return
	}
	select {
	case e.running.manual <- struct{}{}:
	default:
	}
}

func (e *Engine) runLoop(ctx context.Context, run *engineRun) {
	defer close(run.done)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	var retryTimer *time.Timer
	var retryC <-chan time.Time
	backoffIdx := 0

	clearRetry := func() {
		if retryTimer != nil {
			retryTimer.Stop()
			retryTimer = nil
			retryC = nil
		}
	}

	attempt := func() {
		if !e.monitor.Reachable() {
			return
		}
		if err := e.attemptDrain(ctx); err != nil {
			retryTimer, retryC, backoffIdx = scheduleRetry(retryTimer, e.cfg.Backoff, backoffIdx)
		} else {
			backoffIdx = 0
		}
	}

	if e.monitor.Reachable() {
		attempt()
	}

	for {
		select {
		case <-ctx.Done():
			clearRetry()
			return
		case reachable := <-run.reachableCh:
			clearRetry()
			backoffIdx = 0
			if reachable {
				attempt()
			}
		case <-run.manual:
			clearRetry()
			attempt()
		case <-ticker.C:
			if retryC != nil {
				continue
			}
			attempt()
		case <-retryC:
			retryTimer = nil
			retryC = nil
			attempt()
		}
	}
}

func scheduleRetry(current *time.Timer, backoff []time.Duration, index int) (*time.Timer, <-chan time.Time, int) {
	if current != nil {
		current.Stop()
	}
	if index >= len(backoff) {
		index = len(backoff) - 1
	}
	t := time.NewTimer(backoff[index])
	nextIdx := index + 1
	if nextIdx >= len(backoff) {
		nextIdx = len(backoff) - 1
	}
	return t, t.C, nextIdx
}

func (e *Engine) attemptDrain(ctx context.Context) error {
	now := time.Now().UTC()
	e.emit(Event{Type: EventDrainStarted, At: now})
	if err := e.state.RecordAttempt(ctx, storage.CollectionQueue, now); err != nil {
		e.emit(Event{Type: EventDrainFailed, At: time.Now().UTC(), Err: err})
		return err
	}

	result, err := e.reconciler.Drain(ctx)
	if err != nil {
		failedAt := time.Now().UTC()
		if stateErr := e.state.RecordError(ctx, storage.CollectionQueue, failedAt, err); stateErr != nil {
			err = stateErr
		}
		e.emit(Event{Type: EventDrainFailed, At: failedAt, Result: result, Err: err})
		return err
	}

	done := time.Now().UTC()
	if err := e.state.RecordSuccess(ctx, storage.CollectionQueue, done, result.Applied, result.Failed); err != nil {
		e.emit(Event{Type: EventDrainFailed, At: done, Result: result, Err: err})
		return err
	}
	if result.Failed > 0 {
		e.emit(Event{Type: EventDrainFailed, At: done, Result: result, Err: ErrDrainIncomplete})
		return ErrDrainIncomplete
	}
	e.emit(Event{Type: EventDrainOK, At: done, Result: result})
	return nil
}

func (e *Engine) emit(evt Event) {
	if e.onEvent == nil {
		return
	}
	e.onEvent(evt)
}
