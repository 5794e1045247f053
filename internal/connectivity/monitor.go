// Package connectivity tracks whether the remote store is actually
// reachable, as opposed to the device merely having a network link. The
// monitor is an injected service object, not package state; everything that
// cares about reachability subscribes to one shared instance.
package connectivity

import (
	"context"
	"sync"
	"time"
)

// Probe actively checks the remote store. It must return nil only when the
// store answered.
type Probe func(ctx context.Context) error

// Config tunes a Monitor. Zero values fall back to the defaults below.
type Config struct {
	ProbeTimeout time.Duration // per-probe deadline
	PollInterval time.Duration // periodic re-check while Start runs
	Debounce     time.Duration // minimum spacing between probes
}

const (
	defaultProbeTimeout = 3 * time.Second
	defaultPollInterval = 30 * time.Second
	defaultDebounce     = 2 * time.Second
)

type subscriber struct {
	id int
	fn func(reachable bool)
}

// Monitor is the single source of truth for remote reachability.
type Monitor struct {
	probe Probe
	cfg   Config

	mu        sync.Mutex
	reachable bool
	known     bool
	lastProbe time.Time
	nextSubID int
	subs      []subscriber
}

func New(probe Probe, cfg Config) *Monitor {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	return &Monitor{probe: probe, cfg: cfg}
}

// Reachable returns the last known state. It is false until the first probe
// completes.
func (m *Monitor) Reachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.known && m.reachable
}

// Subscribe registers fn to be called synchronously, in registration order,
// on every state transition. The returned func unsubscribes.
func (m *Monitor) Subscribe(fn func(reachable bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// CheckNow probes the remote store and returns the resulting state. Probes
// closer together than the debounce window are skipped so a flapping link
// fires at most one notification per probe result.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	m.mu.Lock()
	if m.known && time.Since(m.lastProbe) < m.cfg.Debounce {
		state := m.reachable
		m.mu.Unlock()
		return state
	}
	m.lastProbe = time.Now()
	m.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	err := m.probe(probeCtx)
	cancel()

	return m.setState(err == nil)
}

// LinkChanged feeds the platform's raw online/offline signal. A lost link
// flips to unreachable immediately; a gained link triggers a probe, since a
// link alone does not prove the store answers.
func (m *Monitor) LinkChanged(ctx context.Context, up bool) {
	if !up {
		m.mu.Lock()
		m.lastProbe = time.Now()
		m.mu.Unlock()
		m.setState(false)
		return
	}
	m.CheckNow(ctx)
}

// Start probes immediately and then on every poll interval until ctx is
// done.
func (m *Monitor) Start(ctx context.Context) {
	m.CheckNow(ctx)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

func (m *Monitor) setState(reachable bool) bool {
	m.mu.Lock()
	changed := !m.known || m.reachable != reachable
	m.known = true
	m.reachable = reachable
	var toNotify []subscriber
	if changed {
		toNotify = append(toNotify, m.subs...)
	}
	m.mu.Unlock()

	for _, s := range toNotify {
		s.fn(reachable)
	}
	return reachable
}
