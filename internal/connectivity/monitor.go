// Package connectivity tracks whether the catalogue server is reachable.
package connectivity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Probe reports nil when the remote side is reachable.
type Probe func(ctx context.Context) error

// HTTPProbe returns a Probe that GETs url and accepts any 2xx response.
func HTTPProbe(client *http.Client, url string) Probe {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to build probe request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
		}
		return nil
	}
}

// Monitor periodically probes reachability and publishes changes.
type Monitor struct {
	probe    Probe
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	connected atomic.Bool

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// maxPending bounds the transitions queued for a reader that is not keeping
// up. Trimming drops the oldest pair so the queue still ends on the latest state.
const maxPending = 16

// subscriber queues transitions for one Subscribe reader. pending is guarded
// by Monitor.mu.
type subscriber struct {
	wake    chan struct{}
	pending []bool
}

// NewMonitor creates a monitor that starts out disconnected until the first probe.
func NewMonitor(probe Probe, interval, timeout time.Duration, logger zerolog.Logger) *Monitor {
	return &Monitor{
		probe:    probe,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With().Str("component", "connectivity").Logger(),
		subs:     make(map[*subscriber]struct{}),
	}
}

// IsConnected reports the result of the latest probe.
func (m *Monitor) IsConnected() bool {
	return m.connected.Load()
}

// Subscribe returns a channel that receives the current state and then every
// change in order. A reader that falls behind still sees each transition, so a
// brief offline/online flap is not lost. Consecutive duplicates are never
// delivered. The channel closes when ctx is done.
func (m *Monitor) Subscribe(ctx context.Context) <-chan bool {
	out := make(chan bool)
	sub := &subscriber{wake: make(chan struct{}, 1)}

	m.mu.Lock()
	last := m.IsConnected()
	m.subs[sub] = struct{}{}
	m.mu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			m.mu.Lock()
			delete(m.subs, sub)
			m.mu.Unlock()
		}()

		select {
		case out <- last:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-sub.wake:
			case <-ctx.Done():
				return
			}

			m.mu.Lock()
			batch := sub.pending
			sub.pending = nil
			m.mu.Unlock()

			for _, state := range batch {
				if state == last {
					continue
				}
				select {
				case out <- state:
					last = state
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// Run probes immediately and then every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs one probe and records the outcome.
func (m *Monitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.probe(probeCtx)
	if err != nil && ctx.Err() != nil {
		return m.IsConnected()
	}

	online := err == nil
	if err != nil {
		m.logger.Debug().Err(err).Msg("probe failed")
	}
	m.set(online)
	return online
}

// set stores state and queues the change for every subscriber.
func (m *Monitor) set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected.Swap(online) == online {
		return
	}

	m.logger.Info().Bool("connected", online).Msg("connectivity changed")
	for sub := range m.subs {
		sub.pending = append(sub.pending, online)
		if len(sub.pending) > maxPending {
			sub.pending = sub.pending[2:]
		}
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

func (m *Monitor) subscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Static is a fixed connectivity source for offline use and tests.
type Static bool

// IsConnected implements the engine's connectivity gate.
func (s Static) IsConnected() bool {
	return bool(s)
}

// Subscribe emits the fixed state once and closes when ctx is done.
func (s Static) Subscribe(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)
	ch <- bool(s)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}
