package connectivity

import (
	"context"
	"log"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// Prober performs one reachability check.
type Prober func() bool

// DialProber probes the server by opening (and immediately closing) a TCP
// connection to the base URL's host. The default port follows the scheme.
func DialProber(baseURL string, timeout time.Duration) Prober {
	return func() bool {
		u, err := url.Parse(baseURL)
		if err != nil {
			return false
		}
		host := u.Host
		if u.Port() == "" {
			port := "80"
			if u.Scheme == "https" {
				port = "443"
			}
			host = net.JoinHostPort(u.Hostname(), port)
		}
		conn, err := net.DialTimeout("tcp", host, timeout)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}

// Monitor wraps reachability into a single boolean query plus an event
// stream. IsConnected is safe to call at any time, with or without a
// running monitor loop and independent of listener registration.
type Monitor struct {
	probe     Prober
	period    time.Duration
	connected atomic.Bool

	mu        sync.Mutex
	listeners []func(bool)
}

// NewMonitor creates a monitor and runs one synchronous probe so the state
// is meaningful before Start.
func NewMonitor(probe Prober, period time.Duration) *Monitor {
	m := &Monitor{probe: probe, period: period}
	m.connected.Store(probe())
	return m
}

// Start runs the probe loop until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	go m.loop(ctx)
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := m.probe()
			was := m.connected.Swap(now)
			if was != now {
				log.Printf("connectivity changed: connected=%v", now)
				m.notify(now)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) notify(connected bool) {
	m.mu.Lock()
	listeners := make([]func(bool), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(connected)
	}
}

// IsConnected returns the last observed reachability state.
func (m *Monitor) IsConnected() bool {
	return m.connected.Load()
}

// Subscribe registers a callback invoked on every connectivity transition.
func (m *Monitor) Subscribe(fn func(connected bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}
