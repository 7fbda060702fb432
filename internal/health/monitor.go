package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Monitor runs a background loop that re-probes all services on an
// interval, keeping the aggregator's map fresh between manual
// refreshes.
type Monitor struct {
	agg      *Aggregator
	interval time.Duration
	stopCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewMonitor creates a monitor with the given interval.
func NewMonitor(agg *Aggregator, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Monitor{
		agg:      agg,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the probe loop. A second Start is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	log.Info().Dur("interval", m.interval).Msg("health monitor started")
	go m.loop(ctx)
}

// Stop gracefully shuts down the monitor.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
	log.Info().Msg("health monitor stopped")
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Run once immediately
	m.agg.ProbeAll(ctx)

	for {
		select {
		case <-ticker.C:
			m.agg.ProbeAll(ctx)
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
