package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spacesedan/llmservice/internal/inference"
)

const (
	DEFAULT_HEALTHCHECK_INTERVAL = 15 * time.Second
	pingTimeout                  = 5 * time.Second
)

// Monitor periodically pings remote pipelines. Every pipeline starts out
// healthy; it only flips after a failed ping.
type Monitor struct {
	pingers  map[inference.Task]inference.Pinger
	healthy  map[inference.Task]*atomic.Bool
	interval time.Duration
}

func NewMonitor(pingers map[inference.Task]inference.Pinger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DEFAULT_HEALTHCHECK_INTERVAL
	}
	healthy := make(map[inference.Task]*atomic.Bool, len(pingers))
	for task := range pingers {
		b := &atomic.Bool{}
		b.Store(true)
		healthy[task] = b
	}
	return &Monitor{pingers: pingers, healthy: healthy, interval: interval}
}

// Run pings every pipeline on each tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	if len(m.pingers) == 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	slog.Info("[HealthCheck] Monitoring pipelines",
		slog.Int("pipelines", len(m.pingers)),
		slog.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

func (m *Monitor) CheckNow(ctx context.Context) {
	for task, pinger := range m.pingers {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := pinger.Ping(pingCtx)
		cancel()

		wasHealthy := m.healthy[task].Swap(err == nil)
		switch {
		case err != nil:
			slog.Warn("[HealthCheck] Pipeline is unhealthy",
				slog.String("task", string(task)),
				slog.String("error", err.Error()))
		case !wasHealthy:
			slog.Info("[HealthCheck] Pipeline recovered",
				slog.String("task", string(task)))
		}
	}
}

// Status returns the last known state of every pinged pipeline.
func (m *Monitor) Status() map[string]bool {
	out := make(map[string]bool, len(m.healthy))
	for task, b := range m.healthy {
		out[string(task)] = b.Load()
	}
	return out
}
