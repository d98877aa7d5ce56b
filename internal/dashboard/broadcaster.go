package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lambda-platform/lambda-api/internal/anomaly"
	"github.com/lambda-platform/lambda-api/internal/metrics"
)

// Update is the JSON document pushed to dashboard clients on every tick.
type Update struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Metrics     metrics.Snapshot `json:"metrics"`
	Anomaly     []anomaly.Stats  `json:"anomaly"`
	ActiveUsers int              `json:"active_users"`
	Clients     int              `json:"clients"`
}

// UserCounter reports how many users are currently active.
// Implemented by the rate limiter.
type UserCounter interface {
	ActiveUsers() int
}

// Broadcaster assembles an Update on a fixed interval and pushes it
// through the hub.
type Broadcaster struct {
	hub       *Hub
	collector *metrics.Collector
	detectors *anomaly.Registry
	users     UserCounter
	interval  time.Duration
	logger    *slog.Logger
}

// NewBroadcaster creates a Broadcaster. Interval values below one second
// are raised to one second.
func NewBroadcaster(
	hub *Hub,
	collector *metrics.Collector,
	detectors *anomaly.Registry,
	users UserCounter,
	interval time.Duration,
	logger *slog.Logger,
) *Broadcaster {
	if interval < time.Second {
		interval = time.Second
	}
	return &Broadcaster{
		hub:       hub,
		collector: collector,
		detectors: detectors,
		users:     users,
		interval:  interval,
		logger:    logger.With(slog.String("component", "dashboard_broadcaster")),
	}
}

// Run broadcasts until the context is cancelled. Ticks with no connected
// clients are skipped.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("dashboard broadcaster started", "interval", b.interval)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("dashboard broadcaster stopped")
			return
		case <-ticker.C:
			if b.hub.ClientCount() == 0 {
				continue
			}
			payload, err := json.Marshal(b.buildUpdate())
			if err != nil {
				b.logger.Error("failed to marshal dashboard update", "error", err)
				continue
			}
			b.hub.Broadcast(payload)
		}
	}
}

// buildUpdate assembles the current snapshot.
func (b *Broadcaster) buildUpdate() Update {
	return Update{
		GeneratedAt: time.Now().UTC(),
		Metrics:     b.collector.Snapshot(),
		Anomaly:     b.detectors.Snapshot(),
		ActiveUsers: b.users.ActiveUsers(),
		Clients:     b.hub.ClientCount(),
	}
}
