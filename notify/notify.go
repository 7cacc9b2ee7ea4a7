// Package notify publishes fire-and-forget operational events. Publishing
// never blocks the trading loop; delivery failures are logged and dropped.
package notify

import (
	"time"

	"github.com/rs/zerolog"
)

// EventKind classifies a notification.
type EventKind string

const (
	CircuitBreakerTripped EventKind = "circuit_breaker_tripped"
	EntryFailed           EventKind = "entry_failed"
	TradeClosed           EventKind = "trade_closed"
	OrderAnomaly          EventKind = "order_anomaly"
	DailySummary          EventKind = "daily_summary"
)

// Event is one notification payload.
type Event struct {
	Kind       EventKind `json:"kind"`
	Instrument string    `json:"instrument,omitempty"`
	TradeID    string    `json:"trade_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Time       time.Time `json:"time"`
}

// Notifier delivers events. Implementations must not block the caller.
type Notifier interface {
	Publish(Event)
	Close() error
}

// LogNotifier writes events to the structured log. The default sink when no
// broker is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Publish(e Event) {
	n.log.Info().
		Str("kind", string(e.Kind)).
		Str("instrument", e.Instrument).
		Str("trade", e.TradeID).
		Str("detail", e.Detail).
		Msg("notification")
}

func (n *LogNotifier) Close() error { return nil }
