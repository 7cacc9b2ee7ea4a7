// Package market defines the externally supplied market-data contracts the
// trading core consumes: instrument snapshots, sentiment scores, recent
// return series, the trading-session clock, and sector classification.
//
// The core never computes indicators itself; snapshots arrive with indicator
// values already attached and are validated here before any strategy sees
// them.
package market

import (
	"context"
	"fmt"
	"time"
)

// Snapshot is a point-in-time view of one instrument: last price, a bag of
// precomputed indicator values, and an optional sentiment score in [-1, 1].
type Snapshot struct {
	Instrument   string
	Price        float64
	Indicators   map[string]float64
	Sentiment    float64
	HasSentiment bool
	Time         time.Time
}

// Indicator looks up a named indicator value.
func (s Snapshot) Indicator(name string) (float64, bool) {
	v, ok := s.Indicators[name]
	return v, ok
}

// Validate rejects snapshots with a non-positive price or a timestamp older
// than maxAge relative to now.
func (s Snapshot) Validate(now time.Time, maxAge time.Duration) error {
	if s.Price <= 0 {
		return fmt.Errorf("snapshot %s: non-positive price %.4f", s.Instrument, s.Price)
	}
	if maxAge > 0 && now.Sub(s.Time) > maxAge {
		return fmt.Errorf("snapshot %s: stale (age %s > %s)", s.Instrument, now.Sub(s.Time), maxAge)
	}
	return nil
}

// Provider serves instrument snapshots.
type Provider interface {
	Snapshot(ctx context.Context, instrument string) (Snapshot, error)
}

// SentimentProvider scores instruments in [-1, 1]. The second return is false
// when no score is available for the instrument.
type SentimentProvider interface {
	Score(ctx context.Context, instrument string) (float64, bool, error)
}

// ReturnsProvider serves an instrument's most recent n period returns,
// oldest first. Used by the risk manager's pairwise correlation check.
type ReturnsProvider interface {
	Returns(ctx context.Context, instrument string, n int) ([]float64, error)
}
