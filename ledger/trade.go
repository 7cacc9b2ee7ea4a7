// Package ledger is the durable record of trade lifecycle and the source of
// derived portfolio metrics.
//
// The ledger owns every Trade exclusively: records are created, filled,
// updated and closed only through Ledger operations, never deleted. All
// mutation happens under one mutex and callers only ever receive copies, so
// concurrent readers see a trade either entirely before or entirely after an
// update.
package ledger

import (
	"time"

	"github.com/venkat7568/tradego/signal"
)

// State is a trade's lifecycle stage.
type State string

const (
	// PendingEntry means the entry order is at the gateway awaiting a fill.
	PendingEntry State = "PENDING_ENTRY"
	// Open means the entry filled and the position is live.
	Open State = "OPEN"
	// Closed is terminal: the position exited and realized P&L is final.
	Closed State = "CLOSED"
	// EntryFailed is terminal: the entry never confirmed within the bounded
	// wait. Excluded from open-position counts and heat.
	EntryFailed State = "ENTRY_FAILED"
)

// ExitReason records why a position closed.
type ExitReason string

const (
	ExitTarget       ExitReason = "TARGET"
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitEODSquareoff ExitReason = "EOD_SQUAREOFF"
	ExitTrailingStop ExitReason = "TRAILING_STOP"
	ExitManual       ExitReason = "MANUAL"
)

// Trade is the central entity of the system.
//
// RiskAmount is fixed at creation and never recomputed after entry.
type Trade struct {
	ID         string
	Instrument string
	Strategy   string
	Direction  signal.Direction
	Quantity   int
	Product    signal.ProductClass

	EntryPrice float64
	StopLoss   float64
	Target     float64
	RiskAmount float64
	EntryTime  time.Time
	Confidence float64

	State State

	ExitPrice  float64
	ExitTime   time.Time
	ExitReason ExitReason

	RealizedPnL   float64
	UnrealizedPnL float64

	// MaxAdverse / MaxFavorable are the worst and best unrealized P&L
	// observed while the trade was open (MAE/MFE).
	MaxAdverse   float64
	MaxFavorable float64

	// Gateway order IDs, kept for reconciliation.
	EntryOrderID  string
	TargetOrderID string
	StopOrderID   string
}

// PnLAt returns the signed P&L of the position at price, before costs.
func (t Trade) PnLAt(price float64) float64 {
	return t.Direction.Sign() * (price - t.EntryPrice) * float64(t.Quantity)
}

// PositionValue is quantity times entry price.
func (t Trade) PositionValue() float64 {
	return t.EntryPrice * float64(t.Quantity)
}

// Active reports whether the trade still needs monitoring.
func (t Trade) Active() bool {
	return t.State == Open || t.State == PendingEntry
}
