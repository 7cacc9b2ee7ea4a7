// Package signal turns market snapshots into trade proposals.
//
// A Generator runs an ordered list of strategy evaluators against the same
// snapshot and picks the highest-confidence candidate. Signals are pure
// values: produced fresh each cycle, never persisted on their own.
package signal

import "math"

// Direction is the trade side.
type Direction string

const (
	Long  Direction = "BUY"
	Short Direction = "SELL"
)

// Sign returns +1 for long, -1 for short.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// ProductClass distinguishes same-day positions from positions carried
// overnight.
type ProductClass string

const (
	Intraday ProductClass = "INTRADAY"
	Carry    ProductClass = "CARRY"
)

// Signal is a strategy's proposed trade, pre-sizing.
type Signal struct {
	Instrument string
	Strategy   string
	Direction  Direction
	Entry      float64
	Stop       float64
	Target     float64
	Confidence float64
	Product    ProductClass
}

// RiskPerUnit is the entry-to-stop distance in price terms.
func (s Signal) RiskPerUnit() float64 {
	return math.Abs(s.Entry - s.Stop)
}

// RewardToRisk is the distance to target divided by the distance to stop at
// entry. Zero when the stop distance is zero.
func (s Signal) RewardToRisk() float64 {
	risk := s.RiskPerUnit()
	if risk == 0 {
		return 0
	}
	return math.Abs(s.Target-s.Entry) / risk
}
