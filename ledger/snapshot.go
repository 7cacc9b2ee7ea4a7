package ledger

import "time"

// Period is a half-open accounting window [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Day returns the accounting period covering t's calendar day.
func Day(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Period{Start: start, End: start.Add(24 * time.Hour)}
}

// Contains reports whether ts falls inside the period.
func (p Period) Contains(ts time.Time) bool {
	return !ts.Before(p.Start) && ts.Before(p.End)
}

// ProductStats aggregates closed trades of one product class.
type ProductStats struct {
	Trades int
	Wins   int
	Losses int
	PnL    float64
}

// PortfolioSnapshot is a derived, read-only view over all trades whose entry
// falls in the period. It is recomputed on demand, never cached as shared
// mutable state.
type PortfolioSnapshot struct {
	Period          Period
	StartingCapital float64

	DeployedCapital float64
	RealizedPnL     float64
	UnrealizedPnL   float64
	OpenCount       int

	// Heat is the sum of open trades' risk amounts.
	Heat float64

	Intraday ProductStats
	Carry    ProductStats

	WinRate      float64
	ProfitFactor float64
}

// TotalPnL is realized plus unrealized for the period.
func (s PortfolioSnapshot) TotalPnL() float64 {
	return s.RealizedPnL + s.UnrealizedPnL
}
