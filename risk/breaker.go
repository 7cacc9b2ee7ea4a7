package risk

import "github.com/venkat7568/tradego/ledger"

// Halted reports whether the daily loss circuit breaker has tripped for the
// snapshot's accounting period. A loss landing exactly on the limit trips it.
//
// A tripped breaker suspends new admissions only. Open trades continue to be
// monitored and closed normally.
func Halted(snap ledger.PortfolioSnapshot, limits Limits) bool {
	if snap.StartingCapital <= 0 {
		return false
	}
	return snap.TotalPnL()/snap.StartingCapital <= -limits.MaxDailyLossPct
}
