package ledger

// CostModel approximates round-trip transaction costs: a flat charge per
// order leg plus basis points on turnover.
type CostModel struct {
	PerOrder float64
	Bps      float64
}

// DefaultCosts models a discount broker: 20 per leg plus 3bps.
func DefaultCosts() CostModel {
	return CostModel{PerOrder: 20, Bps: 3}
}

// RoundTrip returns the modeled cost of entering and exiting qty units at the
// given prices.
func (c CostModel) RoundTrip(qty int, entry, exit float64) float64 {
	turnover := float64(qty) * (entry + exit)
	return 2*c.PerOrder + turnover*c.Bps/10000
}
