package risk

import (
	"math"

	"github.com/venkat7568/tradego/signal"
)

// SizeDecision is the deterministic sizing result for one signal.
type SizeDecision struct {
	Quantity     int
	RiskAmount   float64
	RewardToRisk float64
}

// Size converts a signal into a bounded position. It returns ok=false when
// the position cannot be sized: zero risk-per-unit, reward:risk below the
// product-class minimum, or a quantity that rounds to zero.
//
// Risk per trade scales linearly with confidence: a signal at the confidence
// floor risks MinRiskPct of capital, a fully confident one risks MaxRiskPct.
func Size(sig signal.Signal, availableCapital float64, limits Limits) (SizeDecision, bool) {
	riskPerUnit := sig.RiskPerUnit()
	if riskPerUnit <= 0 || availableCapital <= 0 || sig.Entry <= 0 {
		return SizeDecision{}, false
	}

	minRR := limits.MinRewardToRiskIntraday
	if sig.Product == signal.Carry {
		minRR = limits.MinRewardToRiskCarry
	}
	if sig.RewardToRisk() < minRR {
		return SizeDecision{}, false
	}

	riskAmount := availableCapital * riskPct(sig.Confidence, limits)
	quantity := int(math.Floor(riskAmount / riskPerUnit))

	// Position value is capped against available capital; the cap shrinks
	// quantity, and the risk amount shrinks with it.
	maxQuantity := int(math.Floor(limits.MaxPositionPctOfCapital * availableCapital / sig.Entry))
	if quantity > maxQuantity {
		quantity = maxQuantity
	}
	if quantity <= 0 {
		return SizeDecision{}, false
	}

	return SizeDecision{
		Quantity:     quantity,
		RiskAmount:   float64(quantity) * riskPerUnit,
		RewardToRisk: sig.RewardToRisk(),
	}, true
}

func riskPct(confidence float64, limits Limits) float64 {
	span := 1.0 - limits.RiskConfidenceFloor
	frac := (confidence - limits.RiskConfidenceFloor) / span
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return limits.MinRiskPct + frac*(limits.MaxRiskPct-limits.MinRiskPct)
}
