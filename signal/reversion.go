package signal

import "math"

import "github.com/venkat7568/tradego/market"

// MeanReversion buys oversold conditions in a ranging market: RSI washed out
// or price at the lower Bollinger band, weak trend, sitting on support with
// unexceptional volume (panic tape disqualifies). Intraday only; positions
// are not held overnight.
type MeanReversion struct {
	OversoldRSI float64
	MaxADX      float64
	StopPct     float64
	TargetPct   float64
}

func NewMeanReversion() *MeanReversion {
	return &MeanReversion{
		OversoldRSI: 30,
		MaxADX:      20,
		StopPct:     0.01,
		TargetPct:   0.015,
	}
}

func (s *MeanReversion) Name() string { return "mean_reversion" }

func (s *MeanReversion) Evaluate(snap market.Snapshot) (Signal, bool) {
	price := snap.Price

	rsi, okRSI := snap.Indicator("rsi")
	bbLower, okLower := snap.Indicator("bb_lower")
	bbMiddle, okMiddle := snap.Indicator("bb_middle")
	adx, okADX := snap.Indicator("adx")
	support, okSup := snap.Indicator("support")
	if !okRSI || !okLower || !okMiddle || !okADX || !okSup {
		return Signal{}, false
	}

	oversold := rsi < s.OversoldRSI || price <= bbLower*1.01
	if !oversold {
		return Signal{}, false
	}
	if adx >= s.MaxADX {
		return Signal{}, false
	}
	if support <= 0 || math.Abs(price-support)/price >= 0.02 {
		return Signal{}, false
	}
	// Volume must be unremarkable; a panic tape is not mean reversion.
	if volume, ok := snap.Indicator("volume"); ok {
		if avg, okAvg := snap.Indicator("volume_sma"); okAvg && avg > 0 {
			ratio := volume / avg
			if ratio <= 0.7 || ratio >= 1.5 {
				return Signal{}, false
			}
		}
	}

	confidence := 0.65
	if rsi < 25 {
		confidence += 0.05
	}
	if price < bbLower {
		confidence += 0.05
	}
	if confidence > 0.90 {
		confidence = 0.90
	}

	target := bbMiddle
	if target <= price {
		target = price * (1 + s.TargetPct)
	}

	return Signal{
		Direction:  Long,
		Entry:      price,
		Stop:       support * (1 - s.StopPct),
		Target:     target,
		Confidence: confidence,
		Product:    Intraday,
	}, true
}
