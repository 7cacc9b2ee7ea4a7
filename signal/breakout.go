package signal

import "github.com/venkat7568/tradego/market"

// TechnicalBreakout buys a close above the prior 20-day high on heavy
// volume inside an established uptrend (ADX trending, SMA(20) > SMA(50),
// fresh MACD crossover). Breakouts are allowed to run, so the product is
// carry.
type TechnicalBreakout struct {
	VolumeSpike float64
	MinADX      float64
	StopPct     float64
	TargetPct   float64
}

func NewTechnicalBreakout() *TechnicalBreakout {
	return &TechnicalBreakout{
		VolumeSpike: 2.0,
		MinADX:      25,
		StopPct:     0.012,
		TargetPct:   0.025,
	}
}

func (s *TechnicalBreakout) Name() string { return "technical_breakout" }

func (s *TechnicalBreakout) Evaluate(snap market.Snapshot) (Signal, bool) {
	price := snap.Price

	high20, okHigh := snap.Indicator("high_20d")
	volume, okVol := snap.Indicator("volume")
	avgVolume, okAvg := snap.Indicator("volume_sma")
	adx, okADX := snap.Indicator("adx")
	sma20, okS20 := snap.Indicator("sma_20")
	sma50, okS50 := snap.Indicator("sma_50")
	macdHist, okHist := snap.Indicator("macd_hist")
	macdHistPrev, okPrev := snap.Indicator("macd_hist_prev")
	if !okHigh || !okVol || !okAvg || !okADX || !okS20 || !okS50 || !okHist || !okPrev {
		return Signal{}, false
	}

	if price <= high20 || high20 <= 0 {
		return Signal{}, false
	}
	if avgVolume <= 0 || volume <= avgVolume*s.VolumeSpike {
		return Signal{}, false
	}
	if adx <= s.MinADX {
		return Signal{}, false
	}
	// MACD histogram flipping positive counts as a crossover.
	if !(macdHistPrev < 0 && macdHist > 0) {
		return Signal{}, false
	}
	if price <= sma50 || sma50 <= 0 || sma20 <= sma50 {
		return Signal{}, false
	}

	confidence := 0.70
	if volume > avgVolume*3 {
		confidence += 0.05
	}
	if adx > 35 {
		confidence += 0.05
	}
	if (price-high20)/high20 > 0.02 {
		confidence += 0.05
	}
	if confidence > 0.95 {
		confidence = 0.95
	}

	// Stop below entry by a fixed fraction or at the recent swing low,
	// whichever is tighter.
	stop := price * (1 - s.StopPct)
	if swingLow, ok := snap.Indicator("swing_low"); ok && swingLow > stop {
		stop = swingLow
	}

	return Signal{
		Direction:  Long,
		Entry:      price,
		Stop:       stop,
		Target:     price * (1 + s.TargetPct),
		Confidence: confidence,
		Product:    Carry,
	}, true
}
