package signal

import "github.com/venkat7568/tradego/market"

// NewsMomentum buys strength confirmed by positive sentiment: price above
// VWAP and SMA(20), a volume spike, RSI not yet overbought. Short-horizon by
// nature, so it always proposes intraday product.
type NewsMomentum struct {
	// MinSentiment is the sentiment floor; no score means no signal.
	MinSentiment float64
	// VolumeSpike is the multiple of average volume required.
	VolumeSpike float64
	// StopPct / TargetPct shape the bracket around entry.
	StopPct   float64
	TargetPct float64
}

func NewNewsMomentum() *NewsMomentum {
	return &NewsMomentum{
		MinSentiment: 0.6,
		VolumeSpike:  1.5,
		StopPct:      0.0075,
		TargetPct:    0.015,
	}
}

func (s *NewsMomentum) Name() string { return "news_momentum" }

func (s *NewsMomentum) Evaluate(snap market.Snapshot) (Signal, bool) {
	if !snap.HasSentiment || snap.Sentiment <= s.MinSentiment {
		return Signal{}, false
	}

	price := snap.Price
	vwap, okVWAP := snap.Indicator("vwap")
	rsi, okRSI := snap.Indicator("rsi")
	sma20, okSMA := snap.Indicator("sma_20")
	volume, okVol := snap.Indicator("volume")
	avgVolume, okAvg := snap.Indicator("volume_sma")
	if !okVWAP || !okRSI || !okSMA || !okVol || !okAvg {
		return Signal{}, false
	}

	if price <= vwap || vwap <= 0 {
		return Signal{}, false
	}
	if avgVolume <= 0 || volume <= avgVolume*s.VolumeSpike {
		return Signal{}, false
	}
	if rsi >= 70 {
		return Signal{}, false
	}
	if price <= sma20 || sma20 <= 0 {
		return Signal{}, false
	}

	// Base confidence grows with sentiment above the floor, 0.65-0.85.
	confidence := 0.65 + (snap.Sentiment-s.MinSentiment)*0.5

	if volume > avgVolume*2 {
		confidence += 0.05
	}
	if dRSI, ok := snap.Indicator("daily_rsi"); ok && dRSI > 50 {
		confidence += 0.05
	}
	if confidence > 0.95 {
		confidence = 0.95
	}

	// Stop at VWAP or a fixed fraction below entry, whichever is tighter.
	stop := price * (1 - s.StopPct)
	if vwap > stop {
		stop = vwap
	}

	return Signal{
		Direction:  Long,
		Entry:      price,
		Stop:       stop,
		Target:     price * (1 + s.TargetPct),
		Confidence: confidence,
		Product:    Intraday,
	}, true
}
