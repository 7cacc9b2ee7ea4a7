package signal

import (
	"github.com/rs/zerolog"

	"github.com/venkat7568/tradego/market"
)

// Evaluator is one strategy. It inspects a snapshot and either proposes a
// Signal or declines. Evaluators must validate their own inputs and be pure
// functions of the snapshot.
type Evaluator interface {
	Name() string
	Evaluate(snap market.Snapshot) (Signal, bool)
}

// GeneratorConfig bounds what the generator will emit.
type GeneratorConfig struct {
	// MinConfidence is the floor below which the winning candidate is
	// discarded.
	MinConfidence float64
	// MinStopPct / MaxStopPct bound the stop distance as a fraction of entry.
	// Stops tighter than MinStopPct get shaken out by noise; wider than
	// MaxStopPct risk too much per unit.
	MinStopPct float64
	MaxStopPct float64
}

// DefaultGeneratorConfig mirrors the production thresholds: 0.65 minimum
// confidence, stops between 0.5% and 3% of entry.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		MinConfidence: 0.65,
		MinStopPct:    0.005,
		MaxStopPct:    0.03,
	}
}

// Generator runs evaluators in a fixed, configured order. The order is the
// tiebreak: on equal confidence the earlier evaluator wins.
type Generator struct {
	cfg   GeneratorConfig
	evals []Evaluator
	log   zerolog.Logger
}

func NewGenerator(cfg GeneratorConfig, evals []Evaluator, log zerolog.Logger) *Generator {
	return &Generator{cfg: cfg, evals: evals, log: log}
}

// Generate evaluates every strategy against snap and returns the best
// candidate. The second return is false when no evaluator produced a signal
// at or above the confidence floor, or the winner failed validation.
//
// A panicking evaluator is treated as "no candidate from this evaluator";
// it never aborts the other evaluators or the calling cycle.
func (g *Generator) Generate(instrument string, snap market.Snapshot) (Signal, bool) {
	if snap.Price <= 0 {
		g.log.Warn().Str("instrument", instrument).Float64("price", snap.Price).
			Msg("rejecting snapshot with non-positive price")
		return Signal{}, false
	}

	var best Signal
	found := false

	for _, ev := range g.evals {
		cand, ok := g.safeEvaluate(ev, snap)
		if !ok {
			continue
		}
		cand.Instrument = instrument
		cand.Strategy = ev.Name()
		// Strictly greater: ties keep the earlier evaluator's candidate.
		if !found || cand.Confidence > best.Confidence {
			best = cand
			found = true
		}
	}

	if !found || best.Confidence < g.cfg.MinConfidence {
		return Signal{}, false
	}
	if !g.validate(best) {
		return Signal{}, false
	}
	return best, true
}

func (g *Generator) safeEvaluate(ev Evaluator, snap market.Snapshot) (sig Signal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Str("strategy", ev.Name()).Str("instrument", snap.Instrument).
				Interface("panic", r).Msg("evaluator panicked; treating as no candidate")
			sig, ok = Signal{}, false
		}
	}()
	return ev.Evaluate(snap)
}

// validate applies the stop-distance bounds that every emitted signal must
// satisfy regardless of which strategy produced it.
func (g *Generator) validate(s Signal) bool {
	risk := s.RiskPerUnit()
	if risk == 0 || s.Entry <= 0 {
		return false
	}
	stopPct := risk / s.Entry
	if stopPct < g.cfg.MinStopPct {
		g.log.Debug().Str("instrument", s.Instrument).Str("strategy", s.Strategy).
			Float64("stop_pct", stopPct).Msg("signal rejected: stop too tight")
		return false
	}
	if stopPct > g.cfg.MaxStopPct {
		g.log.Debug().Str("instrument", s.Instrument).Str("strategy", s.Strategy).
			Float64("stop_pct", stopPct).Msg("signal rejected: stop too wide")
		return false
	}
	return true
}
