package risk

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/venkat7568/tradego/ledger"
	"github.com/venkat7568/tradego/market"
	"github.com/venkat7568/tradego/signal"
)

// returnsWindow is how many daily returns are fetched per instrument for the
// correlation check.
const returnsWindow = 20

// Manager runs portfolio-level admission control over sized signals.
type Manager struct {
	returns market.ReturnsProvider
	sector  func(string) string
	log     zerolog.Logger
}

// NewManager builds an admission manager. returns may be nil, in which case
// the correlation check is skipped (allowed).
func NewManager(returns market.ReturnsProvider, log zerolog.Logger) *Manager {
	return &Manager{
		returns: returns,
		sector:  market.Sector,
		log:     log,
	}
}

// Admit checks a sized signal against portfolio limits. Checks run in a fixed
// order, cheapest first, short-circuiting at the first failure. The returned
// reason is a stable human-readable string; Admit has no side effects.
func (m *Manager) Admit(ctx context.Context, sig signal.Signal, dec SizeDecision,
	open []ledger.Trade, snap ledger.PortfolioSnapshot, limits Limits) (bool, string) {

	if len(open) >= limits.MaxOpenPositions {
		return false, "max open positions"
	}

	for _, t := range open {
		if t.Instrument == sig.Instrument {
			return false, fmt.Sprintf("open trade exists on %s", sig.Instrument)
		}
	}

	if snap.StartingCapital > 0 {
		var heat float64
		for _, t := range open {
			heat += t.RiskAmount
		}
		projected := (heat + dec.RiskAmount) / snap.StartingCapital
		if projected > limits.MaxPortfolioHeatPct {
			return false, fmt.Sprintf("portfolio heat %.2f%% over limit %.2f%%",
				projected*100, limits.MaxPortfolioHeatPct*100)
		}
	}

	sector := m.sector(sig.Instrument)
	sameSector := 0
	for _, t := range open {
		if m.sector(t.Instrument) == sector {
			sameSector++
		}
	}
	if sameSector >= limits.MaxSectorPositions {
		return false, fmt.Sprintf("max positions in %s sector", sector)
	}

	if snap.StartingCapital > 0 {
		deployed := snap.DeployedCapital / snap.StartingCapital
		if deployed > limits.MaxCapitalDeployedPct {
			return false, fmt.Sprintf("capital deployed %.2f%% over limit %.2f%%",
				deployed*100, limits.MaxCapitalDeployedPct*100)
		}
	}

	if ok, reason := m.checkCorrelation(ctx, sig.Instrument, open, limits); !ok {
		return false, reason
	}

	return true, ""
}

// checkCorrelation rejects the candidate when its recent return series is too
// correlated with any open instrument. Missing or short return data fails
// open: a trade is never rejected because correlation could not be computed.
func (m *Manager) checkCorrelation(ctx context.Context, instrument string,
	open []ledger.Trade, limits Limits) (bool, string) {

	if m.returns == nil || len(open) == 0 {
		return true, ""
	}

	candidate, err := m.returns.Returns(ctx, instrument, returnsWindow)
	if err != nil || len(candidate) < minOverlap {
		m.log.Debug().Str("instrument", instrument).Err(err).
			Msg("correlation check skipped, insufficient data")
		return true, ""
	}

	for _, t := range open {
		series, err := m.returns.Returns(ctx, t.Instrument, returnsWindow)
		if err != nil {
			continue
		}
		corr, ok := correlation(candidate, series)
		if !ok {
			continue
		}
		if math.Abs(corr) > limits.CorrelationThreshold {
			return false, fmt.Sprintf("correlation %.2f with %s over limit", corr, t.Instrument)
		}
	}
	return true, ""
}
