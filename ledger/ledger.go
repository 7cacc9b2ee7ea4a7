package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/venkat7568/tradego/pkg/id"
	"github.com/venkat7568/tradego/signal"
)

// Ledger keeps the authoritative in-memory set of trades behind one mutex and
// writes every mutation through to a Store. Store failures are logged, never
// propagated: losing a persistence write must not poison the trading loop.
type Ledger struct {
	mu     sync.Mutex
	trades map[string]*Trade

	startingCapital float64
	costs           CostModel
	store           Store
	log             zerolog.Logger

	now func() time.Time
}

// New builds a ledger over the given store and reloads any previously
// persisted trades so open positions survive a restart.
func New(store Store, startingCapital float64, costs CostModel, log zerolog.Logger) (*Ledger, error) {
	l := &Ledger{
		trades:          make(map[string]*Trade),
		startingCapital: startingCapital,
		costs:           costs,
		store:           store,
		log:             log,
		now:             time.Now,
	}

	existing, err := store.LoadTrades()
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	for i := range existing {
		t := existing[i]
		l.trades[t.ID] = &t
	}
	if n := len(existing); n > 0 {
		log.Info().Int("trades", n).Msg("ledger recovered persisted trades")
	}
	return l, nil
}

// Create records a new trade in PENDING_ENTRY from a sized signal. The risk
// amount is fixed here and never recomputed. Creation is refused while the
// instrument already has an active trade.
func (l *Ledger) Create(sig signal.Signal, quantity int, riskAmount float64) (Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range l.trades {
		if t.Instrument == sig.Instrument && t.Active() {
			return Trade{}, fmt.Errorf("create trade: %s already has an active trade (%s)", sig.Instrument, t.ID)
		}
	}

	t := &Trade{
		ID:         id.New(),
		Instrument: sig.Instrument,
		Strategy:   sig.Strategy,
		Direction:  sig.Direction,
		Quantity:   quantity,
		Product:    sig.Product,
		EntryPrice: sig.Entry,
		StopLoss:   sig.Stop,
		Target:     sig.Target,
		RiskAmount: riskAmount,
		EntryTime:  l.now(),
		Confidence: sig.Confidence,
		State:      PendingEntry,
	}
	l.trades[t.ID] = t
	l.persist(t)

	l.log.Info().Str("trade", t.ID).Str("instrument", t.Instrument).
		Str("strategy", t.Strategy).Int("qty", quantity).
		Float64("entry", t.EntryPrice).Float64("risk", riskAmount).
		Msg("trade created")
	return *t, nil
}

// ConfirmFill transitions PENDING_ENTRY to OPEN at the actual fill price.
func (l *Ledger) ConfirmFill(tradeID string, actualEntry float64) (Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(tradeID)
	if err != nil {
		return Trade{}, err
	}
	if t.State != PendingEntry {
		return Trade{}, fmt.Errorf("confirm fill: trade %s is %s, want %s", tradeID, t.State, PendingEntry)
	}

	t.EntryPrice = actualEntry
	t.State = Open
	l.persist(t)

	l.log.Info().Str("trade", t.ID).Float64("fill", actualEntry).Msg("entry filled")
	return *t, nil
}

// ExpireEntry transitions PENDING_ENTRY to the terminal ENTRY_FAILED state
// after the fill wait timed out. Expired trades no longer count toward open
// positions or portfolio heat.
func (l *Ledger) ExpireEntry(tradeID string) (Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(tradeID)
	if err != nil {
		return Trade{}, err
	}
	if t.State != PendingEntry {
		return Trade{}, fmt.Errorf("expire entry: trade %s is %s, want %s", tradeID, t.State, PendingEntry)
	}

	t.State = EntryFailed
	l.persist(t)

	l.log.Warn().Str("trade", t.ID).Str("instrument", t.Instrument).Msg("entry expired without fill")
	return *t, nil
}

// UpdateUnrealized recomputes unrealized P&L and the MAE/MFE excursions for
// an open trade at the current price. State is unchanged.
func (l *Ledger) UpdateUnrealized(tradeID string, currentPrice float64) (Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(tradeID)
	if err != nil {
		return Trade{}, err
	}
	if t.State != Open {
		return Trade{}, fmt.Errorf("update unrealized: trade %s is %s, want %s", tradeID, t.State, Open)
	}

	pnl := t.PnLAt(currentPrice)
	t.UnrealizedPnL = pnl
	if pnl < t.MaxAdverse {
		t.MaxAdverse = pnl
	}
	if pnl > t.MaxFavorable {
		t.MaxFavorable = pnl
	}
	l.persist(t)
	return *t, nil
}

// AdjustStop tightens an open trade's stop. The move is one-directional:
// a stop is never loosened, in either direction of trade.
func (l *Ledger) AdjustStop(tradeID string, newStop float64) (Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(tradeID)
	if err != nil {
		return Trade{}, err
	}
	if t.State != Open {
		return Trade{}, fmt.Errorf("adjust stop: trade %s is %s, want %s", tradeID, t.State, Open)
	}

	if t.Direction == signal.Long && newStop <= t.StopLoss {
		return Trade{}, fmt.Errorf("adjust stop: %0.2f would loosen long stop %0.2f", newStop, t.StopLoss)
	}
	if t.Direction == signal.Short && newStop >= t.StopLoss {
		return Trade{}, fmt.Errorf("adjust stop: %0.2f would loosen short stop %0.2f", newStop, t.StopLoss)
	}

	t.StopLoss = newStop
	l.persist(t)

	l.log.Info().Str("trade", t.ID).Float64("stop", newStop).Msg("stop adjusted")
	return *t, nil
}

// AttachOrders records gateway order IDs on a trade. Empty arguments leave
// the corresponding field untouched.
func (l *Ledger) AttachOrders(tradeID, entryID, targetID, stopID string) (Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(tradeID)
	if err != nil {
		return Trade{}, err
	}
	if entryID != "" {
		t.EntryOrderID = entryID
	}
	if targetID != "" {
		t.TargetOrderID = targetID
	}
	if stopID != "" {
		t.StopOrderID = stopID
	}
	l.persist(t)
	return *t, nil
}

// Close transitions OPEN to CLOSED, computing realized P&L net of modeled
// transaction costs.
//
// Close is idempotent: closing an already-closed trade returns the existing
// record unchanged. Concurrent exit triggers (target fill racing a stop fill)
// make the second call inevitable, not an error.
func (l *Ledger) Close(tradeID string, exitPrice float64, reason ExitReason) (Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(tradeID)
	if err != nil {
		return Trade{}, err
	}
	if t.State == Closed {
		return *t, nil
	}
	if t.State != Open {
		return Trade{}, fmt.Errorf("close: trade %s is %s, want %s", tradeID, t.State, Open)
	}

	gross := t.PnLAt(exitPrice)
	t.ExitPrice = exitPrice
	t.ExitTime = l.now()
	t.ExitReason = reason
	t.RealizedPnL = gross - l.costs.RoundTrip(t.Quantity, t.EntryPrice, exitPrice)
	t.UnrealizedPnL = 0
	t.State = Closed
	l.persist(t)

	l.log.Info().Str("trade", t.ID).Str("instrument", t.Instrument).
		Str("reason", string(reason)).Float64("exit", exitPrice).
		Float64("pnl", t.RealizedPnL).Msg("trade closed")
	return *t, nil
}

// Get returns a copy of one trade.
func (l *Ledger) Get(tradeID string) (Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(tradeID)
	if err != nil {
		return Trade{}, err
	}
	return *t, nil
}

// OpenTrades returns copies of all OPEN trades, oldest entry first.
func (l *Ledger) OpenTrades() []Trade {
	return l.collect(func(t *Trade) bool { return t.State == Open })
}

// ActiveTrades returns copies of all OPEN and PENDING_ENTRY trades.
func (l *Ledger) ActiveTrades() []Trade {
	return l.collect(func(t *Trade) bool { return t.Active() })
}

// TradesEnteredIn returns copies of all trades whose entry falls in p.
func (l *Ledger) TradesEnteredIn(p Period) []Trade {
	return l.collect(func(t *Trade) bool { return p.Contains(t.EntryTime) })
}

// Snapshot aggregates all trades whose entry falls in the period into a
// derived portfolio view. Pure and read-only; safe to call concurrently with
// writes.
func (l *Ledger) Snapshot(p Period) PortfolioSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := PortfolioSnapshot{
		Period:          p,
		StartingCapital: l.startingCapital,
	}

	var grossWins, grossLosses float64
	var wins, closed int

	for _, t := range l.trades {
		if !p.Contains(t.EntryTime) {
			continue
		}
		switch t.State {
		case Open:
			snap.OpenCount++
			snap.DeployedCapital += t.PositionValue()
			snap.UnrealizedPnL += t.UnrealizedPnL
			snap.Heat += t.RiskAmount
		case Closed:
			closed++
			snap.RealizedPnL += t.RealizedPnL
			if t.RealizedPnL > 0 {
				wins++
				grossWins += t.RealizedPnL
			} else if t.RealizedPnL < 0 {
				grossLosses += -t.RealizedPnL
			}
			stats := &snap.Intraday
			if t.Product == signal.Carry {
				stats = &snap.Carry
			}
			stats.Trades++
			stats.PnL += t.RealizedPnL
			if t.RealizedPnL > 0 {
				stats.Wins++
			} else if t.RealizedPnL < 0 {
				stats.Losses++
			}
		}
	}

	if closed > 0 {
		snap.WinRate = float64(wins) / float64(closed)
	}
	if grossLosses > 0 {
		snap.ProfitFactor = grossWins / grossLosses
	}
	return snap
}

// SetClock overrides the ledger's time source. Tests use it to pin entry
// times to a fixed accounting day.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// SaveDailySnapshot computes the snapshot for the period and persists it to
// the store's daily portfolio table.
func (l *Ledger) SaveDailySnapshot(p Period) PortfolioSnapshot {
	snap := l.Snapshot(p)
	if err := l.store.SavePortfolio(snap); err != nil {
		l.log.Error().Err(err).Msg("persist daily snapshot")
	}
	return snap
}

func (l *Ledger) get(tradeID string) (*Trade, error) {
	t, ok := l.trades[tradeID]
	if !ok {
		return nil, fmt.Errorf("trade %q not found", tradeID)
	}
	return t, nil
}

func (l *Ledger) collect(keep func(*Trade) bool) []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Trade
	for _, t := range l.trades {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].EntryTime.Before(out[j].EntryTime)
	})
	return out
}

// persist writes through to the store. Callers hold the mutex.
func (l *Ledger) persist(t *Trade) {
	if err := l.store.SaveTrade(*t); err != nil {
		l.log.Error().Err(err).Str("trade", t.ID).Msg("persist trade")
	}
}
