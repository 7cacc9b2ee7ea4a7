package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venkat7568/tradego/execution"
	"github.com/venkat7568/tradego/gateway"
	"github.com/venkat7568/tradego/gateway/sim"
	"github.com/venkat7568/tradego/ledger"
	"github.com/venkat7568/tradego/market"
	"github.com/venkat7568/tradego/notify"
	"github.com/venkat7568/tradego/risk"
	"github.com/venkat7568/tradego/signal"
)

type confEval struct {
	conf map[string]float64
}

func (e confEval) Name() string { return "fake" }

func (e confEval) Evaluate(snap market.Snapshot) (signal.Signal, bool) {
	c, ok := e.conf[snap.Instrument]
	if !ok {
		return signal.Signal{}, false
	}
	return signal.Signal{
		Instrument: snap.Instrument,
		Strategy:   "fake",
		Direction:  signal.Long,
		Entry:      snap.Price,
		Stop:       snap.Price * 0.99,
		Target:     snap.Price * 1.02,
		Confidence: c,
		Product:    signal.Intraday,
	}, true
}

type simProvider struct {
	eng    *sim.Engine
	now    func() time.Time
	broken map[string]bool
}

func (p *simProvider) Snapshot(_ context.Context, instrument string) (market.Snapshot, error) {
	if p.broken[instrument] {
		return market.Snapshot{}, fmt.Errorf("feed down for %s", instrument)
	}
	price, ok := p.eng.Price(instrument)
	if !ok {
		return market.Snapshot{}, fmt.Errorf("no price for %s", instrument)
	}
	return market.Snapshot{Instrument: instrument, Price: price, Time: p.now()}, nil
}

type staticSettings struct {
	settings Settings
	err      error
}

func (s staticSettings) Load(context.Context) (Settings, error) { return s.settings, s.err }

type authGateway struct {
	gateway.Gateway
	failFunds bool
}

func (g *authGateway) Funds(ctx context.Context) (float64, error) {
	if g.failFunds {
		return 0, gateway.ErrAuth
	}
	return g.Gateway.Funds(ctx)
}

type eventSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *eventSink) Publish(e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *eventSink) Close() error { return nil }

func (n *eventSink) count(kind notify.EventKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Kind == kind {
			c++
		}
	}
	return c
}

type harness struct {
	sched  *Scheduler
	eng    *sim.Engine
	gw     *authGateway
	ledger *ledger.Ledger
	events *eventSink
	prov   *simProvider
	limits risk.Limits
}

func midSession() time.Time {
	return time.Date(2026, time.August, 28, 11, 0, 0, 0, time.Local)
}

func newHarness(t *testing.T, universe []string, conf map[string]float64) *harness {
	t.Helper()

	eng := sim.New(1_000_000)
	for _, instrument := range universe {
		eng.SetPrice(instrument, 100)
	}
	gw := &authGateway{Gateway: eng}

	l, err := ledger.New(ledger.NewMemoryStore(), 1_000_000, ledger.CostModel{}, zerolog.Nop())
	require.NoError(t, err)
	l.SetClock(midSession)

	now := midSession
	prov := &simProvider{eng: eng, now: now, broken: map[string]bool{}}
	events := &eventSink{}
	session := market.DefaultSession()

	gen := signal.NewGenerator(signal.GeneratorConfig{
		MinConfidence: 0.65,
		MinStopPct:    0.005,
		MaxStopPct:    0.03,
	}, []signal.Evaluator{confEval{conf: conf}}, zerolog.Nop())

	coord := execution.NewCoordinator(gw, l, prov, session, events,
		execution.Config{FillWait: 100 * time.Millisecond, FillPollRate: 5 * time.Millisecond}, zerolog.Nop())

	limits := risk.DefaultLimits()
	settings := staticSettings{settings: Settings{TradingEnabled: true, Limits: limits}}

	cfg := DefaultConfig()
	sched := New(cfg, StaticUniverse(universe), prov, gen, risk.NewManager(nil, zerolog.Nop()),
		coord, l, gw, settings, events, session, zerolog.Nop())
	sched.now = now

	return &harness{sched: sched, eng: eng, gw: gw, ledger: l, events: events, prov: prov, limits: limits}
}

func TestDecisionCycleOpensTrades(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"RELIANCE", "TCS"}, map[string]float64{
		"RELIANCE": 0.80,
		"TCS":      0.72,
	})

	h.sched.DecideOnce(context.Background())

	open := h.ledger.OpenTrades()
	require.Len(t, open, 2)
}

func TestHighestConfidenceAdmittedFirst(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"RELIANCE", "TCS"}, map[string]float64{
		"RELIANCE": 0.72,
		"TCS":      0.90,
	})
	// With room for a single position, the best candidate takes it.
	limits := h.limits
	limits.MaxOpenPositions = 1
	h.sched.settings = staticSettings{settings: Settings{TradingEnabled: true, Limits: limits}}

	h.sched.DecideOnce(context.Background())

	open := h.ledger.OpenTrades()
	require.Len(t, open, 1)
	assert.Equal(t, "TCS", open[0].Instrument)
}

func TestOneBrokenInstrumentDoesNotAbortCycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"RELIANCE", "TCS"}, map[string]float64{
		"RELIANCE": 0.80,
		"TCS":      0.80,
	})
	h.prov.broken["RELIANCE"] = true

	h.sched.DecideOnce(context.Background())

	open := h.ledger.OpenTrades()
	require.Len(t, open, 1)
	assert.Equal(t, "TCS", open[0].Instrument)
}

func TestCircuitBreakerHaltsAdmissions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"RELIANCE"}, map[string]float64{"RELIANCE": 0.80})

	// Book a realized loss past the 2% daily cap.
	h.eng.SetPrice("HDFCBANK", 500)
	loser, err := h.ledger.Create(signal.Signal{
		Instrument: "HDFCBANK", Strategy: "fake", Direction: signal.Long,
		Entry: 500, Stop: 495, Target: 515, Confidence: 0.7, Product: signal.Intraday,
	}, 5000, 25_000)
	require.NoError(t, err)
	_, err = h.ledger.ConfirmFill(loser.ID, 500)
	require.NoError(t, err)
	_, err = h.ledger.Close(loser.ID, 495, ledger.ExitStopLoss) // -25,000 on 1,000,000
	require.NoError(t, err)

	h.sched.DecideOnce(context.Background())
	assert.Empty(t, h.ledger.OpenTrades())
	assert.Equal(t, 1, h.events.count(notify.CircuitBreakerTripped))

	// The trip notification fires once, not every cycle.
	h.sched.DecideOnce(context.Background())
	assert.Equal(t, 1, h.events.count(notify.CircuitBreakerTripped))
}

func TestAuthFailureAbortsCycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"RELIANCE"}, map[string]float64{"RELIANCE": 0.80})
	h.gw.failFunds = true

	h.sched.DecideOnce(context.Background())
	assert.Empty(t, h.ledger.ActiveTrades())
}

func TestClosedSessionSkipsDecisions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"RELIANCE"}, map[string]float64{"RELIANCE": 0.80})
	h.sched.now = func() time.Time {
		return time.Date(2026, time.August, 28, 18, 0, 0, 0, time.Local)
	}

	h.sched.DecideOnce(context.Background())
	assert.Empty(t, h.ledger.ActiveTrades())
}

func TestTradingDisabledSkipsDecisions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"RELIANCE"}, map[string]float64{"RELIANCE": 0.80})
	h.sched.settings = staticSettings{settings: Settings{TradingEnabled: false, Limits: h.limits}}

	h.sched.DecideOnce(context.Background())
	assert.Empty(t, h.ledger.ActiveTrades())
}

func TestDailySummaryOnSessionClose(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"RELIANCE"}, map[string]float64{"RELIANCE": 0.80})

	h.sched.DecideOnce(context.Background()) // session open

	h.sched.now = func() time.Time {
		return time.Date(2026, time.August, 28, 16, 0, 0, 0, time.Local)
	}
	h.sched.DecideOnce(context.Background()) // session closed: summary fires
	assert.Equal(t, 1, h.events.count(notify.DailySummary))

	h.sched.DecideOnce(context.Background()) // still closed: no repeat
	assert.Equal(t, 1, h.events.count(notify.DailySummary))
}

func TestMonitorClosesAtTarget(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []string{"RELIANCE"}, map[string]float64{"RELIANCE": 0.80})
	h.sched.DecideOnce(context.Background())
	open := h.ledger.OpenTrades()
	require.Len(t, open, 1)

	h.eng.SetPrice("RELIANCE", 103)
	h.sched.MonitorOnce(context.Background())

	tr, err := h.ledger.Get(open[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Closed, tr.State)
	assert.Equal(t, ledger.ExitTarget, tr.ExitReason)
}
