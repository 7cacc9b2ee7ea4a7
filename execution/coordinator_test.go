package execution

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venkat7568/tradego/gateway"
	"github.com/venkat7568/tradego/gateway/sim"
	"github.com/venkat7568/tradego/ledger"
	"github.com/venkat7568/tradego/market"
	"github.com/venkat7568/tradego/notify"
	"github.com/venkat7568/tradego/signal"
)

type engineProvider struct {
	eng *sim.Engine
}

func (p engineProvider) Snapshot(_ context.Context, instrument string) (market.Snapshot, error) {
	price, ok := p.eng.Price(instrument)
	if !ok {
		return market.Snapshot{}, fmt.Errorf("no price for %s", instrument)
	}
	return market.Snapshot{Instrument: instrument, Price: price, Time: time.Now()}, nil
}

type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *captureNotifier) Publish(e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *captureNotifier) Close() error { return nil }

func (n *captureNotifier) byKind(kind notify.EventKind) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, e := range n.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	eng    *sim.Engine
	ledger *ledger.Ledger
	coord  *Coordinator
	events *captureNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	eng := sim.New(1_000_000)
	l, err := ledger.New(ledger.NewMemoryStore(), 1_000_000, ledger.CostModel{}, zerolog.Nop())
	require.NoError(t, err)

	events := &captureNotifier{}
	cfg := Config{FillWait: 200 * time.Millisecond, FillPollRate: 5 * time.Millisecond}
	coord := NewCoordinator(eng, l, engineProvider{eng}, market.DefaultSession(), events, cfg, zerolog.Nop())
	// Mid-session on a weekday unless a test moves the clock.
	coord.now = func() time.Time {
		return time.Date(2026, time.August, 28, 11, 0, 0, 0, time.Local)
	}
	return &fixture{eng: eng, ledger: l, coord: coord, events: events}
}

func entrySignal() signal.Signal {
	return signal.Signal{
		Instrument: "RELIANCE",
		Strategy:   "news_momentum",
		Direction:  signal.Long,
		Entry:      2500,
		Stop:       2475,
		Target:     2550,
		Confidence: 0.78,
		Product:    signal.Intraday,
	}
}

func (f *fixture) open(t *testing.T) ledger.Trade {
	t.Helper()
	f.eng.SetPrice("RELIANCE", 2500)
	tr, err := f.ledger.Create(entrySignal(), 400, 10_000)
	require.NoError(t, err)
	require.NoError(t, f.coord.Submit(context.Background(), tr))
	tr, err = f.ledger.Get(tr.ID)
	require.NoError(t, err)
	return tr
}

func TestSubmitFillPlacesBracket(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.open(t)

	assert.Equal(t, ledger.Open, tr.State)
	assert.NotEmpty(t, tr.EntryOrderID)
	assert.NotEmpty(t, tr.TargetOrderID)
	assert.NotEmpty(t, tr.StopOrderID)

	// Both exit legs are resting at the gateway.
	for _, id := range []string{tr.TargetOrderID, tr.StopOrderID} {
		st, err := f.eng.Status(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, gateway.Pending, st.State)
	}
}

func TestSubmitTimeoutExpiresEntry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.coord.cfg.FillWait = 30 * time.Millisecond

	// No price published: the limit entry rests unfilled.
	tr, err := f.ledger.Create(entrySignal(), 400, 10_000)
	require.NoError(t, err)

	err = f.coord.Submit(context.Background(), tr)
	require.Error(t, err)

	tr, err = f.ledger.Get(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.EntryFailed, tr.State)

	// The resting order was cancelled at the gateway.
	st, err := f.eng.Status(context.Background(), tr.EntryOrderID)
	require.NoError(t, err)
	assert.Equal(t, gateway.Cancelled, st.State)

	require.Len(t, f.events.byKind(notify.EntryFailed), 1)
}

func TestPollClosesOnTargetFill(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.open(t)

	f.eng.SetPrice("RELIANCE", 2550)
	require.NoError(t, f.coord.Poll(context.Background(), tr.ID))

	tr, err := f.ledger.Get(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Closed, tr.State)
	assert.Equal(t, ledger.ExitTarget, tr.ExitReason)
	assert.InDelta(t, 2550, tr.ExitPrice, 1e-9)

	// The stop sibling was cancelled.
	st, err := f.eng.Status(context.Background(), tr.StopOrderID)
	require.NoError(t, err)
	assert.Equal(t, gateway.Cancelled, st.State)
}

func TestPollDoubleFillPrefersTarget(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.open(t)

	// A spike through the target followed by a crash through the stop fills
	// both exit legs before the next poll.
	f.eng.SetPrice("RELIANCE", 2550)
	f.eng.SetPrice("RELIANCE", 2470)
	require.NoError(t, f.coord.Poll(context.Background(), tr.ID))

	tr, err := f.ledger.Get(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Closed, tr.State)
	assert.Equal(t, ledger.ExitTarget, tr.ExitReason)

	// A second poll must not rewrite the close.
	require.NoError(t, f.coord.Poll(context.Background(), tr.ID))
	again, err := f.ledger.Get(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ExitPrice, again.ExitPrice)
}

func TestPollSquaresOffIntradayPastCutoff(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.open(t)

	// In profit, but past the cutoff the position goes regardless.
	f.eng.SetPrice("RELIANCE", 2520)
	f.coord.now = func() time.Time {
		return time.Date(2026, time.August, 28, 15, 25, 0, 0, time.Local)
	}
	require.NoError(t, f.coord.Poll(context.Background(), tr.ID))

	tr, err := f.ledger.Get(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Closed, tr.State)
	assert.Equal(t, ledger.ExitEODSquareoff, tr.ExitReason)
	assert.InDelta(t, 2520, tr.ExitPrice, 1e-9)
}

func TestPollTrailsStopToBreakeven(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.open(t)
	originalStop := tr.StopOrderID

	// Unrealized gain of one risk-unit (25 points on 400 shares).
	f.eng.SetPrice("RELIANCE", 2526)
	require.NoError(t, f.coord.Poll(context.Background(), tr.ID))

	tr, err := f.ledger.Get(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Open, tr.State)
	assert.InDelta(t, 2500, tr.StopLoss, 1e-9)
	assert.NotEqual(t, originalStop, tr.StopOrderID)

	st, err := f.eng.Status(context.Background(), originalStop)
	require.NoError(t, err)
	assert.Equal(t, gateway.Cancelled, st.State)

	// Another profitable poll leaves the breakeven stop alone.
	replacement := tr.StopOrderID
	f.eng.SetPrice("RELIANCE", 2530)
	require.NoError(t, f.coord.Poll(context.Background(), tr.ID))
	tr, err = f.ledger.Get(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, replacement, tr.StopOrderID)
}

func TestPollFlagsMissingOrdersWithoutClosing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tr := f.open(t)

	f.eng.Forget(tr.TargetOrderID)
	f.eng.Forget(tr.StopOrderID)

	for i := 0; i < missingPollLimit+1; i++ {
		require.NoError(t, f.coord.Poll(context.Background(), tr.ID))
	}

	tr, err := f.ledger.Get(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Open, tr.State, "a trade is never closed without an explicit confirmation")
	assert.Len(t, f.events.byKind(notify.OrderAnomaly), 1, "anomaly surfaced once, not every poll")
}
