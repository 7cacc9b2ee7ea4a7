// Package execution drives orders through the broker gateway: entry
// submission with a bounded fill wait, exit brackets, trailing stops, and
// forced end-of-day exits for intraday positions.
package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/venkat7568/tradego/gateway"
	"github.com/venkat7568/tradego/ledger"
	"github.com/venkat7568/tradego/market"
	"github.com/venkat7568/tradego/metrics"
	"github.com/venkat7568/tradego/notify"
	"github.com/venkat7568/tradego/signal"
)

// missingPollLimit is how many consecutive polls may find both exit orders
// missing from the gateway before the trade is flagged as an anomaly.
const missingPollLimit = 3

// Config bounds the entry fill wait.
type Config struct {
	FillWait     time.Duration `yaml:"fill_wait" json:"fill_wait"`
	FillPollRate time.Duration `yaml:"fill_poll_rate" json:"fill_poll_rate"`
}

func DefaultConfig() Config {
	return Config{
		FillWait:     30 * time.Second,
		FillPollRate: 2 * time.Second,
	}
}

// Coordinator submits entries and manages open positions. Safe for
// concurrent use; per-trade state lives in the ledger, the coordinator only
// keeps the missing-order counters.
type Coordinator struct {
	gw       gateway.Gateway
	ledger   *ledger.Ledger
	provider market.Provider
	session  market.Session
	notifier notify.Notifier
	cfg      Config
	log      zerolog.Logger

	mu      sync.Mutex
	missing map[string]int

	now func() time.Time
}

func NewCoordinator(gw gateway.Gateway, l *ledger.Ledger, provider market.Provider,
	session market.Session, notifier notify.Notifier, cfg Config, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		gw:       gw,
		ledger:   l,
		provider: provider,
		session:  session,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		missing:  make(map[string]int),
		now:      time.Now,
	}
}

// Submit places the entry order for a pending trade and waits up to the
// configured bound for a fill. On timeout the entry is cancelled at the
// gateway and the trade expires to ENTRY_FAILED. On fill the exit bracket is
// placed and the trade transitions to OPEN.
func (c *Coordinator) Submit(ctx context.Context, t ledger.Trade) error {
	entryID, err := c.gw.Place(ctx, gateway.OrderSpec{
		Instrument: t.Instrument,
		Side:       string(t.Direction),
		Kind:       gateway.Limit,
		Quantity:   t.Quantity,
		Price:      t.EntryPrice,
		Product:    string(t.Product),
	})
	if err != nil {
		if _, expireErr := c.ledger.ExpireEntry(t.ID); expireErr != nil {
			c.log.Error().Err(expireErr).Str("trade", t.ID).Msg("expire after place failure")
		}
		metrics.GatewayErrors.WithLabelValues("place").Inc()
		return fmt.Errorf("place entry for %s: %w", t.Instrument, err)
	}
	if _, err := c.ledger.AttachOrders(t.ID, entryID, "", ""); err != nil {
		return err
	}

	status, err := c.awaitFill(ctx, entryID)
	if err != nil {
		c.cancelEntry(ctx, t, entryID)
		return err
	}

	c.placeBracket(ctx, t)

	fillPrice := status.AvgPrice
	if fillPrice <= 0 {
		fillPrice = t.EntryPrice
	}
	if _, err := c.ledger.ConfirmFill(t.ID, fillPrice); err != nil {
		return err
	}
	metrics.TradesOpened.Inc()
	return nil
}

// awaitFill polls the entry order until it fills, the wait expires, or ctx
// is cancelled.
func (c *Coordinator) awaitFill(ctx context.Context, orderID string) (gateway.OrderStatus, error) {
	deadline := time.NewTimer(c.cfg.FillWait)
	defer deadline.Stop()
	tick := time.NewTicker(c.cfg.FillPollRate)
	defer tick.Stop()

	for {
		status, err := c.gw.Status(ctx, orderID)
		if err != nil {
			if errors.Is(err, gateway.ErrAuth) {
				return gateway.OrderStatus{}, err
			}
			metrics.GatewayErrors.WithLabelValues("status").Inc()
			c.log.Warn().Err(err).Str("order", orderID).Msg("fill poll failed")
		} else {
			switch status.State {
			case gateway.Filled:
				return status, nil
			case gateway.Cancelled:
				return gateway.OrderStatus{}, fmt.Errorf("entry order %s cancelled at gateway", orderID)
			}
		}

		select {
		case <-ctx.Done():
			return gateway.OrderStatus{}, ctx.Err()
		case <-deadline.C:
			return gateway.OrderStatus{}, fmt.Errorf("entry order %s: no fill within %s", orderID, c.cfg.FillWait)
		case <-tick.C:
		}
	}
}

func (c *Coordinator) cancelEntry(ctx context.Context, t ledger.Trade, entryID string) {
	if err := c.gw.Cancel(ctx, entryID); err != nil && !errors.Is(err, gateway.ErrOrderNotFound) {
		metrics.GatewayErrors.WithLabelValues("cancel").Inc()
		c.log.Error().Err(err).Str("order", entryID).Msg("cancel expired entry")
	}
	if _, err := c.ledger.ExpireEntry(t.ID); err != nil {
		c.log.Error().Err(err).Str("trade", t.ID).Msg("expire entry")
		return
	}
	metrics.EntryTimeouts.Inc()
	c.notifier.Publish(notify.Event{
		Kind:       notify.EntryFailed,
		Instrument: t.Instrument,
		TradeID:    t.ID,
		Detail:     "entry not filled within wait",
		Time:       c.now(),
	})
}

// placeBracket places the linked target and stop exit orders. A bracket leg
// that fails to place is surfaced as an anomaly; the position stays open and
// the monitoring cycle still enforces the EOD exit.
func (c *Coordinator) placeBracket(ctx context.Context, t ledger.Trade) {
	exitSide := exitSideFor(t.Direction)

	targetID, err := c.gw.Place(ctx, gateway.OrderSpec{
		Instrument: t.Instrument,
		Side:       exitSide,
		Kind:       gateway.Limit,
		Quantity:   t.Quantity,
		Price:      t.Target,
		Product:    string(t.Product),
	})
	if err != nil {
		c.reportAnomaly(t, fmt.Sprintf("target leg rejected: %v", err))
	}
	stopID, err := c.gw.Place(ctx, gateway.OrderSpec{
		Instrument: t.Instrument,
		Side:       exitSide,
		Kind:       gateway.StopTrig,
		Quantity:   t.Quantity,
		Price:      t.StopLoss,
		Product:    string(t.Product),
	})
	if err != nil {
		c.reportAnomaly(t, fmt.Sprintf("stop leg rejected: %v", err))
	}
	if _, err := c.ledger.AttachOrders(t.ID, "", targetID, stopID); err != nil {
		c.log.Error().Err(err).Str("trade", t.ID).Msg("attach bracket orders")
	}
}

// Poll is one monitoring pass over an open trade: refresh unrealized P&L,
// detect exit fills, trail the stop to breakeven after one risk-unit of
// gain, and force intraday exits past the session cutoff.
func (c *Coordinator) Poll(ctx context.Context, tradeID string) error {
	t, err := c.ledger.Get(tradeID)
	if err != nil {
		return err
	}
	if t.State != ledger.Open {
		return nil
	}

	snap, err := c.provider.Snapshot(ctx, t.Instrument)
	if err != nil {
		c.log.Warn().Err(err).Str("instrument", t.Instrument).Msg("price fetch failed, retrying next tick")
		return nil
	}
	price := snap.Price

	if t, err = c.ledger.UpdateUnrealized(t.ID, price); err != nil {
		return err
	}

	if closed, err := c.checkExitFills(ctx, t); err != nil || closed {
		return err
	}

	if t.Product == signal.Intraday && c.session.PastCutoff(c.now()) {
		return c.squareOff(ctx, t, price)
	}

	c.maybeTrailStop(ctx, t)
	return nil
}

// checkExitFills closes the trade when an exit leg reports filled. When both
// legs fill on the same poll the target wins and the stop fill is ignored;
// either way the surviving sibling is cancelled.
func (c *Coordinator) checkExitFills(ctx context.Context, t ledger.Trade) (bool, error) {
	targetStatus, targetErr := c.orderStatus(ctx, t.TargetOrderID)
	stopStatus, stopErr := c.orderStatus(ctx, t.StopOrderID)
	if errors.Is(targetErr, gateway.ErrAuth) || errors.Is(stopErr, gateway.ErrAuth) {
		return false, gateway.ErrAuth
	}

	if targetErr == nil && targetStatus.State == gateway.Filled {
		c.cancelSibling(ctx, t.StopOrderID)
		return true, c.closeAt(t, targetStatus.AvgPrice, t.Target, ledger.ExitTarget)
	}
	if stopErr == nil && stopStatus.State == gateway.Filled {
		c.cancelSibling(ctx, t.TargetOrderID)
		return true, c.closeAt(t, stopStatus.AvgPrice, t.StopLoss, ledger.ExitStopLoss)
	}

	c.trackMissing(t, targetErr, stopErr)
	return false, nil
}

func (c *Coordinator) orderStatus(ctx context.Context, orderID string) (gateway.OrderStatus, error) {
	if orderID == "" {
		return gateway.OrderStatus{}, gateway.ErrOrderNotFound
	}
	status, err := c.gw.Status(ctx, orderID)
	if err != nil && !errors.Is(err, gateway.ErrOrderNotFound) && !errors.Is(err, gateway.ErrAuth) {
		metrics.GatewayErrors.WithLabelValues("status").Inc()
	}
	return status, err
}

func (c *Coordinator) closeAt(t ledger.Trade, avgPrice, fallback float64, reason ledger.ExitReason) error {
	price := avgPrice
	if price <= 0 {
		price = fallback
	}
	if _, err := c.ledger.Close(t.ID, price, reason); err != nil {
		return err
	}
	c.clearMissing(t.ID)
	metrics.TradesClosed.WithLabelValues(string(reason)).Inc()
	c.notifier.Publish(notify.Event{
		Kind:       notify.TradeClosed,
		Instrument: t.Instrument,
		TradeID:    t.ID,
		Detail:     string(reason),
		Time:       c.now(),
	})
	return nil
}

func (c *Coordinator) cancelSibling(ctx context.Context, orderID string) {
	if orderID == "" {
		return
	}
	if err := c.gw.Cancel(ctx, orderID); err != nil && !errors.Is(err, gateway.ErrOrderNotFound) {
		metrics.GatewayErrors.WithLabelValues("cancel").Inc()
		c.log.Error().Err(err).Str("order", orderID).Msg("cancel sibling exit")
	}
}

// trackMissing counts consecutive polls where both exit legs are gone from
// the gateway without a terminal status. Past the limit the trade is flagged
// as an anomaly but stays OPEN: a position is never closed without an
// explicit fill or exit confirmation.
func (c *Coordinator) trackMissing(t ledger.Trade, targetErr, stopErr error) {
	bothMissing := errors.Is(targetErr, gateway.ErrOrderNotFound) &&
		errors.Is(stopErr, gateway.ErrOrderNotFound)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !bothMissing {
		delete(c.missing, t.ID)
		return
	}
	c.missing[t.ID]++
	if c.missing[t.ID] == missingPollLimit {
		metrics.OrderAnomalies.Inc()
		c.log.Error().Str("trade", t.ID).Str("instrument", t.Instrument).
			Msg("exit orders missing from gateway, trade left open")
		c.notifier.Publish(notify.Event{
			Kind:       notify.OrderAnomaly,
			Instrument: t.Instrument,
			TradeID:    t.ID,
			Detail:     "exit orders missing from gateway view",
			Time:       c.now(),
		})
	}
}

func (c *Coordinator) clearMissing(tradeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.missing, tradeID)
}

// squareOff cancels the bracket and exits at market, regardless of P&L.
func (c *Coordinator) squareOff(ctx context.Context, t ledger.Trade, price float64) error {
	c.cancelSibling(ctx, t.TargetOrderID)
	c.cancelSibling(ctx, t.StopOrderID)

	exitID, err := c.gw.Place(ctx, gateway.OrderSpec{
		Instrument: t.Instrument,
		Side:       exitSideFor(t.Direction),
		Kind:       gateway.Market,
		Quantity:   t.Quantity,
		Product:    string(t.Product),
	})
	if err != nil {
		metrics.GatewayErrors.WithLabelValues("place").Inc()
		return fmt.Errorf("squareoff %s: %w", t.Instrument, err)
	}

	exitPrice := price
	if status, err := c.gw.Status(ctx, exitID); err == nil && status.AvgPrice > 0 {
		exitPrice = status.AvgPrice
	}
	return c.closeAt(t, exitPrice, price, ledger.ExitEODSquareoff)
}

// maybeTrailStop moves the stop to breakeven once unrealized gain reaches
// one risk-unit. The move is cancel-and-replace at the gateway, and only
// ever tightens.
func (c *Coordinator) maybeTrailStop(ctx context.Context, t ledger.Trade) {
	if t.RiskAmount <= 0 || t.UnrealizedPnL < t.RiskAmount {
		return
	}
	atBreakeven := (t.Direction == signal.Long && t.StopLoss >= t.EntryPrice) ||
		(t.Direction == signal.Short && t.StopLoss <= t.EntryPrice)
	if atBreakeven {
		return
	}

	updated, err := c.ledger.AdjustStop(t.ID, t.EntryPrice)
	if err != nil {
		c.log.Warn().Err(err).Str("trade", t.ID).Msg("trail stop rejected")
		return
	}

	c.cancelSibling(ctx, t.StopOrderID)
	stopID, err := c.gw.Place(ctx, gateway.OrderSpec{
		Instrument: t.Instrument,
		Side:       exitSideFor(t.Direction),
		Kind:       gateway.StopTrig,
		Quantity:   t.Quantity,
		Price:      updated.StopLoss,
		Product:    string(t.Product),
	})
	if err != nil {
		c.reportAnomaly(t, fmt.Sprintf("replacement stop rejected: %v", err))
		return
	}
	if _, err := c.ledger.AttachOrders(t.ID, "", "", stopID); err != nil {
		c.log.Error().Err(err).Str("trade", t.ID).Msg("attach replacement stop")
	}
	c.log.Info().Str("trade", t.ID).Float64("stop", updated.StopLoss).Msg("stop trailed to breakeven")
}

func (c *Coordinator) reportAnomaly(t ledger.Trade, detail string) {
	metrics.OrderAnomalies.Inc()
	c.log.Error().Str("trade", t.ID).Str("instrument", t.Instrument).Msg(detail)
	c.notifier.Publish(notify.Event{
		Kind:       notify.OrderAnomaly,
		Instrument: t.Instrument,
		TradeID:    t.ID,
		Detail:     detail,
		Time:       c.now(),
	})
}

func exitSideFor(d signal.Direction) string {
	if d == signal.Long {
		return "SELL"
	}
	return "BUY"
}
