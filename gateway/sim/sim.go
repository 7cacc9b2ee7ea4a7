// Package sim is an in-process paper broker. Market orders fill immediately
// at the last known price; limit and stop orders rest until a price update
// crosses them. Used for paper trading mode and tests.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/venkat7568/tradego/gateway"
	"github.com/venkat7568/tradego/pkg/id"
)

type order struct {
	spec   gateway.OrderSpec
	status gateway.OrderStatus
}

// Engine implements gateway.Gateway against an internal price book.
type Engine struct {
	mu     sync.Mutex
	orders map[string]*order
	prices map[string]float64
	funds  float64
}

// New builds a paper engine with the given available funds.
func New(funds float64) *Engine {
	return &Engine{
		orders: make(map[string]*order),
		prices: make(map[string]float64),
		funds:  funds,
	}
}

// SetPrice records the last traded price for an instrument and sweeps
// resting orders on it, filling any whose trigger or limit is crossed.
func (e *Engine) SetPrice(instrument string, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prices[instrument] = price
	for _, o := range e.orders {
		if o.status.State != gateway.Pending || o.spec.Instrument != instrument {
			continue
		}
		if crossed(o.spec, price) {
			o.status.State = gateway.Filled
			o.status.AvgPrice = price
		}
	}
}

// Price returns the last traded price for an instrument.
func (e *Engine) Price(instrument string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.prices[instrument]
	return p, ok
}

func (e *Engine) Place(_ context.Context, spec gateway.OrderSpec) (string, error) {
	if spec.Quantity <= 0 {
		return "", fmt.Errorf("sim: non-positive quantity %d", spec.Quantity)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	o := &order{
		spec:   spec,
		status: gateway.OrderStatus{ID: id.New(), State: gateway.Pending},
	}
	if price, ok := e.prices[spec.Instrument]; ok {
		if spec.Kind == gateway.Market || crossed(spec, price) {
			o.status.State = gateway.Filled
			o.status.AvgPrice = price
		}
	}
	e.orders[o.status.ID] = o
	return o.status.ID, nil
}

func (e *Engine) Cancel(_ context.Context, orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[orderID]
	if !ok {
		return gateway.ErrOrderNotFound
	}
	if o.status.State == gateway.Pending {
		o.status.State = gateway.Cancelled
	}
	return nil
}

func (e *Engine) Status(_ context.Context, orderID string) (gateway.OrderStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[orderID]
	if !ok {
		return gateway.OrderStatus{}, gateway.ErrOrderNotFound
	}
	return o.status, nil
}

func (e *Engine) Funds(context.Context) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.funds, nil
}

// Forget drops an order from the book entirely. Tests use it to simulate a
// broker losing track of a confirmed order.
func (e *Engine) Forget(orderID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.orders, orderID)
}

// crossed reports whether a resting order executes at the given price.
// Limit buys fill at or below the limit, limit sells at or above. Stop
// orders trigger on the opposite side: a sell stop fires at or below the
// trigger, a buy stop at or above.
func crossed(spec gateway.OrderSpec, price float64) bool {
	switch spec.Kind {
	case gateway.Market:
		return true
	case gateway.Limit:
		if spec.Side == "BUY" {
			return price <= spec.Price
		}
		return price >= spec.Price
	case gateway.StopTrig:
		if spec.Side == "SELL" {
			return price <= spec.Price
		}
		return price >= spec.Price
	}
	return false
}
