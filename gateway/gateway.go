// Package gateway defines the broker contract the execution coordinator
// drives. Implementations are expected to be safe for concurrent use.
package gateway

import (
	"context"
	"errors"
)

// ErrAuth marks a fatal authentication failure. The scheduler aborts the
// whole cycle on it instead of retrying, since every subsequent call would
// fail the same way until credentials are refreshed.
var ErrAuth = errors.New("gateway: authentication failed")

// ErrOrderNotFound is returned by Status and Cancel for an order ID the
// gateway no longer knows about.
var ErrOrderNotFound = errors.New("gateway: order not found")

// OrderKind selects how an order executes.
type OrderKind string

const (
	Market   OrderKind = "MARKET"
	Limit    OrderKind = "LIMIT"
	StopTrig OrderKind = "STOP"
)

// OrderState is the gateway-reported lifecycle of one order.
type OrderState string

const (
	Pending   OrderState = "PENDING"
	Filled    OrderState = "FILLED"
	Cancelled OrderState = "CANCELLED"
)

// OrderSpec describes one order to place.
type OrderSpec struct {
	Instrument string
	Side       string // BUY or SELL
	Kind       OrderKind
	Quantity   int
	Price      float64 // limit or trigger price; ignored for market orders
	Product    string  // INTRADAY or CARRY
}

// OrderStatus is the gateway's view of a placed order.
type OrderStatus struct {
	ID       string
	State    OrderState
	AvgPrice float64
}

// Gateway is the broker surface the core consumes. Errors other than ErrAuth
// are treated as transient and retried on the next tick.
type Gateway interface {
	Place(ctx context.Context, spec OrderSpec) (string, error)
	Cancel(ctx context.Context, orderID string) error
	Status(ctx context.Context, orderID string) (OrderStatus, error)
	Funds(ctx context.Context) (float64, error)
}
