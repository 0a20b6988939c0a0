// Package exchange defines the execution boundary the controller drives.
// Real venue adapters (transaction building, signing, RPC submission) live
// behind this interface; the in-repo Paper implementation backs dry runs and
// tests.
package exchange

import (
	"context"

	"quoter-go/market"
)

// CancelParams identifies one resting order to cancel.
type CancelParams struct {
	OrderID string
	Side    market.Side
	Price   float64
}

// Batch is one submission: new orders and optionally a full-withdrawal
// instruction bundled into the same transaction.
type Batch struct {
	Orders      []market.Order
	WithdrawAll bool
}

// Client is the venue execution boundary. All calls are invoked from the
// control loop only, so implementations need no synchronization against the
// controller. Submission is fire-and-forget: the controller logs failures
// and proceeds to sleep rather than retrying within the tick.
type Client interface {
	// ContractBalance returns the venue-custodied balance for the market.
	ContractBalance(ctx context.Context) (market.ContractBalance, error)

	// MarketRules returns the static market metadata. Fatal at startup if
	// unavailable.
	MarketRules(ctx context.Context) (market.MarketRules, error)

	// RestingOrders returns the trader's live orders, excluding any whose
	// expiry has passed.
	RestingOrders(ctx context.Context) ([]market.Order, error)

	// BookSnapshot returns the venue's current order book.
	BookSnapshot(ctx context.Context) (market.OrderBook, error)

	// Submit places the batch.
	Submit(ctx context.Context, b Batch) error

	// CancelAll cancels every resting order.
	CancelAll(ctx context.Context) error

	// CancelByID cancels the identified resting orders.
	CancelByID(ctx context.Context, cancels []CancelParams) error
}
