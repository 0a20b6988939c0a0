package market

import "time"

// Side is the direction of a trade or order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Trade is a normalized public trade from any venue.
type Trade struct {
	Price    float64
	Quantity float64
	Side     Side
}

// Level is one price level of an order book side.
type Level struct {
	Price    float64
	Quantity float64
}

// OrderBook holds both sides of a book. Best-price-first ordering is a
// producer contract, not guaranteed by storage; BestBid/BestAsk scan the
// whole side so consumers never depend on it.
type OrderBook struct {
	Bids []Level
	Asks []Level
}

// BestBid returns the highest bid price, or 0 if the side is empty.
func (b OrderBook) BestBid() float64 {
	best := 0.0
	for _, lvl := range b.Bids {
		if lvl.Price > best {
			best = lvl.Price
		}
	}
	return best
}

// BestAsk returns the lowest ask price, or 0 if the side is empty.
func (b OrderBook) BestAsk() float64 {
	best := 0.0
	for _, lvl := range b.Asks {
		if best == 0 || lvl.Price < best {
			best = lvl.Price
		}
	}
	return best
}

// Mid returns the midpoint of best bid and best ask, 0 if either side is empty.
func (b OrderBook) Mid() float64 {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

// HasBothSides reports whether both sides carry at least one level.
func (b OrderBook) HasBothSides() bool {
	return len(b.Bids) > 0 && len(b.Asks) > 0
}

// Clone deep-copies the book so readers never observe a torn structure.
func (b OrderBook) Clone() OrderBook {
	out := OrderBook{
		Bids: make([]Level, len(b.Bids)),
		Asks: make([]Level, len(b.Asks)),
	}
	copy(out.Bids, b.Bids)
	copy(out.Asks, b.Asks)
	return out
}

// Balance is one asset's position. Amount ≈ Free + Locked always holds for
// balances emitted by the inventory synthesizer.
type Balance struct {
	Asset  string
	Amount float64
	Free   float64
	Locked float64
}

// ContractBalance is the venue-custodied view of one market.
type ContractBalance struct {
	Base        Balance
	Quote       Balance
	TradingPair string
	Market      string
}

// MarketRules are static per-market constants, sourced once from the venue's
// market metadata and immutable for the process lifetime.
type MarketRules struct {
	MarketAddress     string  `yaml:"marketAddress"`
	Base              string  `yaml:"base"`
	Quote             string  `yaml:"quote"`
	MinNotional       float64 `yaml:"minNotional"`
	MinBaseIncrement  float64 `yaml:"minBaseIncrement"`
	MinQuoteIncrement float64 `yaml:"minQuoteIncrement"`
	TakerFee          float64 `yaml:"takerFee"`
}

// Order is a proposed or resting order. Proposed orders never carry an
// exchange id; resting orders always do.
type Order struct {
	ExchangeOrderID string
	Price           float64
	Quantity        float64
	Side            Side
	ExpireAt        time.Time
}

// Resting reports whether the order is live at the venue.
func (o Order) Resting() bool {
	return o.ExchangeOrderID != ""
}

// Expired reports whether a resting order's lifetime has elapsed.
func (o Order) Expired(now time.Time) bool {
	return !o.ExpireAt.IsZero() && !o.ExpireAt.After(now)
}
