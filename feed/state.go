package feed

import (
	"sync"
	"time"

	"quoter-go/market"
)

// tradeData is the mutable state behind a source's snapshot. Single writer
// (the source's read loop), many readers (control loop). Writers replace
// whole fields under the lock so a reader never sees a torn book.
type tradeData struct {
	mu          sync.RWMutex
	book        market.OrderBook
	lastPrice   float64
	lastMessage time.Time
	ledger      *market.TradeLedger
}

func newTradeData(retention time.Duration) *tradeData {
	return &tradeData{
		ledger:      market.NewTradeLedger(retention),
		lastMessage: time.Now(),
	}
}

// replaceBook swaps the book wholesale.
func (d *tradeData) replaceBook(b market.OrderBook) {
	d.mu.Lock()
	d.book = b
	d.mu.Unlock()
}

// addTrade records a trade keyed by its millisecond event time.
func (d *tradeData) addTrade(ts int64, t market.Trade) {
	d.mu.Lock()
	d.lastPrice = t.Price
	d.ledger.Insert(ts, t)
	d.mu.Unlock()
}

// touch records feed liveness.
func (d *tradeData) touch(t time.Time) {
	d.mu.Lock()
	if t.After(d.lastMessage) {
		d.lastMessage = t
	}
	d.mu.Unlock()
}

func (d *tradeData) snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{
		Book:        d.book.Clone(),
		LastPrice:   d.lastPrice,
		LastMessage: d.lastMessage,
	}
}

func (d *tradeData) hasData() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.book.HasBothSides()
}

func (d *tradeData) trades(cutoff int64) []market.TimedTrade {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ledger.Since(cutoff)
}

func (d *tradeData) lastTrade() (market.TimedTrade, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ledger.Last()
}

func (d *tradeData) idle(now time.Time) time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return now.Sub(d.lastMessage)
}
