package market

import (
	"testing"
	"time"
)

func TestOrderBook_Mid(t *testing.T) {
	book := OrderBook{
		Bids: []Level{{Price: 10, Quantity: 1}},
		Asks: []Level{{Price: 12, Quantity: 1}},
	}
	if got := book.Mid(); got != 11 {
		t.Fatalf("mid = %v, want 11", got)
	}
}

func TestOrderBook_BestScanUnsorted(t *testing.T) {
	// Producers usually send best-first, but nothing relies on it.
	book := OrderBook{
		Bids: []Level{{Price: 9.5}, {Price: 10.2}, {Price: 10.0}},
		Asks: []Level{{Price: 11.0}, {Price: 10.4}, {Price: 10.9}},
	}
	if got := book.BestBid(); got != 10.2 {
		t.Errorf("best bid = %v, want 10.2", got)
	}
	if got := book.BestAsk(); got != 10.4 {
		t.Errorf("best ask = %v, want 10.4", got)
	}
}

func TestOrderBook_EmptySides(t *testing.T) {
	var book OrderBook
	if book.HasBothSides() {
		t.Error("empty book should not have both sides")
	}
	if got := book.Mid(); got != 0 {
		t.Errorf("mid of empty book = %v, want 0", got)
	}
	book.Bids = []Level{{Price: 10}}
	if book.HasBothSides() {
		t.Error("one-sided book should not have both sides")
	}
}

func TestOrderBook_CloneIsolated(t *testing.T) {
	book := OrderBook{
		Bids: []Level{{Price: 10, Quantity: 1}},
		Asks: []Level{{Price: 11, Quantity: 1}},
	}
	clone := book.Clone()
	clone.Bids[0].Price = 99
	if book.Bids[0].Price != 10 {
		t.Fatalf("clone mutation leaked into original: %v", book.Bids[0].Price)
	}
}

func TestOrder_Expired(t *testing.T) {
	now := time.Unix(1000, 0)
	o := Order{ExchangeOrderID: "1", ExpireAt: now}
	if !o.Expired(now) {
		t.Error("order expiring exactly now should be expired")
	}
	if o.Expired(now.Add(-time.Second)) {
		t.Error("order should not be expired before its expiry")
	}
	var open Order
	if open.Expired(now) {
		t.Error("order without expiry should never expire")
	}
}
