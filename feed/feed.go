// Package feed ingests live market data from external venues. Each source
// owns one websocket connection and the snapshot built from it; the control
// loop reads snapshots as copies and drives reconnect checks once per tick.
package feed

import (
	"context"
	"time"

	"quoter-go/market"
)

// Venue identifies one external market-data source.
type Venue string

const (
	VenueCoinbase Venue = "coinbase"
	VenueBinance  Venue = "binance"
)

// Snapshot is a copy of a source's current state. Safe to retain and read
// without synchronization.
type Snapshot struct {
	Book        market.OrderBook
	LastPrice   float64
	LastMessage time.Time
}

// Source is one venue's normalized data feed.
type Source interface {
	Venue() Venue

	// Start opens the connection and begins ingesting. Connection errors are
	// logged, not returned; the watchdog retries on the next tick.
	Start(ctx context.Context)

	// Snapshot returns the latest known state, non-blocking.
	Snapshot() Snapshot

	// Trades returns retained trades at or after cutoff, oldest first.
	Trades(cutoff time.Time) []market.TimedTrade

	// LastTrade returns the most recent trade, if any.
	LastTrade() (market.TimedTrade, bool)

	// HasData reports whether both book sides are populated.
	HasData() bool

	// Stale reports whether the source has been idle beyond its timeout
	// while the transport claims to be open, or the transport is down.
	Stale(now time.Time) bool

	// ReconnectCheck tears down and redials when Stale. Best effort; a stuck
	// in-flight dial is left to the transport's own timeout.
	ReconnectCheck(ctx context.Context)
}
