package feed

import (
	"context"
	"time"

	"quoter-go/infrastructure/logger"
	"quoter-go/market"
)

// Aggregator holds one source per configured venue and exposes read-only
// access to their snapshots. It does no blending on its own: venue weighting
// is policy that belongs to the pricing layer.
type Aggregator struct {
	log     *logger.Logger
	sources map[Venue]Source
}

// NewAggregator wires the given sources.
func NewAggregator(log *logger.Logger, sources ...Source) *Aggregator {
	m := make(map[Venue]Source, len(sources))
	for _, s := range sources {
		m[s.Venue()] = s
	}
	return &Aggregator{log: log.Named("feed"), sources: m}
}

// Start begins ingestion for every source.
func (a *Aggregator) Start(ctx context.Context) {
	for _, s := range a.sources {
		s.Start(ctx)
	}
}

// OrderBook returns a copy of the venue's current book, empty if unknown.
func (a *Aggregator) OrderBook(v Venue) market.OrderBook {
	if s, ok := a.sources[v]; ok {
		return s.Snapshot().Book
	}
	return market.OrderBook{}
}

// Trades returns the venue's trades at or after cutoff, oldest first.
func (a *Aggregator) Trades(v Venue, cutoff time.Time) []market.TimedTrade {
	if s, ok := a.sources[v]; ok {
		return s.Trades(cutoff)
	}
	return nil
}

// LastTrade returns the venue's most recent trade.
func (a *Aggregator) LastTrade(v Venue) (market.TimedTrade, bool) {
	if s, ok := a.sources[v]; ok {
		return s.LastTrade()
	}
	return market.TimedTrade{}, false
}

// HasData reports whether the venue's book has both sides populated.
func (a *Aggregator) HasData(v Venue) bool {
	if s, ok := a.sources[v]; ok {
		return s.HasData()
	}
	return false
}

// ReconnectCheck runs every source's watchdog. Called once per tick.
func (a *Aggregator) ReconnectCheck(ctx context.Context) {
	for _, s := range a.sources {
		s.ReconnectCheck(ctx)
	}
}
