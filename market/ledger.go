package market

import (
	"sort"
	"time"
)

// TimedTrade is a trade annotated with its event time (millisecond epoch).
type TimedTrade struct {
	TS int64
	Trade
}

// TradeLedger is a time-ordered trade buffer bounded by a retention window.
// Entries older than the newest entry minus retention are evicted on insert,
// so memory stays proportional to the lookback window. Duplicate timestamps
// overwrite (last write wins); trades here are advisory statistics, not a
// fill ledger.
//
// The ledger is single-writer: only the owning feed source inserts. Readers
// go through Since/Last, which return copies.
type TradeLedger struct {
	retention time.Duration
	entries   []TimedTrade
}

// NewTradeLedger creates a ledger retaining trades within the given window.
func NewTradeLedger(retention time.Duration) *TradeLedger {
	if retention <= 0 {
		retention = time.Minute
	}
	return &TradeLedger{retention: retention}
}

// Insert adds a trade keyed by its millisecond event time.
func (l *TradeLedger) Insert(ts int64, t Trade) {
	i := sort.Search(len(l.entries), func(i int) bool { return l.entries[i].TS >= ts })
	if i < len(l.entries) && l.entries[i].TS == ts {
		l.entries[i].Trade = t
	} else {
		l.entries = append(l.entries, TimedTrade{})
		copy(l.entries[i+1:], l.entries[i:])
		l.entries[i] = TimedTrade{TS: ts, Trade: t}
	}
	l.evict()
}

func (l *TradeLedger) evict() {
	if len(l.entries) == 0 {
		return
	}
	cutoff := l.entries[len(l.entries)-1].TS - l.retention.Milliseconds()
	first := sort.Search(len(l.entries), func(i int) bool { return l.entries[i].TS >= cutoff })
	if first > 0 {
		l.entries = append(l.entries[:0], l.entries[first:]...)
	}
}

// Since returns an ordered copy of all trades at or after cutoff.
func (l *TradeLedger) Since(cutoff int64) []TimedTrade {
	first := sort.Search(len(l.entries), func(i int) bool { return l.entries[i].TS >= cutoff })
	out := make([]TimedTrade, len(l.entries)-first)
	copy(out, l.entries[first:])
	return out
}

// Last returns the most recent trade, if any.
func (l *TradeLedger) Last() (TimedTrade, bool) {
	if len(l.entries) == 0 {
		return TimedTrade{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Len returns the number of retained trades.
func (l *TradeLedger) Len() int {
	return len(l.entries)
}
