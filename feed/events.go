package feed

import (
	"encoding/json"
	"fmt"
)

// EventKind discriminates the closed set of messages a coinbase-style feed
// produces. Anything else decodes to EventUnknown and is dropped.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventTicker
	EventSnapshot
	EventL2Update
	EventHeartbeat
	EventSubscriptionAck
)

// TickerEvent is a trade-driven top-of-book update.
type TickerEvent struct {
	Type     string `json:"type"`
	Price    string `json:"price"`
	LastSize string `json:"last_size"`
	Side     string `json:"side"`
	Time     string `json:"time"`
	BestBid  string `json:"best_bid"`
	BestAsk  string `json:"best_ask"`
}

// SnapshotEvent replaces the book wholesale. Levels arrive as [price, size]
// string pairs, best first.
type SnapshotEvent struct {
	Type string     `json:"type"`
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

// L2UpdateEvent carries incremental depth deltas as [side, price, size]
// triples. Parsed but not applied: top-of-book via ticker is authoritative,
// incremental depth is advisory only.
type L2UpdateEvent struct {
	Type    string     `json:"type"`
	Changes [][]string `json:"changes"`
}

// HeartbeatEvent is a keepalive; it only refreshes liveness.
type HeartbeatEvent struct {
	Type string `json:"type"`
	Time string `json:"time"`
}

// SubscriptionAckEvent acknowledges channel subscriptions.
type SubscriptionAckEvent struct {
	Type     string            `json:"type"`
	Channels []json.RawMessage `json:"channels"`
}

// Event is the decoded tagged variant. Exactly one payload field is non-nil
// for a known Kind.
type Event struct {
	Kind      EventKind
	Ticker    *TickerEvent
	Snapshot  *SnapshotEvent
	L2Update  *L2UpdateEvent
	Heartbeat *HeartbeatEvent
	Ack       *SubscriptionAckEvent
}

// DecodeEvent classifies and decodes one raw feed message.
func DecodeEvent(raw []byte) (Event, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Event{}, fmt.Errorf("decode event type: %w", err)
	}
	switch probe.Type {
	case "ticker":
		var ev TickerEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return Event{}, fmt.Errorf("decode ticker: %w", err)
		}
		return Event{Kind: EventTicker, Ticker: &ev}, nil
	case "snapshot":
		var ev SnapshotEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return Event{}, fmt.Errorf("decode snapshot: %w", err)
		}
		return Event{Kind: EventSnapshot, Snapshot: &ev}, nil
	case "l2update":
		var ev L2UpdateEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return Event{}, fmt.Errorf("decode l2update: %w", err)
		}
		return Event{Kind: EventL2Update, L2Update: &ev}, nil
	case "heartbeat":
		var ev HeartbeatEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return Event{}, fmt.Errorf("decode heartbeat: %w", err)
		}
		return Event{Kind: EventHeartbeat, Heartbeat: &ev}, nil
	case "subscriptions":
		var ev SubscriptionAckEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return Event{}, fmt.Errorf("decode subscriptions: %w", err)
		}
		return Event{Kind: EventSubscriptionAck, Ack: &ev}, nil
	}
	return Event{Kind: EventUnknown}, nil
}
