package feed

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quoter-go/infrastructure/logger"
	"quoter-go/market"
	"quoter-go/metrics"
)

// CoinbaseConfig configures one coinbase-style feed source.
type CoinbaseConfig struct {
	URL         string
	ProductID   string
	Key         string
	Secret      string
	Passphrase  string
	IdleTimeout time.Duration
	Retention   time.Duration
}

// CoinbaseSource normalizes the coinbase websocket feed. Ticker events feed
// the trade ledger, snapshot events replace the book, heartbeats refresh
// liveness. Incremental l2update depth is decoded but intentionally not
// applied (see events.go).
type CoinbaseSource struct {
	cfg  CoinbaseConfig
	log  *logger.Logger
	data *tradeData

	mu   sync.Mutex
	ws   *websocket.Conn
	open atomic.Bool

	now func() time.Time
}

// NewCoinbaseSource creates the source; Start must be called to connect.
func NewCoinbaseSource(cfg CoinbaseConfig, log *logger.Logger) *CoinbaseSource {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 2 * time.Second
	}
	return &CoinbaseSource{
		cfg:  cfg,
		log:  log.Named("coinbase"),
		data: newTradeData(cfg.Retention),
		now:  time.Now,
	}
}

func (s *CoinbaseSource) Venue() Venue { return VenueCoinbase }

// Start dials and subscribes. Failures are logged; the watchdog redials on
// the next tick.
func (s *CoinbaseSource) Start(ctx context.Context) {
	if err := s.connect(ctx); err != nil {
		s.log.Warn("initial connect failed", zap.Error(err))
	}
}

func (s *CoinbaseSource) Snapshot() Snapshot { return s.data.snapshot() }

func (s *CoinbaseSource) Trades(cutoff time.Time) []market.TimedTrade {
	return s.data.trades(cutoff.UnixMilli())
}

func (s *CoinbaseSource) LastTrade() (market.TimedTrade, bool) {
	return s.data.lastTrade()
}

func (s *CoinbaseSource) HasData() bool { return s.data.hasData() }

// Stale reports a dead transport or an open one gone quiet past the idle
// timeout.
func (s *CoinbaseSource) Stale(now time.Time) bool {
	if !s.open.Load() {
		return true
	}
	return s.data.idle(now) > s.cfg.IdleTimeout
}

// ReconnectCheck redials when stale. Fresh handshake plus resubscription; no
// replay, state is rebuilt from the next snapshot.
func (s *CoinbaseSource) ReconnectCheck(ctx context.Context) {
	if !s.Stale(s.now()) {
		return
	}
	s.log.Warn("feed stale, reconnecting",
		zap.Duration("idle", s.data.idle(s.now())),
		zap.Bool("open", s.open.Load()))
	metrics.FeedReconnects.WithLabelValues(string(VenueCoinbase)).Inc()
	if err := s.connect(ctx); err != nil {
		s.log.Error("reconnect failed", zap.Error(err))
	}
}

func (s *CoinbaseSource) connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ws != nil {
		_ = s.ws.Close()
		s.ws = nil
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		s.open.Store(false)
		return fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}
	if err := s.subscribe(ws); err != nil {
		_ = ws.Close()
		s.open.Store(false)
		return fmt.Errorf("subscribe: %w", err)
	}
	s.ws = ws
	s.open.Store(true)
	s.data.touch(s.now())
	go s.readLoop(ctx, ws)
	s.log.Info("connected", zap.String("url", s.cfg.URL), zap.String("product", s.cfg.ProductID))
	return nil
}

func (s *CoinbaseSource) subscribe(ws *websocket.Conn) error {
	sub := map[string]any{
		"type":        "subscribe",
		"product_ids": []string{s.cfg.ProductID},
		"channels":    []string{"ticker"},
	}
	if err := ws.WriteJSON(sub); err != nil {
		return err
	}
	hb := map[string]any{
		"type": "subscribe",
		"channels": []map[string]any{
			{"name": "heartbeat", "product_ids": []string{s.cfg.ProductID}},
		},
	}
	if err := ws.WriteJSON(hb); err != nil {
		return err
	}
	if s.cfg.Key == "" {
		return nil
	}
	ts := strconv.FormatInt(s.now().Unix(), 10)
	l2 := map[string]any{
		"type":        "subscribe",
		"channels":    []string{"level2"},
		"product_ids": []string{s.cfg.ProductID},
		"key":         s.cfg.Key,
		"passphrase":  s.cfg.Passphrase,
		"timestamp":   ts,
		"signature":   signSubscription(s.cfg.Secret, ts),
	}
	return ws.WriteJSON(l2)
}

func (s *CoinbaseSource) readLoop(ctx context.Context, ws *websocket.Conn) {
	defer s.open.CompareAndSwap(true, false)
	for {
		if ctx.Err() != nil {
			_ = ws.Close()
			return
		}
		_, raw, err := ws.ReadMessage()
		if err != nil {
			s.log.Warn("read failed", zap.Error(err))
			return
		}
		s.handle(raw)
	}
}

func (s *CoinbaseSource) handle(raw []byte) {
	ev, err := DecodeEvent(raw)
	if err != nil {
		s.log.Debug("undecodable message", zap.Error(err))
		return
	}
	switch ev.Kind {
	case EventTicker:
		price, err1 := strconv.ParseFloat(ev.Ticker.Price, 64)
		qty, err2 := strconv.ParseFloat(ev.Ticker.LastSize, 64)
		if err1 != nil || err2 != nil {
			return
		}
		ts, err := time.Parse(time.RFC3339Nano, ev.Ticker.Time)
		if err != nil {
			ts = s.now()
		}
		s.data.addTrade(ts.UnixMilli(), market.Trade{
			Price:    price,
			Quantity: qty,
			Side:     market.Side(ev.Ticker.Side),
		})
	case EventSnapshot:
		s.data.replaceBook(levelsToBook(ev.Snapshot.Bids, ev.Snapshot.Asks))
	case EventL2Update:
		// Advisory only. Top-of-book pricing comes from the ticker stream.
	case EventHeartbeat:
		if ts, err := time.Parse(time.RFC3339Nano, ev.Heartbeat.Time); err == nil {
			s.data.touch(ts)
		} else {
			s.data.touch(s.now())
		}
	case EventSubscriptionAck:
		s.log.Info("subscribed", zap.Int("channels", len(ev.Ack.Channels)))
	}
}

func levelsToBook(bids, asks [][]string) market.OrderBook {
	parse := func(raw [][]string) []market.Level {
		out := make([]market.Level, 0, len(raw))
		for _, pair := range raw {
			if len(pair) < 2 {
				continue
			}
			price, err1 := strconv.ParseFloat(pair[0], 64)
			qty, err2 := strconv.ParseFloat(pair[1], 64)
			if err1 != nil || err2 != nil {
				continue
			}
			out = append(out, market.Level{Price: price, Quantity: qty})
		}
		return out
	}
	return market.OrderBook{Bids: parse(bids), Asks: parse(asks)}
}
