package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"quoter-go/infrastructure/logger"
	"quoter-go/market"
	"quoter-go/metrics"
)

// BinanceConfig configures one binance-style feed source.
type BinanceConfig struct {
	URL         string // base endpoint, e.g. wss://stream.binance.com:9443
	Symbol      string // e.g. SOLUSDT
	IdleTimeout time.Duration
	Retention   time.Duration
}

// BinanceSource reads a combined trade + partial-depth stream. Trades feed
// the ledger; each partial depth message replaces the book wholesale. There
// is no dedicated heartbeat channel, so every message refreshes liveness.
type BinanceSource struct {
	cfg  BinanceConfig
	log  *logger.Logger
	data *tradeData

	mu   sync.Mutex
	ws   *websocket.Conn
	open atomic.Bool

	now func() time.Time
}

// NewBinanceSource creates the source; Start must be called to connect.
func NewBinanceSource(cfg BinanceConfig, log *logger.Logger) *BinanceSource {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 2 * time.Second
	}
	return &BinanceSource{
		cfg:  cfg,
		log:  log.Named("binance"),
		data: newTradeData(cfg.Retention),
		now:  time.Now,
	}
}

func (s *BinanceSource) Venue() Venue { return VenueBinance }

func (s *BinanceSource) Start(ctx context.Context) {
	if err := s.connect(ctx); err != nil {
		s.log.Warn("initial connect failed", zap.Error(err))
	}
}

func (s *BinanceSource) Snapshot() Snapshot { return s.data.snapshot() }

func (s *BinanceSource) Trades(cutoff time.Time) []market.TimedTrade {
	return s.data.trades(cutoff.UnixMilli())
}

func (s *BinanceSource) LastTrade() (market.TimedTrade, bool) {
	return s.data.lastTrade()
}

func (s *BinanceSource) HasData() bool { return s.data.hasData() }

func (s *BinanceSource) Stale(now time.Time) bool {
	if !s.open.Load() {
		return true
	}
	return s.data.idle(now) > s.cfg.IdleTimeout
}

func (s *BinanceSource) ReconnectCheck(ctx context.Context) {
	if !s.Stale(s.now()) {
		return
	}
	s.log.Warn("feed stale, reconnecting", zap.Duration("idle", s.data.idle(s.now())))
	metrics.FeedReconnects.WithLabelValues(string(VenueBinance)).Inc()
	if err := s.connect(ctx); err != nil {
		s.log.Error("reconnect failed", zap.Error(err))
	}
}

func (s *BinanceSource) streamURL() string {
	sym := strings.ToLower(s.cfg.Symbol)
	streams := sym + "@trade/" + sym + "@depth20@100ms"
	return fmt.Sprintf("%s/stream?streams=%s", strings.TrimSuffix(s.cfg.URL, "/"), streams)
}

func (s *BinanceSource) connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ws != nil {
		_ = s.ws.Close()
		s.ws = nil
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, s.streamURL(), nil)
	if err != nil {
		s.open.Store(false)
		return fmt.Errorf("dial %s: %w", s.streamURL(), err)
	}
	s.ws = ws
	s.open.Store(true)
	s.data.touch(s.now())
	go s.readLoop(ctx, ws)
	s.log.Info("connected", zap.String("symbol", s.cfg.Symbol))
	return nil
}

func (s *BinanceSource) readLoop(ctx context.Context, ws *websocket.Conn) {
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
		s.data.touch(s.now())
		s.handle(raw)
	}
}

func (s *BinanceSource) handle(raw []byte) {
	data := gjson.GetBytes(raw, "data")
	if !data.Exists() {
		return
	}
	if data.Get("e").String() == "trade" {
		side := market.Buy
		if data.Get("m").Bool() {
			side = market.Sell
		}
		s.data.addTrade(data.Get("T").Int(), market.Trade{
			Price:    data.Get("p").Float(),
			Quantity: data.Get("q").Float(),
			Side:     side,
		})
		return
	}
	if bids := data.Get("bids"); bids.Exists() {
		s.data.replaceBook(market.OrderBook{
			Bids: gjsonLevels(bids),
			Asks: gjsonLevels(data.Get("asks")),
		})
	}
}

func gjsonLevels(v gjson.Result) []market.Level {
	rows := v.Array()
	out := make([]market.Level, 0, len(rows))
	for _, row := range rows {
		pair := row.Array()
		if len(pair) < 2 {
			continue
		}
		out = append(out, market.Level{
			Price:    pair[0].Float(),
			Quantity: pair[1].Float(),
		})
	}
	return out
}
