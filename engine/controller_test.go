package engine

import (
	"context"
	"testing"
	"time"

	"quoter-go/exchange"
	"quoter-go/feed"
	"quoter-go/infrastructure/logger"
	"quoter-go/inventory"
	"quoter-go/market"
	"quoter-go/wallet"
)

type fakeSource struct {
	venue  feed.Venue
	book   market.OrderBook
	trades []market.TimedTrade
}

func (f *fakeSource) Venue() feed.Venue           { return f.venue }
func (f *fakeSource) Start(ctx context.Context)   {}
func (f *fakeSource) Snapshot() feed.Snapshot     { return feed.Snapshot{Book: f.book.Clone()} }
func (f *fakeSource) HasData() bool               { return f.book.HasBothSides() }
func (f *fakeSource) Stale(now time.Time) bool    { return false }
func (f *fakeSource) ReconnectCheck(ctx context.Context) {}
func (f *fakeSource) Trades(cutoff time.Time) []market.TimedTrade {
	var out []market.TimedTrade
	for _, tt := range f.trades {
		if tt.TS >= cutoff.UnixMilli() {
			out = append(out, tt)
		}
	}
	return out
}
func (f *fakeSource) LastTrade() (market.TimedTrade, bool) {
	if len(f.trades) == 0 {
		return market.TimedTrade{}, false
	}
	return f.trades[len(f.trades)-1], true
}

type fakeWallet struct{}

func (fakeWallet) ListHeldAssets(ctx context.Context, owner string) ([]wallet.HeldAsset, error) {
	return nil, nil
}
func (fakeWallet) NativeBalance(ctx context.Context, owner string) (float64, error) {
	return 2, nil
}

var _ wallet.Provider = fakeWallet{}

type fakeStrategy struct {
	orders []market.Order
}

func (f *fakeStrategy) CalculateParameters(market.ContractBalance, market.OrderBook, []market.TimedTrade) {
}
func (f *fakeStrategy) GenerateOrders(*market.Trade, market.OrderBook) []market.Order {
	return f.orders
}

func testMarketRules() market.MarketRules {
	return market.MarketRules{
		Base:              "SOL",
		Quote:             "USDC",
		MinBaseIncrement:  0.001,
		MinQuoteIncrement: 0.001,
	}
}

func feedBook(mid float64) market.OrderBook {
	return market.OrderBook{
		Bids: []market.Level{{Price: mid - 0.1, Quantity: 5}},
		Asks: []market.Level{{Price: mid + 0.1, Quantity: 5}},
	}
}

type harness struct {
	ctrl   *Controller
	paper  *exchange.Paper
	source *fakeSource
	strat  *fakeStrategy
	now    time.Time
}

func newHarness(t *testing.T, cfg Config, strat *fakeStrategy) *harness {
	t.Helper()
	paper := exchange.NewPaper(testMarketRules(), 0)
	paper.SetContractBalance(market.ContractBalance{
		Base:  market.Balance{Asset: "SOL", Amount: 2, Free: 2},
		Quote: market.Balance{Asset: "USDC", Amount: 50, Free: 50},
	})
	source := &fakeSource{venue: feed.VenueCoinbase}
	agg := feed.NewAggregator(logger.NewNop(), source)
	inv := inventory.NewSynthesizer(paper, fakeWallet{}, "owner", nil, logger.NewNop())

	if cfg.Lookback == 0 {
		cfg.Lookback = time.Minute
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.PrimaryVenue == "" {
		cfg.PrimaryVenue = feed.VenueCoinbase
	}
	if cfg.BookWeights == [2]float64{} {
		cfg.BookWeights = [2]float64{0.8, 0.2}
	}
	ctrl := New(cfg, agg, inv, strat, paper, logger.NewNop())

	h := &harness{ctrl: ctrl, paper: paper, source: source, strat: strat, now: time.Unix(1_700_000_000, 0)}
	ctrl.SetClock(func() time.Time { return h.now })
	ctrl.start = h.now
	paper.SetNow(func() time.Time { return h.now })
	return h
}

// seed populates a healthy feed and venue book around mid.
func (h *harness) seed(mid float64) {
	h.source.book = feedBook(mid)
	h.source.trades = []market.TimedTrade{
		{TS: h.now.UnixMilli(), Trade: market.Trade{Price: mid, Quantity: 1, Side: market.Buy}},
	}
	h.paper.SetBook(feedBook(mid))
}

func TestRunTick_WarmupGate(t *testing.T) {
	h := newHarness(t, Config{WarmUp: time.Minute}, &fakeStrategy{})
	h.seed(20)
	skip, err := h.ctrl.runTick(context.Background(), h.now)
	if err != nil || skip != SkipWarmup {
		t.Fatalf("skip = %q, err = %v, want warmup", skip, err)
	}
}

func TestRunTick_NoBookGate(t *testing.T) {
	h := newHarness(t, Config{}, &fakeStrategy{})
	skip, err := h.ctrl.runTick(context.Background(), h.now)
	if err != nil || skip != SkipNoBook {
		t.Fatalf("skip = %q, err = %v, want no_book", skip, err)
	}
}

func TestRunTick_NoTradesGate(t *testing.T) {
	h := newHarness(t, Config{}, &fakeStrategy{})
	h.seed(20)
	h.source.trades = nil
	skip, err := h.ctrl.runTick(context.Background(), h.now)
	if err != nil || skip != SkipNoTrades {
		t.Fatalf("skip = %q, err = %v, want no_trades", skip, err)
	}
}

func TestRunTick_StaleTradesOutsideLookback(t *testing.T) {
	h := newHarness(t, Config{Lookback: time.Minute}, &fakeStrategy{})
	h.seed(20)
	h.source.trades = []market.TimedTrade{
		{TS: h.now.Add(-2 * time.Minute).UnixMilli(), Trade: market.Trade{Price: 20, Quantity: 1}},
	}
	skip, _ := h.ctrl.runTick(context.Background(), h.now)
	if skip != SkipNoTrades {
		t.Fatalf("skip = %q, want no_trades for stale-only window", skip)
	}
}

func TestRunTick_EmptyLadderGate(t *testing.T) {
	h := newHarness(t, Config{}, &fakeStrategy{})
	h.seed(20)
	skip, err := h.ctrl.runTick(context.Background(), h.now)
	if err != nil || skip != SkipNoOrders {
		t.Fatalf("skip = %q, err = %v, want no_orders", skip, err)
	}
}

func TestRunTick_PlacesOrders(t *testing.T) {
	strat := &fakeStrategy{orders: []market.Order{
		{Price: 20.5, Quantity: 2, Side: market.Sell},
		{Price: 19.5, Quantity: 2, Side: market.Buy},
	}}
	h := newHarness(t, Config{}, strat)
	h.seed(20)

	skip, err := h.ctrl.runTick(context.Background(), h.now)
	if skip != "" || err != nil {
		t.Fatalf("skip = %q, err = %v, want completed tick", skip, err)
	}
	resting, _ := h.paper.RestingOrders(context.Background())
	if len(resting) != 2 {
		t.Fatalf("resting = %d, want 2", len(resting))
	}
	for _, o := range resting {
		if !o.Resting() {
			t.Errorf("placed order missing exchange id: %+v", o)
		}
	}
}

func TestRunTick_CrossFilter(t *testing.T) {
	// Venue book: best bid 19.9, best ask 20.1.
	strat := &fakeStrategy{orders: []market.Order{
		{Price: 20.3, Quantity: 2, Side: market.Buy},  // crosses the ask, dropped
		{Price: 19.8, Quantity: 2, Side: market.Buy},  // survives
		{Price: 19.7, Quantity: 2, Side: market.Sell}, // crosses the bid, dropped
		{Price: 20.4, Quantity: 2, Side: market.Sell}, // survives
	}}
	h := newHarness(t, Config{}, strat)
	h.seed(20)

	skip, err := h.ctrl.runTick(context.Background(), h.now)
	if skip != "" || err != nil {
		t.Fatalf("skip = %q, err = %v", skip, err)
	}
	resting, _ := h.paper.RestingOrders(context.Background())
	if len(resting) != 2 {
		t.Fatalf("resting = %d, want 2 survivors", len(resting))
	}
	for _, o := range resting {
		if o.Price == 20.3 || o.Price == 19.7 {
			t.Errorf("crossed order %v must not be placed", o.Price)
		}
	}
}

func TestRunTick_MoveGateHoldsRestingOrders(t *testing.T) {
	strat := &fakeStrategy{orders: []market.Order{
		{Price: 20.5, Quantity: 2, Side: market.Sell},
	}}
	h := newHarness(t, Config{MoveThreshold: 0.005}, strat)
	h.seed(20)

	// First tick places the ladder and records the reference mid.
	if skip, err := h.ctrl.runTick(context.Background(), h.now); skip != "" || err != nil {
		t.Fatalf("first tick: skip = %q, err = %v", skip, err)
	}
	// Second tick has resting orders and an unmoved mid: held.
	if skip, _ := h.ctrl.runTick(context.Background(), h.now); skip != SkipMoveGate {
		t.Fatalf("second tick skip = %q, want move_gate", skip)
	}
	// Mid barely moves: still held.
	h.seed(20.02)
	if skip, _ := h.ctrl.runTick(context.Background(), h.now); skip != SkipMoveGate {
		t.Fatalf("small move skip = %q, want move_gate", skip)
	}
	resting, _ := h.paper.RestingOrders(context.Background())
	if len(resting) != 1 {
		t.Fatalf("move gate must preserve resting orders, got %d", len(resting))
	}
	// Mid jumps 10 percent: replace.
	h.seed(22)
	if skip, err := h.ctrl.runTick(context.Background(), h.now); skip != "" || err != nil {
		t.Fatalf("large move: skip = %q, err = %v", skip, err)
	}
}

func TestRunTick_CancelAllWhenLadderSurvives(t *testing.T) {
	strat := &fakeStrategy{orders: []market.Order{
		{Price: 20.5, Quantity: 2, Side: market.Sell},
		{Price: 19.5, Quantity: 2, Side: market.Buy},
	}}
	// Threshold zero so the move gate never holds after seeding.
	h := newHarness(t, Config{}, strat)
	h.seed(20)

	for i := 0; i < 3; i++ {
		if skip, err := h.ctrl.runTick(context.Background(), h.now); skip != "" || err != nil {
			t.Fatalf("tick %d: skip = %q, err = %v", i, skip, err)
		}
		// Jiggle the mid without letting any proposal cross the book.
		h.seed(20 + 0.05*float64(i+1))
	}
	_, _, cancelAlls, cancelByID := h.paper.Stats()
	if cancelAlls == 0 {
		t.Error("expected cancel-all when the full ladder survives the cross filter")
	}
	if cancelByID != 0 {
		t.Errorf("cancel-by-id = %d, want 0 on the full-survival path", cancelByID)
	}
}

func TestRunTick_CancelByIDWhenFiltered(t *testing.T) {
	strat := &fakeStrategy{orders: []market.Order{
		{Price: 20.5, Quantity: 2, Side: market.Sell},
		{Price: 19.5, Quantity: 2, Side: market.Buy},
	}}
	h := newHarness(t, Config{}, strat)
	h.seed(20)
	if skip, err := h.ctrl.runTick(context.Background(), h.now); skip != "" || err != nil {
		t.Fatalf("setup tick: skip = %q, err = %v", skip, err)
	}

	// Shift the venue book so one proposal crosses and is filtered out,
	// forcing the per-id cancel path.
	h.seed(21)
	h.strat.orders = []market.Order{
		{Price: 20.8, Quantity: 2, Side: market.Buy},  // below the 21.1 ask, survives
		{Price: 20.9, Quantity: 2, Side: market.Sell}, // at the 20.9 bid, dropped
	}
	if skip, err := h.ctrl.runTick(context.Background(), h.now); skip != "" || err != nil {
		t.Fatalf("second tick: skip = %q, err = %v", skip, err)
	}
	_, _, _, cancelByID := h.paper.Stats()
	if cancelByID != 1 {
		t.Fatalf("cancel-by-id calls = %d, want 1", cancelByID)
	}
}

func TestRunTick_WithdrawEveryFifthCycle(t *testing.T) {
	strat := &fakeStrategy{orders: []market.Order{
		{Price: 20.5, Quantity: 2, Side: market.Sell},
	}}
	h := newHarness(t, Config{WithdrawEvery: 5}, strat)

	for i := 0; i < 10; i++ {
		h.seed(20 + 0.01*float64(i)) // keep the move gate open
		if skip, err := h.ctrl.runTick(context.Background(), h.now); skip != "" || err != nil {
			t.Fatalf("tick %d: skip = %q, err = %v", i, skip, err)
		}
	}
	submits, withdrawals, _, _ := h.paper.Stats()
	if submits != 10 {
		t.Fatalf("submits = %d, want 10", submits)
	}
	if withdrawals != 2 {
		t.Fatalf("withdrawals = %d, want 2 over 10 cycles at every 5th", withdrawals)
	}
}

func TestStaleOrders(t *testing.T) {
	resting := []market.Order{
		{ExchangeOrderID: "1", Price: 20.5, Quantity: 2, Side: market.Sell},
		{ExchangeOrderID: "2", Price: 19.5, Quantity: 2, Side: market.Buy},
	}
	proposed := []market.Order{
		{Price: 20.5, Quantity: 2, Side: market.Sell}, // exact match, keep
		{Price: 19.4, Quantity: 2, Side: market.Buy},  // moved, resting 2 is stale
	}
	stale := staleOrders(resting, proposed)
	if len(stale) != 1 {
		t.Fatalf("stale = %d, want 1", len(stale))
	}
	if stale[0].OrderID != "2" {
		t.Errorf("stale order id = %q, want 2", stale[0].OrderID)
	}
}
