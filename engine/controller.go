package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"quoter-go/exchange"
	"quoter-go/feed"
	"quoter-go/infrastructure/logger"
	"quoter-go/inventory"
	"quoter-go/market"
	"quoter-go/metrics"
	"quoter-go/strategy"
)

// Skip reasons reported by runTick. A skip is not an error; it means
// the tick slept without touching resting orders.
const (
	SkipWarmup    = "warmup"
	SkipNoBook    = "no_book"
	SkipNoTrades  = "no_trades"
	SkipInventory = "inventory"
	SkipNoOrders  = "no_orders"
	SkipVenueBook = "venue_book"
	SkipMoveGate  = "move_gate"
	SkipResting   = "resting_orders"
	SkipSubmit    = "submit"
)

// Config holds the controller's operational parameters.
type Config struct {
	TickInterval  time.Duration
	Lookback      time.Duration
	WarmUp        time.Duration
	MoveThreshold float64
	WithdrawEvery int
	// BookWeights weight the execution venue book and the primary
	// feed book when computing the move-gate mid.
	BookWeights  [2]float64
	PrimaryVenue feed.Venue
}

// safeParams are the parameters that may be adjusted at runtime.
type safeParams struct {
	tickInterval  time.Duration
	moveThreshold float64
	withdrawEvery int
}

// Controller drives the tick loop: gate, refresh, propose, filter,
// diff and place. One tick at a time; ticks never pipeline.
type Controller struct {
	log   *logger.Logger
	agg   *feed.Aggregator
	inv   *inventory.Synthesizer
	strat strategy.Strategy
	exec  exchange.Client
	cfg   Config

	now   func() time.Time
	start time.Time

	mu     sync.Mutex
	params safeParams

	prevMid float64
	cycles  int
}

// New wires a controller. The clock defaults to time.Now.
func New(cfg Config, agg *feed.Aggregator, inv *inventory.Synthesizer, strat strategy.Strategy, exec exchange.Client, log *logger.Logger) *Controller {
	if cfg.WithdrawEvery <= 0 {
		cfg.WithdrawEvery = 5
	}
	return &Controller{
		log:   log.Named("controller"),
		agg:   agg,
		inv:   inv,
		strat: strat,
		exec:  exec,
		cfg:   cfg,
		now:   time.Now,
		params: safeParams{
			tickInterval:  cfg.TickInterval,
			moveThreshold: cfg.MoveThreshold,
			withdrawEvery: cfg.WithdrawEvery,
		},
	}
}

// SetClock replaces the controller clock, for tests.
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// UpdateSafeParams applies a runtime adjustment of the tunable
// parameters. Zero values leave the current setting untouched.
func (c *Controller) UpdateSafeParams(tickInterval time.Duration, moveThreshold float64, withdrawEvery int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tickInterval > 0 {
		c.params.tickInterval = tickInterval
	}
	if moveThreshold > 0 {
		c.params.moveThreshold = moveThreshold
	}
	if withdrawEvery > 0 {
		c.params.withdrawEvery = withdrawEvery
	}
	c.log.Info("runtime parameters updated",
		zap.Duration("tick_interval", c.params.tickInterval),
		zap.Float64("move_threshold", c.params.moveThreshold),
		zap.Int("withdraw_every", c.params.withdrawEvery))
}

func (c *Controller) currentParams() safeParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Run executes the tick loop until the context is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.start = c.now()
	c.log.Info("controller started",
		zap.Duration("tick_interval", c.cfg.TickInterval),
		zap.Duration("lookback", c.cfg.Lookback),
		zap.Duration("warmup", c.cfg.WarmUp),
		zap.String("primary_venue", string(c.cfg.PrimaryVenue)))

	for {
		skip, err := c.runTick(ctx, c.now())
		if err != nil {
			c.log.Error("tick failed", zap.String("stage", skip), zap.Error(err))
		} else if skip != "" {
			c.log.Debug("tick skipped", zap.String("reason", skip))
		}

		timer := time.NewTimer(c.currentParams().tickInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// runTick executes one pass of the tick state machine. It returns the
// skip reason when the tick slept early, plus any absorbed error.
func (c *Controller) runTick(ctx context.Context, now time.Time) (string, error) {
	c.agg.ReconnectCheck(ctx)
	params := c.currentParams()

	if now.Before(c.start.Add(c.cfg.WarmUp)) {
		metrics.TicksSkipped.WithLabelValues(SkipWarmup).Inc()
		return SkipWarmup, nil
	}
	if !c.agg.HasData(c.cfg.PrimaryVenue) {
		metrics.TicksSkipped.WithLabelValues(SkipNoBook).Inc()
		return SkipNoBook, nil
	}
	trades := c.agg.Trades(c.cfg.PrimaryVenue, now.Add(-c.cfg.Lookback))
	if len(trades) == 0 {
		c.log.Info("no recent trades inside lookback window")
		metrics.TicksSkipped.WithLabelValues(SkipNoTrades).Inc()
		return SkipNoTrades, nil
	}

	if err := c.inv.Refresh(ctx); err != nil {
		metrics.TicksSkipped.WithLabelValues(SkipInventory).Inc()
		return SkipInventory, err
	}

	book := c.agg.OrderBook(c.cfg.PrimaryVenue)
	metrics.MidPrice.Set(book.Mid())
	c.strat.CalculateParameters(c.inv.ForMarket(), book, trades)

	last := trades[len(trades)-1].Trade
	proposed := c.strat.GenerateOrders(&last, book)
	if len(proposed) == 0 {
		c.log.Info("no orders to place")
		metrics.TicksSkipped.WithLabelValues(SkipNoOrders).Inc()
		return SkipNoOrders, nil
	}

	resting, err := c.exec.RestingOrders(ctx)
	if err != nil {
		metrics.TicksSkipped.WithLabelValues(SkipResting).Inc()
		return SkipResting, err
	}

	venueBook, err := c.exec.BookSnapshot(ctx)
	if err != nil || !venueBook.HasBothSides() {
		metrics.TicksSkipped.WithLabelValues(SkipVenueBook).Inc()
		return SkipVenueBook, err
	}
	bestBid := venueBook.BestBid()
	bestAsk := venueBook.BestAsk()
	c.log.Info("venue top of book",
		zap.Float64("best_bid", bestBid),
		zap.Float64("best_ask", bestAsk))

	filtered := c.crossFilter(proposed, bestBid, bestAsk)

	if !c.moveGate(weightedMid(bestBid, bestAsk, book, c.cfg.BookWeights), len(resting) > 0, params.moveThreshold) {
		metrics.TicksSkipped.WithLabelValues(SkipMoveGate).Inc()
		return SkipMoveGate, nil
	}

	if len(resting) > 0 {
		if len(filtered) == len(proposed) {
			if err := c.exec.CancelAll(ctx); err != nil {
				c.log.Warn("cancel all failed", zap.Error(err))
			}
			metrics.OrdersCancelled.Add(float64(len(resting)))
		} else {
			stale := staleOrders(resting, filtered)
			if len(stale) > 0 {
				if err := c.exec.CancelByID(ctx, stale); err != nil {
					c.log.Warn("cancel by id failed", zap.Error(err))
				}
				metrics.OrdersCancelled.Add(float64(len(stale)))
			}
		}
	}

	c.cycles++
	batch := exchange.Batch{Orders: filtered}
	if params.withdrawEvery > 0 && c.cycles%params.withdrawEvery == 0 {
		c.log.Debug("appending withdrawal to submission batch", zap.Int("cycle", c.cycles))
		batch.WithdrawAll = true
	}
	if err := c.exec.Submit(ctx, batch); err != nil {
		metrics.SubmitErrors.Inc()
		metrics.TicksSkipped.WithLabelValues(SkipSubmit).Inc()
		return SkipSubmit, err
	}
	for _, o := range filtered {
		metrics.OrdersPlaced.WithLabelValues(string(o.Side)).Inc()
	}
	if batch.WithdrawAll {
		metrics.Withdrawals.Inc()
	}
	metrics.TicksCompleted.Inc()
	return "", nil
}

// crossFilter drops proposals that would cross the live book. A
// crossed proposal reflects a transient book move, not a fault.
func (c *Controller) crossFilter(proposed []market.Order, bestBid, bestAsk float64) []market.Order {
	kept := make([]market.Order, 0, len(proposed))
	for _, o := range proposed {
		if o.Side == market.Buy && bestAsk > 0 && o.Price >= bestAsk {
			c.log.Warn("buy would cross asks",
				zap.Float64("price", o.Price),
				zap.Float64("best_ask", bestAsk))
			metrics.CrossedOrders.Inc()
			continue
		}
		if o.Side == market.Sell && bestBid > 0 && o.Price <= bestBid {
			c.log.Warn("sell would cross bids",
				zap.Float64("price", o.Price),
				zap.Float64("best_bid", bestBid))
			metrics.CrossedOrders.Inc()
			continue
		}
		kept = append(kept, o)
	}
	return kept
}

// weightedMid blends the execution venue book with the primary feed
// book. Rounded to three decimals so jitter below the publish
// precision never registers as a move.
func weightedMid(venueBid, venueAsk float64, feedBook market.OrderBook, weights [2]float64) float64 {
	feedBid := feedBook.BestBid()
	feedAsk := feedBook.BestAsk()
	mid := ((venueBid + venueAsk*weights[0]) + (feedBid + feedAsk*weights[1])) / 4
	return math.Round(mid*1000) / 1000
}

// moveGate tracks the weighted mid across ticks and reports whether
// resting orders may be replaced. Without resting orders it only
// records the reference and always passes; with resting orders it
// requires the mid to have moved beyond the threshold.
func (c *Controller) moveGate(mid float64, hasResting bool, threshold float64) bool {
	prev := c.prevMid
	c.prevMid = mid
	if !hasResting {
		return true
	}
	if prev == 0 {
		return false
	}
	pctChange := math.Abs((prev - mid) / prev)
	if pctChange <= threshold {
		c.log.Info("mid move below threshold, keeping resting orders",
			zap.Float64("mid", mid),
			zap.Float64("prev_mid", prev),
			zap.Float64("pct_change", pctChange),
			zap.Float64("threshold", threshold))
		return false
	}
	return true
}

// staleOrders collects cancel parameters for resting orders that have
// no exact price, quantity and side match among the survivors.
func staleOrders(resting, proposed []market.Order) []exchange.CancelParams {
	var stale []exchange.CancelParams
	for _, r := range resting {
		matched := false
		for _, p := range proposed {
			if r.Side == p.Side && r.Price == p.Price && r.Quantity == p.Quantity {
				matched = true
				break
			}
		}
		if !matched && r.ExchangeOrderID != "" {
			stale = append(stale, exchange.CancelParams{
				OrderID: r.ExchangeOrderID,
				Side:    r.Side,
				Price:   r.Price,
			})
		}
	}
	return stale
}
