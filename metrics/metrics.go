// Package metrics provides Prometheus metrics for the quoting controller.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MidPrice is the primary feed's mid price at the last tick.
	MidPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_mid_price",
		Help: "Primary feed mid price observed by the controller",
	})

	// PortfolioValue is the total portfolio value in quote units.
	PortfolioValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_portfolio_value",
		Help: "Portfolio value (quote + base*mid)",
	})

	// InventorySkew is the normalized inventory imbalance in [-1, 1].
	InventorySkew = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_inventory_skew",
		Help: "Normalized inventory skew",
	})

	// Volatility is the per-tick sigma estimate of the active strategy.
	Volatility = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_volatility",
		Help: "Log-return volatility estimate",
	})

	// TicksSkipped counts gate failures by reason.
	TicksSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quoter_ticks_skipped_total",
		Help: "Ticks that slept without quoting, by reason",
	}, []string{"reason"})

	// TicksCompleted counts ticks that placed a ladder.
	TicksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_ticks_completed_total",
		Help: "Ticks that submitted orders",
	})

	// OrdersPlaced counts submitted orders by side.
	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quoter_orders_placed_total",
		Help: "Orders submitted to the venue, by side",
	}, []string{"side"})

	// OrdersCancelled counts cancel actions.
	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_orders_cancelled_total",
		Help: "Resting orders cancelled",
	})

	// CrossedOrders counts proposals dropped by the cross filter.
	CrossedOrders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_crossed_orders_total",
		Help: "Proposed orders dropped for crossing the live book",
	})

	// FeedReconnects counts watchdog-triggered reconnects by venue.
	FeedReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quoter_feed_reconnects_total",
		Help: "Feed reconnects triggered by the liveness watchdog",
	}, []string{"venue"})

	// SubmitErrors counts failed submissions to the execution boundary.
	SubmitErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_submit_errors_total",
		Help: "Failed cancel/place submissions",
	})

	// Withdrawals counts housekeeping withdraw-all instructions.
	Withdrawals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_withdrawals_total",
		Help: "Withdraw-all instructions appended to submissions",
	})
)

// UpdateStrategyMetrics records the per-tick strategy state.
func UpdateStrategyMetrics(portfolioValue, skew, sigma float64) {
	PortfolioValue.Set(portfolioValue)
	InventorySkew.Set(skew)
	Volatility.Set(sigma)
}

// StartMetricsServer exposes /metrics on addr. Empty addr disables it.
func StartMetricsServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
