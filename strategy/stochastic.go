package strategy

import (
	"math"

	"go.uber.org/zap"

	"quoter-go/infrastructure/logger"
	"quoter-go/market"
	"quoter-go/metrics"
)

const (
	alphaFloor = 1e-6
	alphaCeil  = 10
)

// Stochastic is an Avellaneda-Stoikov style inventory strategy. It
// estimates drift, volatility and order-arrival intensity from the
// trade window each tick, derives an inventory skew from the combined
// balance, and quotes a ladder whose bid/ask offsets widen with the
// rung index.
type Stochastic struct {
	log   *logger.Logger
	rules market.MarketRules

	levels            int
	orderSize         float64
	minPriceIncrement float64
	tickSize          float64

	alpha          float64
	eta            float64
	gamma          float64
	sigma          float64
	skew           float64
	lastTradePrice float64
	portfolioMax   float64
	portfolioMin   float64
}

// NewStochastic builds the strategy. cfg.LookbackSec doubles as the
// normalization constant for the rate estimates.
func NewStochastic(cfg Config, rules market.MarketRules, log *logger.Logger) *Stochastic {
	levels := cfg.Levels
	if levels < 1 {
		levels = 1
	}
	tickSize := cfg.LookbackSec
	if tickSize <= 0 {
		tickSize = 1
	}
	return &Stochastic{
		log:               log.Named("stochastic"),
		rules:             rules,
		levels:            levels,
		orderSize:         cfg.OrderSize,
		minPriceIncrement: cfg.MinPriceIncrement,
		tickSize:          tickSize,
	}
}

// CalculateParameters updates drift, volatility, arrival-rate and skew
// estimates from this tick's window.
func (s *Stochastic) CalculateParameters(bal market.ContractBalance, book market.OrderBook, trades []market.TimedTrade) {
	var deltaSum, deltaSquareSum float64
	for _, tt := range trades {
		delta := tt.Quantity
		if s.skew != 0 {
			delta = s.gamma * (tt.Price - s.lastTradePrice) / s.tickSize
		}
		deltaSum += delta
		deltaSquareSum += delta * delta
		s.lastTradePrice = tt.Price
	}

	s.refreshInventory(bal, book)
	s.sigma = volatility(trades)

	n := float64(len(trades))
	if n > 0 && deltaSquareSum > 0 {
		s.alpha = deltaSum / (n * deltaSquareSum)
		if s.alpha < alphaFloor {
			s.alpha = alphaFloor
		}
		if s.alpha > alphaCeil {
			s.alpha = alphaCeil
		}
	}
	s.eta = float64(len(book.Bids)+len(book.Asks)) / s.tickSize
	s.gamma = n / s.tickSize

	s.log.Debug("parameters",
		zap.Float64("alpha", s.alpha),
		zap.Float64("gamma", s.gamma),
		zap.Float64("eta", s.eta),
		zap.Float64("sigma", s.sigma))
	metrics.UpdateStrategyMetrics(s.portfolioMax, s.skew, s.sigma)
}

// refreshInventory recomputes the portfolio bounds and the skew term.
// Net exposure quote - base*mid is mapped into [-1, 1] and negated so
// a quote-heavy book skews negative, tightening the ask side.
func (s *Stochastic) refreshInventory(bal market.ContractBalance, book market.OrderBook) {
	mid := book.Mid()
	base := bal.Base.Amount
	quote := bal.Quote.Amount

	s.portfolioMax = quote + base*mid
	s.portfolioMin = -s.portfolioMax
	s.log.Info("portfolio",
		zap.Float64("total_value", math.Round(s.portfolioMax*100)/100),
		zap.String("base_asset", s.rules.Base),
		zap.Float64("base_amount", math.Round(base*100)/100),
		zap.Float64("base_value", math.Round(base*mid*100)/100),
		zap.String("quote_asset", s.rules.Quote),
		zap.Float64("quote_value", math.Round(quote*100)/100))

	dollarRatio := quote - base*mid
	s.skew = -s.normalize(dollarRatio)
	s.log.Info("inventory skew", zap.Float64("skew", s.skew))
}

// normalize maps value from [portfolioMin, portfolioMax] into [-1, 1].
func (s *Stochastic) normalize(value float64) float64 {
	span := s.portfolioMax - s.portfolioMin
	if span == 0 {
		return 0
	}
	value = math.Min(math.Max(value, s.portfolioMin), s.portfolioMax)
	return 2*(value-s.portfolioMin)/span - 1
}

func volatility(trades []market.TimedTrade) float64 {
	if len(trades) < 2 {
		return 0
	}
	logReturns := make([]float64, 0, len(trades)-1)
	for i := 1; i < len(trades); i++ {
		logReturns = append(logReturns, math.Log(trades[i].Price/trades[i-1].Price))
	}
	var mean float64
	for _, r := range logReturns {
		mean += r
	}
	mean /= float64(len(logReturns))
	var variance float64
	for _, r := range logReturns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(logReturns))
	return math.Sqrt(variance)
}

// GenerateOrders produces the quote ladder around the current mid.
// Returns an empty ladder when no trade anchors the pricing.
func (s *Stochastic) GenerateOrders(last *market.Trade, book market.OrderBook) []market.Order {
	if last == nil {
		return nil
	}

	mid := book.Mid()
	mu := -(s.alpha / 2) * s.sigma * s.sigma
	k := s.alpha * s.sigma * s.sigma / 2

	bid := mid * (1 - mu/s.gamma + (math.Exp(k-s.skew)-1)/(s.alpha*s.eta))
	ask := mid * (1 - mu/s.gamma + (math.Exp(k+s.skew+1)-1)/(s.alpha*s.eta))

	askPrice := math.Max(mid+s.minPriceIncrement, ask)
	bidPrice := math.Min(mid-s.minPriceIncrement, bid)

	s.log.Debug("ladder anchors",
		zap.Float64("mid", mid),
		zap.Float64("ask", askPrice),
		zap.Float64("bid", bidPrice))

	places := market.CountDecimals(s.rules.MinBaseIncrement)
	qty := market.RoundTo(s.orderSize, places)

	orders := make([]market.Order, 0, 2*s.levels)
	for i := 1; i <= s.levels; i++ {
		if i > 1 {
			askOffset := math.Max(askPrice-mid, s.minPriceIncrement)
			bidOffset := math.Max(mid-bidPrice, s.minPriceIncrement)
			askPrice = mid + askOffset*float64(i)
			bidPrice = mid - bidOffset*float64(i)
		}

		levelAsk := askPrice
		if math.IsNaN(levelAsk) || math.IsInf(levelAsk, 0) || levelAsk <= mid {
			levelAsk = 2 * mid
		}
		orders = append(orders, market.Order{
			Price:    market.RoundTo(levelAsk, places),
			Quantity: qty,
			Side:     market.Sell,
		})

		levelBid := bidPrice
		if math.IsNaN(levelBid) || math.IsInf(levelBid, 0) || levelBid >= mid {
			levelBid = mid - s.minPriceIncrement
		}
		if levelBid <= 0 {
			levelBid = s.minPriceIncrement
		}
		orders = append(orders, market.Order{
			Price:    market.RoundTo(levelBid, places),
			Quantity: qty,
			Side:     market.Buy,
		})
	}
	return orders
}
