package strategy

import (
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"quoter-go/infrastructure/logger"
	"quoter-go/market"
	"quoter-go/metrics"
)

// maxBoxMullerResamples bounds the rejection loop so a pathological
// random source cannot stall a tick.
const maxBoxMullerResamples = 8

// Grid quotes fixed-spacing rungs around the current mid price. Price
// and size arrays are computed independently and zipped positionally.
type Grid struct {
	log   *logger.Logger
	rules market.MarketRules
	cfg   GridConfig

	rand *rand.Rand

	currentPrice float64
	portfolioMax float64
}

// NewGrid builds the strategy with the default random source.
func NewGrid(cfg GridConfig, rules market.MarketRules, log *logger.Logger) *Grid {
	return &Grid{
		log:   log.Named("grid"),
		rules: rules,
		cfg:   cfg,
		rand:  rand.New(rand.NewSource(rand.Int63())),
	}
}

// SetRand replaces the random source, for deterministic tests.
func (g *Grid) SetRand(r *rand.Rand) { g.rand = r }

// CalculateParameters tracks the current mid and logs the portfolio.
func (g *Grid) CalculateParameters(bal market.ContractBalance, book market.OrderBook, _ []market.TimedTrade) {
	mid := book.Mid()
	g.currentPrice = mid

	base := bal.Base.Amount
	quote := bal.Quote.Amount
	g.portfolioMax = quote + base*mid
	g.log.Info("portfolio",
		zap.Float64("total_value", math.Round(g.portfolioMax*100)/100),
		zap.String("base_asset", g.rules.Base),
		zap.Float64("base_amount", math.Round(base*100)/100),
		zap.Float64("base_value", math.Round(base*mid*100)/100),
		zap.String("quote_asset", g.rules.Quote),
		zap.Float64("quote_value", math.Round(quote*100)/100))
	metrics.UpdateStrategyMetrics(g.portfolioMax, 0, 0)
}

// boxMuller draws a normal variate, translates it into [0, 1) and
// stretches it to [min, max]. Out-of-range draws are resampled a
// bounded number of times, falling back to the interval midpoint.
func (g *Grid) boxMuller(min, max float64) float64 {
	for attempt := 0; attempt < maxBoxMullerResamples; attempt++ {
		var u, v float64
		for u == 0 {
			u = g.rand.Float64()
		}
		for v == 0 {
			v = g.rand.Float64()
		}
		num := math.Sqrt(-2*math.Log(u)) * math.Cos(2*math.Pi*v)
		num = num/10 + 0.5
		if num >= 0 && num <= 1 {
			return num*(max-min) + min
		}
	}
	return 0.5*(max-min) + min
}

// pyramid reorders sizes so the largest lands mid-array and the rest
// alternate toward the two ends.
func pyramid(arr []float64) []float64 {
	sort.Float64s(arr)
	out := make([]float64, 0, len(arr))
	out = append(out, arr[len(arr)-1])
	arr = arr[:len(arr)-1]
	for len(arr) > 0 {
		next := arr[len(arr)-1]
		arr = arr[:len(arr)-1]
		if len(arr)%2 == 0 {
			out = append(out, next)
		} else {
			out = append([]float64{next}, out...)
		}
	}
	return out
}

func (g *Grid) rungSizes(n int) []float64 {
	sizes := make([]float64, n)
	switch g.cfg.Sizing {
	case SizingNormalDist:
		for i := range sizes {
			sizes[i] = g.boxMuller(g.rules.MinQuoteIncrement*float64(i+1), g.cfg.MaxOrderSize)
		}
		sizes = pyramid(sizes)
	case SizingTight:
		for i := range sizes {
			sizes[i] = g.cfg.MaxOrderSize - g.rules.MinQuoteIncrement*float64(i+1)*g.cfg.Spacing
		}
	case SizingWide:
		for i := range sizes {
			sizes[n-1-i] = g.cfg.MaxOrderSize - g.rules.MinQuoteIncrement*float64(i+1)*g.cfg.Spacing
		}
	default:
		for i := range sizes {
			sizes[i] = g.cfg.MaxOrderSize
		}
	}
	return sizes
}

// GenerateOrders places ask rungs above mid and bid rungs below it.
func (g *Grid) GenerateOrders(_ *market.Trade, _ market.OrderBook) []market.Order {
	if g.currentPrice <= 0 {
		return nil
	}

	places := market.CountDecimals(g.rules.MinBaseIncrement)
	askSizes := g.rungSizes(g.cfg.UpperLevels)
	bidSizes := g.rungSizes(g.cfg.LowerLevels)

	orders := make([]market.Order, 0, g.cfg.UpperLevels+g.cfg.LowerLevels)
	for i := 0; i < g.cfg.UpperLevels; i++ {
		orders = append(orders, market.Order{
			Price:    market.RoundTo(g.currentPrice+float64(i+1)*g.cfg.Spacing, places),
			Quantity: market.RoundTo(askSizes[i], places),
			Side:     market.Sell,
		})
	}
	for i := 0; i < g.cfg.LowerLevels; i++ {
		orders = append(orders, market.Order{
			Price:    market.RoundTo(g.currentPrice-float64(i+1)*g.cfg.Spacing, places),
			Quantity: market.RoundTo(bidSizes[i], places),
			Side:     market.Buy,
		})
	}
	return orders
}
