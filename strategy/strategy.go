package strategy

import (
	"quoter-go/market"
)

// Strategy is the polymorphic pricing contract. CalculateParameters
// refreshes internal state from inventory and market data once per
// tick; GenerateOrders then produces the quote ladder from that state.
// Neither is safe for concurrent use; the controller calls them from a
// single goroutine.
type Strategy interface {
	CalculateParameters(bal market.ContractBalance, book market.OrderBook, trades []market.TimedTrade)
	GenerateOrders(last *market.Trade, book market.OrderBook) []market.Order
}

// SizingRegime selects how grid rung sizes are distributed.
type SizingRegime string

const (
	SizingTight      SizingRegime = "Tight"
	SizingWide       SizingRegime = "Wide"
	SizingNormalDist SizingRegime = "NormalDist"
	SizingFlat       SizingRegime = "Flat"
)

// GridConfig holds the grid strategy parameters.
type GridConfig struct {
	Spacing      float64      `yaml:"spacing"`
	UpperLevels  int          `yaml:"upperLevels"`
	LowerLevels  int          `yaml:"lowerLevels"`
	MaxOrderSize float64      `yaml:"maxOrderSize"`
	Sizing       SizingRegime `yaml:"sizing"`
}

// Config selects and parameterizes a strategy instance.
type Config struct {
	Name              string     `yaml:"name"`
	Levels            int        `yaml:"levels"`
	OrderSize         float64    `yaml:"orderSize"`
	MinPriceIncrement float64    `yaml:"minPriceIncrement"`
	LookbackSec       float64    `yaml:"lookbackSec"`
	Grid              GridConfig `yaml:"grid"`
}
