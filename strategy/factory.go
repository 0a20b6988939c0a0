package strategy

import (
	"fmt"
	"strings"

	"quoter-go/infrastructure/logger"
	"quoter-go/market"
)

// New creates a strategy instance from configuration.
func New(cfg Config, rules market.MarketRules, log *logger.Logger) (Strategy, error) {
	switch strings.ToLower(cfg.Name) {
	case "stochastic", "avellaneda-stoikov", "as":
		if cfg.OrderSize <= 0 {
			return nil, fmt.Errorf("stochastic strategy: order size must be positive, got %v", cfg.OrderSize)
		}
		if cfg.MinPriceIncrement <= 0 {
			return nil, fmt.Errorf("stochastic strategy: min price increment must be positive, got %v", cfg.MinPriceIncrement)
		}
		return NewStochastic(cfg, rules, log), nil
	case "grid":
		if cfg.Grid.Spacing <= 0 {
			return nil, fmt.Errorf("grid strategy: spacing must be positive, got %v", cfg.Grid.Spacing)
		}
		if cfg.Grid.UpperLevels <= 0 || cfg.Grid.LowerLevels <= 0 {
			return nil, fmt.Errorf("grid strategy: level counts must be positive, got %d/%d", cfg.Grid.UpperLevels, cfg.Grid.LowerLevels)
		}
		if cfg.Grid.MaxOrderSize <= 0 {
			return nil, fmt.Errorf("grid strategy: max order size must be positive, got %v", cfg.Grid.MaxOrderSize)
		}
		return NewGrid(cfg.Grid, rules, log), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Name)
	}
}
