package strategy

import (
	"testing"

	"quoter-go/infrastructure/logger"
)

func TestNew_Stochastic(t *testing.T) {
	s, err := New(stochasticConfig(), stochasticRules(), logger.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := s.(*Stochastic); !ok {
		t.Fatalf("got %T, want *Stochastic", s)
	}
}

func TestNew_Grid(t *testing.T) {
	cfg := Config{
		Name: "grid",
		Grid: GridConfig{Spacing: 0.3, UpperLevels: 3, LowerLevels: 2, MaxOrderSize: 2},
	}
	s, err := New(cfg, gridRules(), logger.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := s.(*Grid); !ok {
		t.Fatalf("got %T, want *Grid", s)
	}
}

func TestNew_Unknown(t *testing.T) {
	if _, err := New(Config{Name: "martingale"}, gridRules(), logger.NewNop()); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	bad := stochasticConfig()
	bad.OrderSize = 0
	if _, err := New(bad, stochasticRules(), logger.NewNop()); err == nil {
		t.Fatal("expected error for zero order size")
	}

	grid := Config{Name: "grid", Grid: GridConfig{Spacing: 0, UpperLevels: 1, LowerLevels: 1, MaxOrderSize: 1}}
	if _, err := New(grid, gridRules(), logger.NewNop()); err == nil {
		t.Fatal("expected error for zero spacing")
	}
}
