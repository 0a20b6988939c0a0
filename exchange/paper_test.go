package exchange

import (
	"context"
	"testing"
	"time"

	"quoter-go/market"
)

func paperRules() market.MarketRules {
	return market.MarketRules{
		Base:              "SOL",
		Quote:             "USDC",
		MinBaseIncrement:  0.001,
		MinQuoteIncrement: 0.001,
	}
}

func TestPaper_SubmitAssignsIDs(t *testing.T) {
	p := NewPaper(paperRules(), time.Minute)
	err := p.Submit(context.Background(), Batch{Orders: []market.Order{
		{Price: 20.5, Quantity: 2, Side: market.Sell},
		{Price: 19.5, Quantity: 2, Side: market.Buy},
	}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	resting, err := p.RestingOrders(context.Background())
	if err != nil {
		t.Fatalf("resting: %v", err)
	}
	if len(resting) != 2 {
		t.Fatalf("resting = %d, want 2", len(resting))
	}
	if resting[0].ExchangeOrderID == resting[1].ExchangeOrderID {
		t.Error("exchange order ids must be unique")
	}
	for _, o := range resting {
		if !o.Resting() {
			t.Errorf("order %+v missing exchange id", o)
		}
	}
}

func TestPaper_RestingExcludesExpired(t *testing.T) {
	p := NewPaper(paperRules(), time.Minute)
	now := time.Unix(1000, 0)
	p.SetNow(func() time.Time { return now })

	if err := p.Submit(context.Background(), Batch{Orders: []market.Order{
		{Price: 20.5, Quantity: 2, Side: market.Sell},
	}}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	now = now.Add(30 * time.Second)
	if resting, _ := p.RestingOrders(context.Background()); len(resting) != 1 {
		t.Fatalf("order expired too early")
	}

	now = now.Add(31 * time.Second)
	if resting, _ := p.RestingOrders(context.Background()); len(resting) != 0 {
		t.Fatalf("order must expire after its lifetime")
	}
}

func TestPaper_CancelAll(t *testing.T) {
	p := NewPaper(paperRules(), time.Minute)
	_ = p.Submit(context.Background(), Batch{Orders: []market.Order{
		{Price: 20.5, Quantity: 2, Side: market.Sell},
	}})
	if err := p.CancelAll(context.Background()); err != nil {
		t.Fatalf("cancel all: %v", err)
	}
	if resting, _ := p.RestingOrders(context.Background()); len(resting) != 0 {
		t.Fatal("cancel all must clear resting orders")
	}
}

func TestPaper_CancelByID(t *testing.T) {
	p := NewPaper(paperRules(), time.Minute)
	_ = p.Submit(context.Background(), Batch{Orders: []market.Order{
		{Price: 20.5, Quantity: 2, Side: market.Sell},
		{Price: 19.5, Quantity: 2, Side: market.Buy},
	}})
	resting, _ := p.RestingOrders(context.Background())

	err := p.CancelByID(context.Background(), []CancelParams{
		{OrderID: resting[0].ExchangeOrderID, Side: resting[0].Side, Price: resting[0].Price},
	})
	if err != nil {
		t.Fatalf("cancel by id: %v", err)
	}
	left, _ := p.RestingOrders(context.Background())
	if len(left) != 1 {
		t.Fatalf("resting = %d, want 1", len(left))
	}
	if left[0].ExchangeOrderID == resting[0].ExchangeOrderID {
		t.Error("cancelled order still resting")
	}
}

func TestPaper_WithdrawCounted(t *testing.T) {
	p := NewPaper(paperRules(), time.Minute)
	_ = p.Submit(context.Background(), Batch{WithdrawAll: true})
	_ = p.Submit(context.Background(), Batch{})
	submits, withdrawals, _, _ := p.Stats()
	if submits != 2 || withdrawals != 1 {
		t.Fatalf("submits/withdrawals = %d/%d, want 2/1", submits, withdrawals)
	}
}
