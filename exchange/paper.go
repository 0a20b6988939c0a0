package exchange

import (
	"context"
	"strconv"
	"sync"
	"time"

	"quoter-go/market"
)

// Paper is an in-memory venue used for dry runs and tests. Orders rest until
// cancelled or expired; balances and the book are set by the harness.
type Paper struct {
	mu       sync.Mutex
	rules    market.MarketRules
	balance  market.ContractBalance
	book     market.OrderBook
	resting  []market.Order
	seq      int64
	lifetime time.Duration

	// counters observable by tests
	submits     int
	withdrawals int
	cancelAlls  int
	cancelByID  int

	now func() time.Time
}

// NewPaper creates a paper venue with the given market rules.
func NewPaper(rules market.MarketRules, lifetime time.Duration) *Paper {
	if lifetime <= 0 {
		lifetime = 360 * time.Second
	}
	return &Paper{
		rules:    rules,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (p *Paper) SetNow(now func() time.Time) {
	p.mu.Lock()
	p.now = now
	p.mu.Unlock()
}

// SetContractBalance seeds the venue-custodied balance.
func (p *Paper) SetContractBalance(b market.ContractBalance) {
	p.mu.Lock()
	p.balance = b
	p.mu.Unlock()
}

// SetBook seeds the venue order book.
func (p *Paper) SetBook(b market.OrderBook) {
	p.mu.Lock()
	p.book = b
	p.mu.Unlock()
}

func (p *Paper) ContractBalance(ctx context.Context) (market.ContractBalance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

func (p *Paper) MarketRules(ctx context.Context) (market.MarketRules, error) {
	return p.rules, nil
}

// RestingOrders returns live orders, dropping any whose expiry has passed.
func (p *Paper) RestingOrders(ctx context.Context) ([]market.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	out := make([]market.Order, 0, len(p.resting))
	for _, o := range p.resting {
		if o.Expired(now) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (p *Paper) BookSnapshot(ctx context.Context) (market.OrderBook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.book.Clone(), nil
}

func (p *Paper) Submit(ctx context.Context, b Batch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submits++
	if b.WithdrawAll {
		p.withdrawals++
	}
	now := p.now()
	for _, o := range b.Orders {
		p.seq++
		o.ExchangeOrderID = strconv.FormatInt(p.seq, 10)
		if o.ExpireAt.IsZero() {
			o.ExpireAt = now.Add(p.lifetime)
		}
		p.resting = append(p.resting, o)
	}
	return nil
}

func (p *Paper) CancelAll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelAlls++
	p.resting = nil
	return nil
}

func (p *Paper) CancelByID(ctx context.Context, cancels []CancelParams) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelByID++
	drop := make(map[string]bool, len(cancels))
	for _, c := range cancels {
		drop[c.OrderID] = true
	}
	kept := p.resting[:0]
	for _, o := range p.resting {
		if !drop[o.ExchangeOrderID] {
			kept = append(kept, o)
		}
	}
	p.resting = kept
	return nil
}

// Stats reports submission counters for assertions.
func (p *Paper) Stats() (submits, withdrawals, cancelAlls, cancelByID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submits, p.withdrawals, p.cancelAlls, p.cancelByID
}
