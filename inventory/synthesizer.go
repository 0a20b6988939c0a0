package inventory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"quoter-go/exchange"
	"quoter-go/infrastructure/logger"
	"quoter-go/market"
	"quoter-go/wallet"
)

// NativeSymbol is the ledger key for the chain's native asset.
const NativeSymbol = "SOL"

// Synthesizer merges wallet holdings with venue balances into a single
// per-asset view. Refresh rebuilds both ledgers from scratch so stale
// entries never survive a balance change.
type Synthesizer struct {
	exec   exchange.Client
	wallet wallet.Provider
	owner  string
	mints  map[string]string
	log    *logger.Logger

	mu           sync.RWMutex
	walletLedger map[string]market.Balance
	totalLedger  map[string]market.Balance
	rules        market.MarketRules
}

// NewSynthesizer wires an execution client and a wallet provider.
// mints may be nil, in which case DefaultMintSymbols is used.
func NewSynthesizer(exec exchange.Client, w wallet.Provider, owner string, mints map[string]string, log *logger.Logger) *Synthesizer {
	if mints == nil {
		mints = DefaultMintSymbols
	}
	return &Synthesizer{
		exec:         exec,
		wallet:       w,
		owner:        owner,
		mints:        mints,
		log:          log.Named("inventory"),
		walletLedger: make(map[string]market.Balance),
		totalLedger:  make(map[string]market.Balance),
	}
}

// Refresh rebuilds the wallet and total ledgers from live sources.
func (s *Synthesizer) Refresh(ctx context.Context) error {
	native, err := s.wallet.NativeBalance(ctx, s.owner)
	if err != nil {
		return fmt.Errorf("native balance: %w", err)
	}
	held, err := s.wallet.ListHeldAssets(ctx, s.owner)
	if err != nil {
		return fmt.Errorf("held assets: %w", err)
	}
	contract, err := s.exec.ContractBalance(ctx)
	if err != nil {
		return fmt.Errorf("contract balance: %w", err)
	}
	rules, err := s.exec.MarketRules(ctx)
	if err != nil {
		return fmt.Errorf("market rules: %w", err)
	}

	walletLedger := make(map[string]market.Balance, len(held)+1)
	walletLedger[NativeSymbol] = market.Balance{
		Asset:  NativeSymbol,
		Amount: native,
		Free:   native,
	}
	for _, asset := range held {
		symbol, ok := s.mints[asset.Mint]
		if !ok {
			s.log.Warn("dropping unmapped mint",
				zap.String("mint", asset.Mint),
				zap.Float64("amount", asset.UIAmount))
			continue
		}
		if asset.Mint == WrappedNativeMint {
			s.log.Debug("wrapped native held alongside native balance",
				zap.Float64("wrapped", asset.UIAmount),
				zap.Float64("native", native))
		}
		prev := walletLedger[symbol]
		walletLedger[symbol] = market.Balance{
			Asset:  symbol,
			Amount: prev.Amount + asset.UIAmount,
			Free:   prev.Free + asset.UIAmount,
		}
	}

	totalLedger := make(map[string]market.Balance, len(walletLedger)+2)
	for symbol, bal := range walletLedger {
		totalLedger[symbol] = bal
	}
	for _, venueBal := range []market.Balance{contract.Base, contract.Quote} {
		if venueBal.Asset == "" {
			continue
		}
		prev := totalLedger[venueBal.Asset]
		totalLedger[venueBal.Asset] = market.Balance{
			Asset:  venueBal.Asset,
			Amount: prev.Amount + venueBal.Free + venueBal.Locked,
			Free:   prev.Free + venueBal.Free,
			Locked: prev.Locked + venueBal.Locked,
		}
	}

	s.mu.Lock()
	s.walletLedger = walletLedger
	s.totalLedger = totalLedger
	s.rules = rules
	s.mu.Unlock()
	return nil
}

// Balance returns the combined balance for an asset. Unknown assets
// return a zero-valued balance carrying the requested symbol.
func (s *Synthesizer) Balance(asset string) market.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bal, ok := s.totalLedger[asset]; ok {
		return bal
	}
	return market.Balance{Asset: asset}
}

// WalletBalance returns the wallet-only balance for an asset.
func (s *Synthesizer) WalletBalance(asset string) market.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bal, ok := s.walletLedger[asset]; ok {
		return bal
	}
	return market.Balance{Asset: asset}
}

// All returns a copy of the combined ledger.
func (s *Synthesizer) All() map[string]market.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]market.Balance, len(s.totalLedger))
	for k, v := range s.totalLedger {
		out[k] = v
	}
	return out
}

// ForMarket projects the combined ledger onto the traded pair.
func (s *Synthesizer) ForMarket() market.ContractBalance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	base := s.totalLedger[s.rules.Base]
	quote := s.totalLedger[s.rules.Quote]
	base.Asset = s.rules.Base
	quote.Asset = s.rules.Quote
	return market.ContractBalance{
		Base:        base,
		Quote:       quote,
		TradingPair: s.rules.Base + "/" + s.rules.Quote,
		Market:      s.rules.MarketAddress,
	}
}
