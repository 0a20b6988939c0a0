// Package wallet exposes on-chain balances held outside venue custody.
package wallet

import "context"

// HeldAsset is one token account owned by the trader.
type HeldAsset struct {
	Mint      string
	UIAmount  float64
	RawAmount uint64
	Decimals  int
}

// Provider answers balance queries for one owner address.
type Provider interface {
	// ListHeldAssets returns every token balance the owner holds.
	ListHeldAssets(ctx context.Context, owner string) ([]HeldAsset, error)

	// NativeBalance returns the owner's native-token balance in whole units.
	NativeBalance(ctx context.Context, owner string) (float64, error)
}
