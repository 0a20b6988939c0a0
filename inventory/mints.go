package inventory

// WrappedNativeMint is the wrapped form of the native asset. It shows up
// as a token account alongside the native balance and is tracked as its
// own entry, not merged into the native total.
const WrappedNativeMint = "So11111111111111111111111111111111111111112"

// DefaultMintSymbols maps well-known mint addresses to asset symbols.
// Token accounts whose mint is not listed here are ignored.
var DefaultMintSymbols = map[string]string{
	WrappedNativeMint: "WSOL",
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
}
