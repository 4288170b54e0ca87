package audit

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BalanceSource records which custody buckets contributed to a balance.
type BalanceSource string

const (
	SourceWallet BalanceSource = "wallet"
	SourceAMM    BalanceSource = "amm"
	SourceBoth   BalanceSource = "both"
)

// PriceSource records where the base-asset USD price came from.
type PriceSource string

const (
	PriceFromExchange   PriceSource = "exchange"
	PriceFromFeeAPI     PriceSource = "feeapi"
	PriceFromAggregator PriceSource = "aggregator"
	PriceFromPool       PriceSource = "pool"
	PriceFromFallback   PriceSource = "fallback"
)

// TokenBalance is one reconciled, priced holding.
type TokenBalance struct {
	Balance       decimal.Decimal `json:"balance"`
	WalletBalance decimal.Decimal `json:"walletBalance"`
	AMMBalance    decimal.Decimal `json:"ammBalance"`
	PriceUSD      decimal.Decimal `json:"priceUsd"`
	ValueUSD      decimal.Decimal `json:"valueUsd"`
	Source        BalanceSource   `json:"source"`
}

// LPPositions aggregates liquidity supplied to AMM pools. It is valued apart from tokenBalances.
type LPPositions struct {
	ValueUSD          decimal.Decimal `json:"valueUsd"`
	BaseAssetAmount   decimal.Decimal `json:"baseAssetAmount"`
	PairedAssetAmount decimal.Decimal `json:"pairedAssetAmount"`
	Pools             int             `json:"pools"`
}

type NFTCounts struct {
	OrdinalsCount int64 `json:"ordinalsCount"`
	RunesCount    int64 `json:"runesCount"`
	UTXOCount     int64 `json:"utxoCount"`
}

type Prices struct {
	BaseAssetUSD     decimal.Decimal            `json:"baseAssetUsd"`
	Source           PriceSource                `json:"source"`
	IsFallback       bool                       `json:"isFallback"`
	TokenInBaseAsset map[string]decimal.Decimal `json:"tokenInBaseAsset"`
}

// WalletSnapshot is the aggregated view of one wallet. It is built once per request and
// never mutated after Audit returns it.
type WalletSnapshot struct {
	Address          string                  `json:"address"`
	TxCount          int64                   `json:"txCount"`
	FirstTxTimestamp int64                   `json:"firstTxTimestamp"`
	NativeBalance    decimal.Decimal         `json:"nativeBalance"`
	TokenBalances    map[string]TokenBalance `json:"tokenBalances"`
	LPPositions      LPPositions             `json:"lpPositions"`
	NFTCounts        NFTCounts               `json:"nftCounts"`
	Prices           Prices                  `json:"prices"`
	NetWorthUSD      decimal.Decimal         `json:"netWorthUsd"`
	GeneratedAt      int64                   `json:"generatedAt"`
	// Degraded lists the sources that returned no data, so zeros from failure can be told
	// apart from real zeros.
	Degraded []string `json:"degraded"`
}

// NewSnapshot returns an empty, structurally valid snapshot.
func NewSnapshot(address string) *WalletSnapshot {
	return &WalletSnapshot{
		Address:       address,
		TokenBalances: map[string]TokenBalance{},
		Prices:        Prices{TokenInBaseAsset: map[string]decimal.Decimal{}},
		Degraded:      []string{},
	}
}

// RecomputeNetWorth sums token values and the LP bucket. It does not modify the snapshot.
func (s *WalletSnapshot) RecomputeNetWorth() decimal.Decimal {
	total := decimal.Zero
	for _, tb := range s.TokenBalances {
		total = total.Add(tb.ValueUSD)
	}
	return total.Add(s.LPPositions.ValueUSD)
}

// Tickers returns the tokenBalances keys in order.
func (s *WalletSnapshot) Tickers() []string {
	out := make([]string, 0, len(s.TokenBalances))
	for t := range s.TokenBalances {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
