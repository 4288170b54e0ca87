package upstream

import (
	"github.com/fractal-terminal/terminalx/pkg/asset"
	"github.com/shopspring/decimal"
)

// Custody tells the reconciler which bucket an amount was reported from.
type Custody int

const (
	// CustodyUnknown is a figure whose bucket the upstream schema does not document.
	CustodyUnknown Custody = iota
	CustodyWallet
	CustodyAMM
)

// ChainStats is the chain indexer's address summary.
type ChainStats struct {
	TxCount int64
	// ConfirmedTxCount leaves out mempool transactions, which other indexers' histories may not list.
	ConfirmedTxCount int64
	FundedSats       int64
	SpentSats        int64
	BalanceSats      int64
}

// IndexerBalance is the indexer's native balance view of an address.
type IndexerBalance struct {
	Satoshi              int64
	PendingSatoshi       int64
	UTXOCount            int64
	InscriptionUTXOCount int64
}

// HistoryEntry is one transaction from the paginated history.
type HistoryEntry struct {
	TxID      string
	Height    int64
	Timestamp int64
}

// HistoryPage is one page of address history plus the indexer's total count.
type HistoryPage struct {
	Total   int64
	Entries []HistoryEntry
}

// TokenBalance is one fungible token amount with a canonical ticker.
type TokenBalance struct {
	Ticker    string
	RawTicker string
	Amount    decimal.Decimal
	Hint      asset.ScaleHint
	Custody   Custody
	// PriceUSD is the source's own estimate, zero when it gave none.
	PriceUSD decimal.Decimal
}

// PoolReserves are the reserves of one AMM pool.
type PoolReserves struct {
	Tick0    string
	Tick1    string
	Reserve0 decimal.Decimal
	Reserve1 decimal.Decimal
	Exists   bool
}

// Oriented returns the reserves as (token side, quote side). ok is false when the pool does not
// pair exactly these two tickers.
func (p PoolReserves) Oriented(token, quote string) (rToken, rQuote decimal.Decimal, ok bool) {
	token, quote = asset.NormalizeTicker(token), asset.NormalizeTicker(quote)
	switch {
	case p.Tick0 == token && p.Tick1 == quote:
		return p.Reserve0, p.Reserve1, true
	case p.Tick1 == token && p.Tick0 == quote:
		return p.Reserve1, p.Reserve0, true
	}
	return decimal.Zero, decimal.Zero, false
}

// LPPosition is liquidity supplied by an address to one pool.
type LPPosition struct {
	Tick0   string
	Tick1   string
	Amount0 decimal.Decimal
	Amount1 decimal.Decimal
	LP      decimal.Decimal
	Share   decimal.Decimal
}

// Oracle identifies a spot-price source.
type Oracle string

const (
	OracleExchange   Oracle = "exchange"
	OracleFeeAPI     Oracle = "feeapi"
	OracleAggregator Oracle = "aggregator"
)
