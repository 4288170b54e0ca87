package analytics

import (
	"time"

	"github.com/fractal-terminal/terminalx/pkg/audit"
	"github.com/shopspring/decimal"
)

// Row is the flattened record persisted for one audit. It is derived from the snapshot and
// shares no memory with it.
type Row struct {
	Address          string
	RecordedAt       time.Time
	NetWorthUSD      decimal.Decimal
	NativeBalance    decimal.Decimal
	LPValueUSD       decimal.Decimal
	BaseAssetUSD     decimal.Decimal
	PriceSource      string
	PriceFallback    bool
	TxCount          int64
	FirstTxTimestamp int64
	TokenCount       int
	OrdinalsCount    int64
	RunesCount       int64
	Degraded         []string
	ClientIP         string
	Referrer         string
	UserAgent        string
}

// Complete reports whether every upstream source answered for this audit.
func (r Row) Complete() bool {
	return len(r.Degraded) == 0
}

// RowFromSnapshot flattens a snapshot and its request metadata.
func RowFromSnapshot(s *audit.WalletSnapshot, req audit.AuditRequest, now time.Time) Row {
	degraded := make([]string, len(s.Degraded))
	copy(degraded, s.Degraded)

	return Row{
		Address:          s.Address,
		RecordedAt:       now.UTC(),
		NetWorthUSD:      s.NetWorthUSD,
		NativeBalance:    s.NativeBalance,
		LPValueUSD:       s.LPPositions.ValueUSD,
		BaseAssetUSD:     s.Prices.BaseAssetUSD,
		PriceSource:      string(s.Prices.Source),
		PriceFallback:    s.Prices.IsFallback,
		TxCount:          s.TxCount,
		FirstTxTimestamp: s.FirstTxTimestamp,
		TokenCount:       len(s.TokenBalances),
		OrdinalsCount:    s.NFTCounts.OrdinalsCount,
		RunesCount:       s.NFTCounts.RunesCount,
		Degraded:         degraded,
		ClientIP:         truncate(req.ClientIP, 64),
		Referrer:         truncate(req.Referrer, 256),
		UserAgent:        truncate(req.UserAgent, 256),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
