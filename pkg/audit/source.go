package audit

import (
	"context"

	"github.com/fractal-terminal/terminalx/pkg/upstream"
	"github.com/shopspring/decimal"
)

// PricingSource is the subset of the upstream pool used for pricing.
type PricingSource interface {
	PoolReserves(ctx context.Context, token, quote string) (upstream.PoolReserves, bool)
	SpotPrice(ctx context.Context, oracle upstream.Oracle, symbol string) (decimal.Decimal, bool)
}

// Source is everything the aggregator reads. *upstream.Client implements it.
type Source interface {
	PricingSource
	ChainStats(ctx context.Context, address string) (upstream.ChainStats, bool)
	UTXOCount(ctx context.Context, address string) (int64, bool)
	IndexerBalance(ctx context.Context, address string) (upstream.IndexerBalance, bool)
	AddressHistory(ctx context.Context, address string, offset, limit int64) (upstream.HistoryPage, bool)
	AddressHistoryAt(ctx context.Context, address string, offset int64) (upstream.HistoryEntry, bool)
	BRC20Summary(ctx context.Context, address string) ([]upstream.TokenBalance, bool)
	InscriptionCount(ctx context.Context, address string) (int64, bool)
	RuneCount(ctx context.Context, address string) (int64, bool)
	AllBalance(ctx context.Context, address string) ([]upstream.TokenBalance, bool)
	MyPoolList(ctx context.Context, address string) ([]upstream.LPPosition, bool)
}

// Emitter receives finished snapshots for best-effort persistence. Emit must not block.
type Emitter interface {
	Emit(snapshot *WalletSnapshot, req AuditRequest)
}

type nopEmitter struct{}

func (nopEmitter) Emit(*WalletSnapshot, AuditRequest) {}

var _ Source = (*upstream.Client)(nil)
