package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/fractal-terminal/terminalx/pkg/db/clickhouse"
	"go.uber.org/zap"
)

type chStore interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
	PrepareBatch(ctx context.Context, query string) (driver.Batch, error)
	Table(name string) string
	Engine(engine, versionCol string) string
}

const snapshotsTable = "wallet_snapshots"

// ClickHouseSink appends every audit to a time-series table. Rows are buffered and sent in
// batches once BatchSize is reached or on the next Run tick.
type ClickHouseSink struct {
	db        chStore
	batchSize int
	logger    *zap.Logger

	mu  sync.Mutex
	buf []Row
}

func NewClickHouseSink(db chStore, batchSize int, logger *zap.Logger) *ClickHouseSink {
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickHouseSink{db: db, batchSize: batchSize, logger: logger}
}

func (s *ClickHouseSink) Name() string { return "clickhouse" }

// InitSchema creates the snapshots table.
func (s *ClickHouseSink) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			address            String,
			recorded_at        DateTime64(3, 'UTC'),
			net_worth_usd      Decimal(38, 12),
			native_balance     Decimal(38, 8),
			lp_value_usd       Decimal(38, 12),
			base_asset_usd     Decimal(38, 12),
			price_source       LowCardinality(String),
			price_fallback     Bool,
			tx_count           UInt64,
			first_tx_timestamp Int64,
			token_count        UInt32,
			ordinals_count     UInt64,
			runes_count        UInt64,
			degraded           Array(LowCardinality(String)),
			referrer           String
		) ENGINE = %s
		PARTITION BY toYYYYMM(recorded_at)
		ORDER BY (address, recorded_at)`,
		s.db.Table(snapshotsTable), s.db.Engine(clickhouse.MergeTree, ""))

	if err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", snapshotsTable, err)
	}
	return nil
}

// Record buffers the row and flushes when the batch is full.
func (s *ClickHouseSink) Record(ctx context.Context, row Row) error {
	s.mu.Lock()
	s.buf = append(s.buf, row)
	full := len(s.buf) >= s.batchSize
	s.mu.Unlock()

	if !full {
		return nil
	}
	return s.Flush(ctx)
}

// Flush sends every buffered row in one batch. Rows of a failed batch are dropped.
func (s *ClickHouseSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	rows := s.buf
	s.buf = nil
	s.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}
	if err := s.send(ctx, rows); err != nil {
		clickhouseFlushedRows.WithLabelValues("error").Add(float64(len(rows)))
		return err
	}
	clickhouseFlushedRows.WithLabelValues("ok").Add(float64(len(rows)))
	return nil
}

func (s *ClickHouseSink) send(ctx context.Context, rows []Row) error {
	query := fmt.Sprintf(`INSERT INTO %s (
		address, recorded_at, net_worth_usd, native_balance, lp_value_usd, base_asset_usd,
		price_source, price_fallback, tx_count, first_tx_timestamp, token_count,
		ordinals_count, runes_count, degraded, referrer
	)`, s.db.Table(snapshotsTable))

	batch, err := s.db.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare snapshot batch: %w", err)
	}
	defer func() { _ = batch.Close() }()

	for _, r := range rows {
		err = batch.Append(
			r.Address,
			r.RecordedAt,
			r.NetWorthUSD,
			r.NativeBalance,
			r.LPValueUSD,
			r.BaseAssetUSD,
			r.PriceSource,
			r.PriceFallback,
			uint64(max(r.TxCount, 0)),
			r.FirstTxTimestamp,
			uint32(max(r.TokenCount, 0)),
			uint64(max(r.OrdinalsCount, 0)),
			uint64(max(r.RunesCount, 0)),
			r.Degraded,
			r.Referrer,
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append snapshot row %s: %w", r.Address, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send snapshot batch: %w", err)
	}
	return nil
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (s *ClickHouseSink) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s.Flush(flushCtx); err != nil {
				s.logger.Warn("final clickhouse flush failed", zap.Error(err))
			}
			cancel()
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.Warn("clickhouse flush failed", zap.Error(err))
			}
		}
	}
}

// Pending returns the number of buffered rows.
func (s *ClickHouseSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}
