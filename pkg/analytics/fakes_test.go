package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/fractal-terminal/terminalx/pkg/audit"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type recordingSink struct {
	name  string
	err   error
	delay time.Duration

	mu   sync.Mutex
	rows []Row
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Record(ctx context.Context, row Row) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return s.err
}

func (s *recordingSink) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}

type execCall struct {
	query string
	args  []interface{}
}

type fakePG struct {
	execErr error
	execs   []execCall
	rows    *fakeRows
	queries []execCall
}

func (f *fakePG) Exec(_ context.Context, query string, args ...interface{}) error {
	f.execs = append(f.execs, execCall{query: query, args: args})
	return f.execErr
}

func (f *fakePG) Query(_ context.Context, query string, args ...interface{}) (pgx.Rows, error) {
	f.queries = append(f.queries, execCall{query: query, args: args})
	if f.rows == nil {
		return nil, errors.New("connection refused")
	}
	return f.rows, nil
}

// fakeRows serves pre-baked leaderboard rows. Methods not overridden panic if called.
type fakeRows struct {
	pgx.Rows
	data   [][]any
	idx    int
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *int64:
			*p = row[i].(int64)
		case *int:
			*p = row[i].(int)
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     { r.closed = true }

type fakeBatch struct {
	driver.Batch
	appendErr error
	sendErr   error
	appended  [][]any
	sent      bool
	aborted   bool
	closed    bool
}

func (b *fakeBatch) Append(v ...any) error {
	if b.appendErr != nil {
		return b.appendErr
	}
	b.appended = append(b.appended, v)
	return nil
}

func (b *fakeBatch) Send() error {
	b.sent = true
	return b.sendErr
}

func (b *fakeBatch) Abort() error {
	b.aborted = true
	return nil
}

func (b *fakeBatch) Close() error {
	b.closed = true
	return nil
}

type fakeCH struct {
	mu         sync.Mutex
	execs      []string
	prepareErr error
	batches    []*fakeBatch
	nextBatch  func() *fakeBatch
}

func (f *fakeCH) Exec(_ context.Context, query string, _ ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, query)
	return nil
}

func (f *fakeCH) PrepareBatch(_ context.Context, _ string) (driver.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prepareErr != nil {
		return nil, f.prepareErr
	}
	b := &fakeBatch{}
	if f.nextBatch != nil {
		b = f.nextBatch()
	}
	f.batches = append(f.batches, b)
	return b, nil
}

func (f *fakeCH) Table(name string) string { return `"terminalx"."` + name + `"` }

func (f *fakeCH) Engine(engine, _ string) string { return engine }

func sampleSnapshot() *audit.WalletSnapshot {
	s := audit.NewSnapshot("bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh")
	s.TxCount = 42
	s.FirstTxTimestamp = 1_726_000_000
	s.NativeBalance = decimal.RequireFromString("1.5")
	s.TokenBalances["SFB"] = audit.TokenBalance{Balance: decimal.RequireFromString("1.5")}
	s.TokenBalances["FENNEC"] = audit.TokenBalance{Balance: decimal.NewFromInt(20)}
	s.LPPositions.ValueUSD = decimal.NewFromInt(8)
	s.NFTCounts = audit.NFTCounts{OrdinalsCount: 3, RunesCount: 1, UTXOCount: 7}
	s.Prices.BaseAssetUSD = decimal.NewFromInt(2)
	s.Prices.Source = audit.PriceFromExchange
	s.NetWorthUSD = decimal.NewFromInt(31)
	return s
}
