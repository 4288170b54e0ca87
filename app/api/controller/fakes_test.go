package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fractal-terminal/terminalx/app/api/types"
	"github.com/fractal-terminal/terminalx/pkg/amm"
	"github.com/fractal-terminal/terminalx/pkg/analytics"
	"github.com/fractal-terminal/terminalx/pkg/audit"
	"github.com/fractal-terminal/terminalx/pkg/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAddress = "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"

type fakeAuditor struct {
	mu       sync.Mutex
	snap     *audit.WalletSnapshot
	err      error
	panicMsg string
	calls    int
	last     audit.AuditRequest
}

func (f *fakeAuditor) Audit(_ context.Context, req audit.AuditRequest) (*audit.WalletSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func (f *fakeAuditor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePrices struct {
	base      audit.BaseQuote
	tokens    audit.TokenPrices
	tokensErr error
	quote     amm.Quote
	quoteErr  error
	quoteArgs []any
}

func (f *fakePrices) ResolveBaseAssetUSD(context.Context) audit.BaseQuote { return f.base }

func (f *fakePrices) ResolveTokenPrices(_ context.Context, tickers []string) (audit.TokenPrices, error) {
	if f.tokensErr != nil {
		return audit.TokenPrices{}, f.tokensErr
	}
	out := audit.TokenPrices{InBase: map[string]decimal.Decimal{}}
	for _, t := range tickers {
		if p, ok := f.tokens.InBase[t]; ok {
			out.InBase[t] = p
		}
	}
	out.Unresolved = f.tokens.Unresolved
	return out, nil
}

func (f *fakePrices) Quote(_ context.Context, tickIn, tickOut string, amount decimal.Decimal, exactOut bool) (amm.Quote, error) {
	f.quoteArgs = []any{tickIn, tickOut, amount.String(), exactOut}
	return f.quote, f.quoteErr
}

type fakeLeaderboard struct {
	entries []analytics.LeaderboardEntry
	err     error
	limit   int
}

func (f *fakeLeaderboard) Leaderboard(_ context.Context, limit int) ([]analytics.LeaderboardEntry, error) {
	f.limit = limit
	return f.entries, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

var errDown = errors.New("down")

func testSnapshot() *audit.WalletSnapshot {
	s := audit.NewSnapshot(testAddress)
	s.TxCount = 42
	s.NativeBalance = decimal.RequireFromString("1.5")
	s.TokenBalances["FENNEC"] = audit.TokenBalance{
		Balance:  decimal.NewFromInt(20),
		PriceUSD: decimal.NewFromInt(1),
		ValueUSD: decimal.NewFromInt(20),
		Source:   audit.SourceWallet,
	}
	s.Prices.BaseAssetUSD = decimal.NewFromInt(2)
	s.Prices.Source = audit.PriceFromExchange
	s.NetWorthUSD = decimal.NewFromInt(23)
	s.GeneratedAt = 1_760_000_000
	return s
}

func newTestApp(auditor *fakeAuditor, prices *fakePrices) *types.App {
	store := cache.NewMemoryStore()
	return &types.App{
		Auditor:      auditor,
		Prices:       prices,
		Cache:        store,
		EdgeCacheTTL: 30 * time.Second,
		Dependencies: map[string]types.Pinger{"cache": store},
		Logger:       zap.NewNop(),
	}
}

// testHandler mirrors the production middleware chain.
func testHandler(t *testing.T, app *types.App) http.Handler {
	t.Helper()
	router, err := NewController(app).NewRouter()
	require.NoError(t, err)

	var h http.Handler = router
	h = WithCORS(h)
	h = WithNoStoreForWrites(h)
	h = WithRecovery(app.Logger, h)
	return WithRequestID(app.Logger, h)
}

func do(t *testing.T, h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
