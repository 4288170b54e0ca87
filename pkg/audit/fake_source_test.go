package audit

import (
	"context"
	"sync"

	"github.com/fractal-terminal/terminalx/pkg/asset"
	"github.com/fractal-terminal/terminalx/pkg/upstream"
	"github.com/shopspring/decimal"
)

// fakeSource answers from canned data. A nil field means the upstream failed.
type fakeSource struct {
	stats   *upstream.ChainStats
	indexer *upstream.IndexerBalance
	utxos   *int64

	historyTotal int64
	history      map[int64]upstream.HistoryEntry

	brc20 []upstream.TokenBalance
	amm   []upstream.TokenBalance
	lp    []upstream.LPPosition

	inscriptions *int64
	runes        *int64

	// pools is keyed "A/B"; poolsUp=false makes every pool lookup fail.
	pools   map[string]upstream.PoolReserves
	poolsUp bool

	spot map[upstream.Oracle]map[string]decimal.Decimal

	panicOn string

	mu    sync.Mutex
	calls map[string]int
}

func i64(v int64) *int64 { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mkPool(token, quote string, rToken, rQuote string) upstream.PoolReserves {
	return upstream.PoolReserves{
		Tick0:    asset.NormalizeTicker(token),
		Tick1:    asset.NormalizeTicker(quote),
		Reserve0: dec(rToken),
		Reserve1: dec(rQuote),
		Exists:   true,
	}
}

func (f *fakeSource) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	if f.panicOn == name {
		panic("boom in " + name)
	}
}

func (f *fakeSource) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeSource) ChainStats(context.Context, string) (upstream.ChainStats, bool) {
	f.hit("chainStats")
	if f.stats == nil {
		return upstream.ChainStats{}, false
	}
	return *f.stats, true
}

func (f *fakeSource) UTXOCount(context.Context, string) (int64, bool) {
	f.hit("utxos")
	if f.utxos == nil {
		return 0, false
	}
	return *f.utxos, true
}

func (f *fakeSource) IndexerBalance(context.Context, string) (upstream.IndexerBalance, bool) {
	f.hit("indexerBalance")
	if f.indexer == nil {
		return upstream.IndexerBalance{}, false
	}
	return *f.indexer, true
}

func (f *fakeSource) AddressHistory(_ context.Context, _ string, offset, _ int64) (upstream.HistoryPage, bool) {
	f.hit("history")
	if f.history == nil {
		return upstream.HistoryPage{}, false
	}
	page := upstream.HistoryPage{Total: f.historyTotal}
	if e, ok := f.history[offset]; ok {
		page.Entries = []upstream.HistoryEntry{e}
	}
	return page, true
}

func (f *fakeSource) AddressHistoryAt(_ context.Context, _ string, offset int64) (upstream.HistoryEntry, bool) {
	f.hit("historyAt")
	e, ok := f.history[offset]
	return e, ok
}

func (f *fakeSource) BRC20Summary(context.Context, string) ([]upstream.TokenBalance, bool) {
	f.hit("brc20")
	return f.brc20, f.brc20 != nil
}

func (f *fakeSource) InscriptionCount(context.Context, string) (int64, bool) {
	f.hit("inscriptions")
	if f.inscriptions == nil {
		return 0, false
	}
	return *f.inscriptions, true
}

func (f *fakeSource) RuneCount(context.Context, string) (int64, bool) {
	f.hit("runes")
	if f.runes == nil {
		return 0, false
	}
	return *f.runes, true
}

func (f *fakeSource) AllBalance(context.Context, string) ([]upstream.TokenBalance, bool) {
	f.hit("ammBalance")
	return f.amm, f.amm != nil
}

func (f *fakeSource) MyPoolList(context.Context, string) ([]upstream.LPPosition, bool) {
	f.hit("lpPositions")
	return f.lp, f.lp != nil
}

func (f *fakeSource) PoolReserves(_ context.Context, token, quote string) (upstream.PoolReserves, bool) {
	f.hit("pool")
	if !f.poolsUp {
		return upstream.PoolReserves{}, false
	}
	t, q := asset.NormalizeTicker(token), asset.NormalizeTicker(quote)
	if p, ok := f.pools[t+"/"+q]; ok {
		return p, true
	}
	if p, ok := f.pools[q+"/"+t]; ok {
		return p, true
	}
	return upstream.PoolReserves{Tick0: t, Tick1: q}, true
}

func (f *fakeSource) SpotPrice(_ context.Context, oracle upstream.Oracle, symbol string) (decimal.Decimal, bool) {
	f.hit("spot")
	p, ok := f.spot[oracle][symbol]
	if !ok || !p.IsPositive() {
		return decimal.Zero, false
	}
	return p, true
}

type recordingEmitter struct {
	mu    sync.Mutex
	snaps []*WalletSnapshot
	reqs  []AuditRequest
}

func (r *recordingEmitter) Emit(s *WalletSnapshot, req AuditRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
	r.reqs = append(r.reqs, req)
}
