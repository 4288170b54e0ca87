package audit

import (
	"context"
	"errors"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/fractal-terminal/terminalx/pkg/asset"
	"github.com/fractal-terminal/terminalx/pkg/upstream"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	usdPriceScale = 12
	usdValueScale = 8
)

// AuditRequest is one audit call plus the request metadata forwarded to analytics.
type AuditRequest struct {
	Address   string
	ClientIP  string
	Referrer  string
	UserAgent string
}

// Aggregator runs the audit pipeline: fetch-base, genesis, reconcile, price, value, emit.
// Upstream failures only degrade fields; the pipeline always produces a snapshot.
type Aggregator struct {
	src        Source
	cfg        Config
	reconciler *Reconciler
	prices     *PriceResolver
	emitter    Emitter
	pool       pond.Pool
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Aggregator)

// WithEmitter sets where finished snapshots are sent.
func WithEmitter(e Emitter) Option {
	return func(a *Aggregator) {
		if e != nil {
			a.emitter = e
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator builds an aggregator with its own worker pool. Call Close to release it.
func NewAggregator(src Source, cfg Config, logger *zap.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	pool := pond.NewPool(cfg.Workers, pond.WithQueueSize(cfg.QueueSize))
	a := &Aggregator{
		src:        src,
		cfg:        cfg,
		reconciler: NewReconciler(cfg),
		prices:     NewPriceResolver(src, cfg, pool, logger.Named("prices")),
		emitter:    nopEmitter{},
		pool:       pool,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Prices exposes the resolver for the price and quote endpoints.
func (a *Aggregator) Prices() *PriceResolver { return a.prices }

// Close waits for in-flight work and stops the worker pool.
func (a *Aggregator) Close() {
	a.pool.StopAndWait()
}

// Audit builds the snapshot for req.Address. It fails only with ErrInvalidAddress or an
// internal fault (errors.Is(err, ErrInternal)).
func (a *Aggregator) Audit(ctx context.Context, req AuditRequest) (snap *WalletSnapshot, err error) {
	start := a.now()
	address, err := NormalizeAddress(req.Address)
	if err != nil {
		auditsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	req.Address = address

	defer func() {
		if r := recover(); r != nil {
			snap = nil
			err = &InternalError{Cause: r, Stack: string(debug.Stack())}
		}
		auditDuration.Observe(a.now().Sub(start).Seconds())
		var internal *InternalError
		if errors.As(err, &internal) {
			auditsTotal.WithLabelValues("internal_error").Inc()
			a.logger.Error("audit failed",
				zap.String("address", address),
				zap.Error(err),
				zap.String("stack", internal.Stack))
			return
		}
		auditsTotal.WithLabelValues("ok").Inc()
	}()

	deg := &degradation{}
	faults := &faultCatcher{}

	// Fetch-base
	base := a.fetchBase(ctx, address, deg, faults)
	if faults.err != nil {
		return nil, faults.err
	}

	snap = NewSnapshot(address)
	snap.GeneratedAt = start.Unix()

	switch {
	case base.statsOK:
		snap.NativeBalance = asset.FromSmallestUnit(base.stats.BalanceSats)
		snap.TxCount = base.stats.TxCount
	case base.indexerOK:
		snap.NativeBalance = asset.FromSmallestUnit(base.indexer.Satoshi + base.indexer.PendingSatoshi)
	}
	snap.NFTCounts = NFTCounts{OrdinalsCount: base.inscriptions, RunesCount: base.runes, UTXOCount: base.utxos}
	if !base.utxosOK && base.indexerOK {
		snap.NFTCounts.UTXOCount = base.indexer.UTXOCount
	}

	// Resolve-genesis
	var confirmed int64
	if base.statsOK {
		confirmed = base.stats.ConfirmedTxCount
	}
	first, txCount := a.resolveGenesis(ctx, address, confirmed, deg)
	snap.FirstTxTimestamp = first
	if snap.TxCount == 0 {
		snap.TxCount = txCount
	}

	// Reconcile
	wallet := make([]upstream.TokenBalance, 0, len(base.wallet)+1)
	wallet = append(wallet, upstream.TokenBalance{
		Ticker:  a.cfg.BaseTicker,
		Amount:  snap.NativeBalance,
		Hint:    asset.HintDecimal,
		Custody: upstream.CustodyWallet,
	})
	wallet = append(wallet, base.wallet...)
	reconciled := a.reconciler.Reconcile(wallet, base.amm)

	// Price
	baseQuote, tokenPrices := a.priceStage(ctx, pricingTickers(reconciled, base.lp), faults)
	if faults.err != nil {
		return nil, faults.err
	}
	if baseQuote.IsFallback {
		deg.add("basePrice")
	}
	for _, t := range tokenPrices.Unresolved {
		deg.add("pool:" + t)
	}

	// Value & total
	baseUSD := baseQuote.USD
	for ticker, rb := range reconciled {
		priceUSD := tokenPrices.InBase[ticker].Mul(baseUSD)
		if !priceUSD.IsPositive() {
			priceUSD = rb.PriceUSD
		}
		priceUSD = priceUSD.Round(usdPriceScale)
		snap.TokenBalances[ticker] = TokenBalance{
			Balance:       rb.Balance,
			WalletBalance: rb.WalletBalance,
			AMMBalance:    rb.AMMBalance,
			PriceUSD:      priceUSD,
			ValueUSD:      rb.Balance.Mul(priceUSD).Round(usdValueScale),
			Source:        rb.Source,
		}
	}
	snap.LPPositions = a.valueLP(base.lp, tokenPrices.InBase, baseUSD)
	snap.Prices = Prices{
		BaseAssetUSD:     baseUSD,
		Source:           baseQuote.Source,
		IsFallback:       baseQuote.IsFallback,
		TokenInBaseAsset: tokenPrices.InBase,
	}
	snap.NetWorthUSD = snap.RecomputeNetWorth()
	snap.Degraded = deg.list()

	// Emit
	a.emitter.Emit(snap, req)

	a.logger.Debug("audit complete",
		zap.String("address", address),
		zap.Int("tokens", len(snap.TokenBalances)),
		zap.Strings("degraded", snap.Degraded),
		zap.Duration("took", a.now().Sub(start)))
	return snap, nil
}

// baseData is the output of the fetch-base stage. Each field is written by exactly one task.
type baseData struct {
	stats   upstream.ChainStats
	statsOK bool

	indexer   upstream.IndexerBalance
	indexerOK bool

	utxos   int64
	utxosOK bool

	wallet []upstream.TokenBalance
	amm    []upstream.TokenBalance
	lp     []upstream.LPPosition

	inscriptions int64
	runes        int64
}

func (a *Aggregator) fetchBase(ctx context.Context, address string, deg *degradation, faults *faultCatcher) *baseData {
	out := &baseData{}

	group := a.pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	group.Submit(faults.wrap(func() {
		out.stats, out.statsOK = a.src.ChainStats(groupCtx, address)
		deg.unless(out.statsOK, "chainStats")
	}))
	group.Submit(faults.wrap(func() {
		out.indexer, out.indexerOK = a.src.IndexerBalance(groupCtx, address)
		deg.unless(out.indexerOK, "indexerBalance")
	}))
	group.Submit(faults.wrap(func() {
		out.utxos, out.utxosOK = a.src.UTXOCount(groupCtx, address)
		deg.unless(out.utxosOK, "utxos")
	}))
	group.Submit(faults.wrap(func() {
		var ok bool
		out.wallet, ok = a.src.BRC20Summary(groupCtx, address)
		deg.unless(ok, "brc20")
	}))
	group.Submit(faults.wrap(func() {
		var ok bool
		out.inscriptions, ok = a.src.InscriptionCount(groupCtx, address)
		deg.unless(ok, "inscriptions")
	}))
	group.Submit(faults.wrap(func() {
		var ok bool
		out.runes, ok = a.src.RuneCount(groupCtx, address)
		deg.unless(ok, "runes")
	}))
	group.Submit(faults.wrap(func() {
		var ok bool
		out.amm, ok = a.src.AllBalance(groupCtx, address)
		deg.unless(ok, "ammBalance")
	}))
	group.Submit(faults.wrap(func() {
		var ok bool
		out.lp, ok = a.src.MyPoolList(groupCtx, address)
		deg.unless(ok, "lpPositions")
	}))

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		a.logger.Warn("fetch-base fan-out encountered error",
			zap.String("address", address),
			zap.Error(err))
	}
	return out
}

// priceStage resolves the base price alongside the token prices.
func (a *Aggregator) priceStage(ctx context.Context, tickers []string, faults *faultCatcher) (BaseQuote, TokenPrices) {
	var baseQuote BaseQuote
	group := a.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	group.Submit(faults.wrap(func() {
		baseQuote = a.prices.ResolveBaseAssetUSD(groupCtx)
	}))

	tokenPrices, err := a.prices.ResolveTokenPrices(ctx, tickers)
	if err != nil {
		var internal *InternalError
		if errors.As(err, &internal) {
			faults.once.Do(func() { faults.err = internal })
		}
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		a.logger.Warn("price stage encountered error", zap.Error(err))
	}
	if baseQuote.Source == "" {
		baseQuote = BaseQuote{USD: a.cfg.FallbackBaseUSD, Source: PriceFromFallback, IsFallback: true}
	}
	return baseQuote, tokenPrices
}

// valueLP values LP positions in their own bucket: the base leg at par, the paired leg through
// its direct pool price. Positions with both legs empty are not counted.
func (a *Aggregator) valueLP(positions []upstream.LPPosition, inBase map[string]decimal.Decimal, baseUSD decimal.Decimal) LPPositions {
	out := LPPositions{}
	baseTicker := asset.NormalizeTicker(a.cfg.BaseTicker)
	valueInBase := decimal.Zero
	for _, p := range positions {
		legs := [2]struct {
			ticker string
			amount decimal.Decimal
		}{{p.Tick0, p.Amount0}, {p.Tick1, p.Amount1}}
		held := false
		for _, leg := range legs {
			if !leg.amount.IsPositive() {
				continue
			}
			held = true
			if leg.ticker == baseTicker {
				out.BaseAssetAmount = out.BaseAssetAmount.Add(leg.amount)
				valueInBase = valueInBase.Add(leg.amount)
				continue
			}
			out.PairedAssetAmount = out.PairedAssetAmount.Add(leg.amount)
			valueInBase = valueInBase.Add(leg.amount.Mul(inBase[leg.ticker]))
		}
		if held {
			out.Pools++
		}
	}
	out.ValueUSD = valueInBase.Mul(baseUSD).Round(usdValueScale)
	return out
}

func pricingTickers(reconciled map[string]ReconciledBalance, lp []upstream.LPPosition) []string {
	seen := make(map[string]struct{}, len(reconciled)+2*len(lp))
	for t := range reconciled {
		seen[t] = struct{}{}
	}
	for _, p := range lp {
		seen[p.Tick0] = struct{}{}
		seen[p.Tick1] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// degradation collects the names of sources that returned no data.
type degradation struct {
	mu    sync.Mutex
	names []string
}

func (d *degradation) add(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	label, _, _ := strings.Cut(name, ":")
	degradedTotal.WithLabelValues(label).Inc()
}

func (d *degradation) unless(ok bool, name string) {
	if !ok {
		d.add(name)
	}
}

func (d *degradation) list() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.names))
	seen := map[string]struct{}{}
	for _, n := range d.names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// faultCatcher turns the first panic in a pool task into an InternalError.
type faultCatcher struct {
	once sync.Once
	err  *InternalError
}

func (f *faultCatcher) wrap(fn func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				f.once.Do(func() {
					f.err = &InternalError{Cause: r, Stack: stack}
				})
			}
		}()
		fn()
	}
}
