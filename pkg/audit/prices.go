package audit

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/fractal-terminal/terminalx/pkg/amm"
	"github.com/fractal-terminal/terminalx/pkg/asset"
	"github.com/fractal-terminal/terminalx/pkg/upstream"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrNoPool is returned by Quote when no pool pairs the two tickers.
	ErrNoPool = errors.New("no pool for pair")
	// ErrPoolUnavailable is returned by Quote when the AMM did not answer.
	ErrPoolUnavailable = errors.New("pool reserves unavailable")
)

// BaseQuote is a resolved base-asset USD price.
type BaseQuote struct {
	USD        decimal.Decimal
	Source     PriceSource
	IsFallback bool
}

// TokenPrices maps tickers to their price in base-asset units. Unresolved lists the tickers
// whose pool lookup got no answer (as opposed to a pool that does not exist).
type TokenPrices struct {
	InBase     map[string]decimal.Decimal
	Unresolved []string
}

// PriceResolver prices the base asset in USD and every other token in base-asset units.
type PriceResolver struct {
	src    PricingSource
	cfg    Config
	pool   pond.Pool
	logger *zap.Logger

	base    string
	bridged string
}

// NewPriceResolver builds a resolver; pool runs the per-ticker lookups.
func NewPriceResolver(src PricingSource, cfg Config, pool pond.Pool, logger *zap.Logger) *PriceResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceResolver{
		src:     src,
		cfg:     cfg,
		pool:    pool,
		logger:  logger,
		base:    asset.NormalizeTicker(cfg.BaseTicker),
		bridged: asset.NormalizeTicker(cfg.BridgedTicker),
	}
}

// ResolveBaseAssetUSD tries each oracle in priority order, then the base/bridged pool ratio
// times the bridged asset's oracle price, then the configured constant flagged as a fallback.
func (p *PriceResolver) ResolveBaseAssetUSD(ctx context.Context) BaseQuote {
	for _, o := range p.cfg.OracleOrder {
		if usd, ok := p.src.SpotPrice(ctx, o, p.cfg.BaseSymbol); ok && usd.IsPositive() {
			basePriceSource.WithLabelValues(string(o)).Inc()
			return BaseQuote{USD: usd, Source: PriceSource(o)}
		}
	}

	if usd, ok := p.poolDerivedBaseUSD(ctx); ok {
		basePriceSource.WithLabelValues(string(PriceFromPool)).Inc()
		return BaseQuote{USD: usd, Source: PriceFromPool}
	}

	p.logger.Warn("all base price sources failed, using fallback constant",
		zap.String("symbol", p.cfg.BaseSymbol),
		zap.String("fallback_usd", p.cfg.FallbackBaseUSD.String()))
	basePriceSource.WithLabelValues(string(PriceFromFallback)).Inc()
	return BaseQuote{USD: p.cfg.FallbackBaseUSD, Source: PriceFromFallback, IsFallback: true}
}

func (p *PriceResolver) poolDerivedBaseUSD(ctx context.Context) (decimal.Decimal, bool) {
	pool, ok := p.src.PoolReserves(ctx, p.base, p.bridged)
	if !ok || !pool.Exists {
		return decimal.Zero, false
	}
	rBase, rBridged, ok := pool.Oriented(p.base, p.bridged)
	if !ok {
		return decimal.Zero, false
	}
	baseInBridged := amm.SpotPrice(rBase, rBridged)
	if !baseInBridged.IsPositive() {
		return decimal.Zero, false
	}
	for _, o := range p.cfg.OracleOrder {
		if bridgedUSD, ok := p.src.SpotPrice(ctx, o, p.cfg.BridgedSymbol); ok && bridgedUSD.IsPositive() {
			return baseInBridged.Mul(bridgedUSD), true
		}
	}
	return decimal.Zero, false
}

// TokenPriceInBase prices one token from its direct pool against the base asset. There is no
// routing through other pairs: without a direct pool the price is zero. ok is false when the
// AMM gave no answer at all.
func (p *PriceResolver) TokenPriceInBase(ctx context.Context, ticker string) (decimal.Decimal, bool) {
	ticker = asset.NormalizeTicker(ticker)
	if ticker == p.base {
		return decimal.NewFromInt(1), true
	}
	pool, ok := p.src.PoolReserves(ctx, ticker, p.base)
	if !ok {
		return decimal.Zero, false
	}
	if !pool.Exists {
		return decimal.Zero, true
	}
	rToken, rBase, ok := pool.Oriented(ticker, p.base)
	if !ok {
		return decimal.Zero, true
	}
	return amm.SpotPrice(rToken, rBase), true
}

// ResolveTokenPrices prices every ticker concurrently. The error is non-nil only when a
// lookup panicked.
func (p *PriceResolver) ResolveTokenPrices(ctx context.Context, tickers []string) (TokenPrices, error) {
	out := TokenPrices{InBase: make(map[string]decimal.Decimal, len(tickers))}
	var mu sync.Mutex
	faults := &faultCatcher{}

	group := p.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	seen := map[string]struct{}{}
	for _, t := range tickers {
		ticker := asset.NormalizeTicker(t)
		if ticker == "" {
			continue
		}
		if _, dup := seen[ticker]; dup {
			continue
		}
		seen[ticker] = struct{}{}
		group.Submit(faults.wrap(func() {
			price := decimal.Zero
			ok := false
			if groupCtx.Err() == nil {
				price, ok = p.TokenPriceInBase(groupCtx, ticker)
			}
			mu.Lock()
			defer mu.Unlock()
			out.InBase[ticker] = price
			if !ok {
				out.Unresolved = append(out.Unresolved, ticker)
			}
		}))
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		p.logger.Warn("token price fan-out encountered error", zap.Error(err))
	}
	if faults.err != nil {
		return TokenPrices{}, faults.err
	}
	sort.Strings(out.Unresolved)
	return out, nil
}

// Quote prices a swap of amount between two tickers against the live pool.
func (p *PriceResolver) Quote(ctx context.Context, tickIn, tickOut string, amount decimal.Decimal, exactOut bool) (amm.Quote, error) {
	tickIn, tickOut = asset.NormalizeTicker(tickIn), asset.NormalizeTicker(tickOut)
	pool, ok := p.src.PoolReserves(ctx, tickIn, tickOut)
	if !ok {
		return amm.Quote{}, ErrPoolUnavailable
	}
	if !pool.Exists {
		return amm.Quote{}, ErrNoPool
	}
	rIn, rOut, ok := pool.Oriented(tickIn, tickOut)
	if !ok {
		return amm.Quote{}, ErrNoPool
	}
	return amm.QuoteDecimal(amount, rIn, rOut, exactOut)
}

var _ PricingSource = (*upstream.Client)(nil)
