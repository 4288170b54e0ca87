package audit

import (
	"github.com/fractal-terminal/terminalx/pkg/asset"
	"github.com/fractal-terminal/terminalx/pkg/upstream"
	"github.com/shopspring/decimal"
)

// ReconciledBalance is one ticker after merging wallet and AMM reports.
type ReconciledBalance struct {
	Ticker        string
	Balance       decimal.Decimal
	WalletBalance decimal.Decimal
	AMMBalance    decimal.Decimal
	Source        BalanceSource
	// PriceUSD is the best source-supplied estimate, zero when none gave one.
	PriceUSD decimal.Decimal
}

// Reconciler merges wallet-held and AMM-custodied balances into one entry per ticker.
type Reconciler struct {
	baseTicker    string
	alwaysPresent []string
}

func NewReconciler(cfg Config) *Reconciler {
	always := make([]string, 0, len(cfg.AlwaysPresent))
	for _, t := range cfg.AlwaysPresent {
		always = append(always, asset.NormalizeTicker(t))
	}
	return &Reconciler{
		baseTicker:    asset.NormalizeTicker(cfg.BaseTicker),
		alwaysPresent: always,
	}
}

// side is one source's view of a ticker after collapsing aliased duplicates.
type side struct {
	amount   decimal.Decimal
	custody  upstream.Custody
	priceUSD decimal.Decimal
	present  bool
}

// Reconcile merges wallet and AMM reports keyed by canonical ticker.
//
// When both sides report a nonzero amount and their custody buckets are documented as
// disjoint (wallet vs AMM), the amounts are summed. Otherwise the larger figure wins so that
// overlapping or aliased reports are not counted twice. This is a heuristic: an upstream that
// mislabels its custody bucket defeats it.
//
// Zero balances are dropped, except for the always-present tickers.
func (r *Reconciler) Reconcile(wallet, amm []upstream.TokenBalance) map[string]ReconciledBalance {
	ws := r.collapse(wallet)
	as := r.collapse(amm)

	out := make(map[string]ReconciledBalance, len(ws)+len(as))
	merge := func(ticker string) {
		if _, done := out[ticker]; done {
			return
		}
		rb := r.merge(ticker, ws[ticker], as[ticker])
		if rb.Balance.IsZero() && !r.keepZero(ticker) {
			return
		}
		out[ticker] = rb
	}
	for t := range ws {
		merge(t)
	}
	for t := range as {
		merge(t)
	}
	for _, t := range r.alwaysPresent {
		if _, ok := out[t]; !ok {
			out[t] = ReconciledBalance{Ticker: t, Source: SourceWallet}
		}
	}
	return out
}

func (r *Reconciler) merge(ticker string, w, a side) ReconciledBalance {
	rb := ReconciledBalance{
		Ticker:        ticker,
		WalletBalance: w.amount,
		AMMBalance:    a.amount,
	}
	wNonZero, aNonZero := w.amount.IsPositive(), a.amount.IsPositive()
	switch {
	case wNonZero && aNonZero:
		if w.custody == upstream.CustodyWallet && a.custody == upstream.CustodyAMM {
			rb.Balance = w.amount.Add(a.amount)
			rb.Source = SourceBoth
		} else if a.amount.GreaterThan(w.amount) {
			rb.Balance = a.amount
			rb.Source = SourceAMM
		} else {
			rb.Balance = w.amount
			rb.Source = SourceWallet
		}
	case aNonZero:
		rb.Balance = a.amount
		rb.Source = SourceAMM
	case wNonZero:
		rb.Balance = w.amount
		rb.Source = SourceWallet
	default:
		rb.Balance = decimal.Zero
		rb.Source = SourceWallet
		if a.present && !w.present {
			rb.Source = SourceAMM
		}
	}

	// The wallet summary is the higher-confidence price source.
	switch {
	case w.priceUSD.IsPositive():
		rb.PriceUSD = w.priceUSD
	case a.priceUSD.IsPositive():
		rb.PriceUSD = a.priceUSD
	default:
		rb.PriceUSD = decimal.Zero
	}
	return rb
}

// collapse folds one source's entries by canonical ticker. Two spellings of the same ticker
// within one source overlap rather than add up, so the larger is kept.
func (r *Reconciler) collapse(entries []upstream.TokenBalance) map[string]side {
	out := make(map[string]side, len(entries))
	for _, e := range entries {
		ticker := asset.NormalizeTicker(e.Ticker)
		if ticker == "" {
			continue
		}
		amount := r.scale(ticker, e)
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		cur, seen := out[ticker]
		if !seen || amount.GreaterThan(cur.amount) {
			price := e.PriceUSD
			if seen && !price.IsPositive() {
				price = cur.priceUSD
			}
			out[ticker] = side{amount: amount, custody: e.Custody, priceUSD: price, present: true}
			continue
		}
		if !cur.priceUSD.IsPositive() && e.PriceUSD.IsPositive() {
			cur.priceUSD = e.PriceUSD
			out[ticker] = cur
		}
	}
	return out
}

// scale converts an amount to whole units. Magnitude inference applies to the base asset only;
// other tickers are converted only when the source declared smallest units.
func (r *Reconciler) scale(ticker string, e upstream.TokenBalance) decimal.Decimal {
	if ticker == r.baseTicker || e.Hint == asset.HintSmallestUnit {
		return asset.InferScale(e.Amount, e.Hint)
	}
	return e.Amount
}

func (r *Reconciler) keepZero(ticker string) bool {
	for _, t := range r.alwaysPresent {
		if t == ticker {
			return true
		}
	}
	return false
}
