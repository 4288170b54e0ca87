package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fractal-terminal/terminalx/pkg/amm"
	"github.com/fractal-terminal/terminalx/pkg/asset"
	"github.com/fractal-terminal/terminalx/pkg/audit"
	"github.com/fractal-terminal/terminalx/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxPriceTickers = 50

type priceResponse struct {
	BaseAssetUSD     decimal.Decimal            `json:"baseAssetUsd"`
	Source           audit.PriceSource          `json:"source"`
	IsFallback       bool                       `json:"isFallback"`
	TokenInBaseAsset map[string]decimal.Decimal `json:"tokenInBaseAsset"`
	TokenUSD         map[string]decimal.Decimal `json:"tokenUsd"`
	Unresolved       []string                   `json:"unresolved"`
}

// HandlePrice returns the base-asset USD price and, optionally, token prices.
// GET /?action=price[&tickers=A,B]
func (c *Controller) HandlePrice(w http.ResponseWriter, r *http.Request) {
	tickers := parseTickers(r.URL.Query().Get("tickers"))
	if len(tickers) > maxPriceTickers {
		writeError(w, http.StatusBadRequest, "too many tickers")
		return
	}

	ctx := r.Context()
	quote := c.App.Prices.ResolveBaseAssetUSD(ctx)
	resp := priceResponse{
		BaseAssetUSD:     quote.USD,
		Source:           quote.Source,
		IsFallback:       quote.IsFallback,
		TokenInBaseAsset: map[string]decimal.Decimal{},
		TokenUSD:         map[string]decimal.Decimal{},
		Unresolved:       []string{},
	}

	if len(tickers) > 0 {
		prices, err := c.App.Prices.ResolveTokenPrices(ctx, tickers)
		if err != nil {
			c.App.Logger.Error("token price resolution failed", zap.Strings("tickers", tickers), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "price resolution failed")
			return
		}
		for t, inBase := range prices.InBase {
			resp.TokenInBaseAsset[t] = inBase
			resp.TokenUSD[t] = inBase.Mul(quote.USD).Round(12)
		}
		if prices.Unresolved != nil {
			resp.Unresolved = prices.Unresolved
		}
	}

	w.Header().Set("Cache-Control", "public, max-age=60, s-maxage=300")
	writeData(w, resp)
}

func parseTickers(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := asset.NormalizeTicker(p); t != "" {
			out = append(out, t)
		}
	}
	return utils.Dedup(out)
}

// HandleQuote prices a swap against the live pool.
// GET /?action=quote&tickIn=<t>&tickOut=<t>&amount=<decimal>[&exactOut=true]
func (c *Controller) HandleQuote(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	qs := r.URL.Query()
	tickIn := asset.NormalizeTicker(qs.Get("tickIn"))
	tickOut := asset.NormalizeTicker(qs.Get("tickOut"))
	if tickIn == "" || tickOut == "" {
		writeError(w, http.StatusBadRequest, "missing tickIn or tickOut")
		return
	}
	if tickIn == tickOut {
		writeError(w, http.StatusBadRequest, "tickIn and tickOut must differ")
		return
	}

	amount, err := decimal.NewFromString(qs.Get("amount"))
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	exactOut := false
	if v := qs.Get("exactOut"); v != "" {
		exactOut, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid exactOut")
			return
		}
	}

	q, err := c.App.Prices.Quote(r.Context(), tickIn, tickOut, amount, exactOut)
	switch {
	case err == nil:
		writeData(w, q)
	case errors.Is(err, audit.ErrNoPool):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, audit.ErrPoolUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, amm.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, amm.ErrInsufficientLiquidity):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		c.App.Logger.Error("quote failed", zap.String("tickIn", tickIn), zap.String("tickOut", tickOut), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "quote failed")
	}
}
