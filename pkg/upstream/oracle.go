package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

type exchangeTicker struct {
	Symbol    string              `json:"symbol"`
	Price     decimal.NullDecimal `json:"price"`
	LastPrice decimal.NullDecimal `json:"lastPrice"`
}

// SpotPrice asks one oracle for the USD price of symbol. Only positive prices count.
func (c *Client) SpotPrice(ctx context.Context, oracle Oracle, symbol string) (decimal.Decimal, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Zero, false
	}
	var (
		price decimal.Decimal
		ok    bool
	)
	switch oracle {
	case OracleExchange:
		price, ok = c.exchangePrice(ctx, symbol)
	case OracleFeeAPI:
		price, ok = c.feeAPIPrice(ctx, symbol)
	case OracleAggregator:
		price, ok = c.aggregatorPrice(ctx, symbol)
	}
	if !ok || !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}

func (c *Client) exchangePrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	sym := url.QueryEscape(symbol)
	res := c.caller.WithEndpointFallback(ctx, ProviderExchange,
		candidates(c.ep.Exchange,
			fmt.Sprintf(exchangeTickerPath, sym),
			fmt.Sprintf(exchangeTickerAltPath, sym),
		),
		c.oracleOpts("oracle:exchange:"+symbol, false),
	)
	t, ok := DecodeJSON[exchangeTicker](res)
	if !ok {
		return decimal.Zero, false
	}
	if t.Price.Valid {
		return t.Price.Decimal, true
	}
	return t.LastPrice.Decimal, t.LastPrice.Valid
}

func (c *Client) feeAPIPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	if !strings.EqualFold(symbol, c.ep.FeeAPISymbol) {
		return decimal.Zero, false
	}
	res := c.caller.WithEndpointFallback(ctx, ProviderFeeAPI,
		candidates(c.ep.FeeAPI, feePricesPath),
		c.oracleOpts("oracle:feeapi:"+symbol, false),
	)
	prices, ok := DecodeJSON[map[string]decimal.Decimal](res)
	if !ok {
		return decimal.Zero, false
	}
	usd, ok := prices["USD"]
	return usd, ok
}

func (c *Client) aggregatorPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	id, ok := c.ep.AggregatorIDs[symbol]
	if !ok {
		return decimal.Zero, false
	}
	res := c.caller.WithEndpointFallback(ctx, ProviderAggregator,
		candidates(c.ep.Aggregator, fmt.Sprintf(aggregatorPricePath, url.QueryEscape(id))),
		c.oracleOpts("oracle:aggregator:"+symbol, true),
	)
	prices, ok := DecodeJSON[map[string]map[string]decimal.Decimal](res)
	if !ok {
		return decimal.Zero, false
	}
	usd, ok := prices[id]["usd"]
	return usd, ok
}
