package upstream

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/fractal-terminal/terminalx/pkg/asset"
	"github.com/shopspring/decimal"
)

type indexerBalanceData struct {
	Satoshi              int64 `json:"satoshi"`
	PendingSatoshi       int64 `json:"pendingSatoshi"`
	UTXOCount            int64 `json:"utxoCount"`
	InscriptionUTXOCount int64 `json:"inscriptionUtxoCount"`
}

// IndexerBalance returns the indexer's view of the native balance and UTXO set.
func (c *Client) IndexerBalance(ctx context.Context, address string) (IndexerBalance, bool) {
	addr := url.PathEscape(address)
	res := c.caller.WithEndpointFallback(ctx, ProviderIndexer,
		bearer(candidates(c.ep.Indexer,
			fmt.Sprintf(indexerBalancePath, addr),
			fmt.Sprintf(indexerBalanceAltPath, addr),
		), c.ep.IndexerAPIKey),
		c.envelopeOpts("indexer:balance:"+address, c.ep.TTL.Balances, true),
	)
	data, ok := decodeEnvelope[indexerBalanceData](res)
	if !ok {
		return IndexerBalance{}, false
	}
	return IndexerBalance(data), true
}

type historyItem struct {
	TxID      string `json:"txid"`
	Height    int64  `json:"height"`
	Blocktime int64  `json:"blocktime"`
	Timestamp int64  `json:"timestamp"`
}

type historyData struct {
	Total  int64         `json:"total"`
	Detail []historyItem `json:"detail"`
	List   []historyItem `json:"list"`
}

// AddressHistory returns limit transactions starting at offset, newest first.
func (c *Client) AddressHistory(ctx context.Context, address string, offset, limit int64) (HistoryPage, bool) {
	if offset < 0 || limit <= 0 {
		return HistoryPage{}, false
	}
	addr := url.PathEscape(address)
	res := c.caller.WithEndpointFallback(ctx, ProviderIndexer,
		bearer(candidates(c.ep.Indexer,
			fmt.Sprintf(historyPath, addr, offset, limit),
			fmt.Sprintf(historyAltPath, addr, offset, limit),
		), c.ep.IndexerAPIKey),
		c.envelopeOpts(fmt.Sprintf("indexer:history:%s:%d:%d", address, offset, limit), c.ep.TTL.History, true),
	)
	data, ok := decodeEnvelope[historyData](res)
	if !ok {
		return HistoryPage{}, false
	}
	items := data.Detail
	if len(items) == 0 {
		items = data.List
	}
	page := HistoryPage{Total: data.Total, Entries: make([]HistoryEntry, 0, len(items))}
	for _, it := range items {
		ts := it.Blocktime
		if ts == 0 {
			ts = it.Timestamp
		}
		page.Entries = append(page.Entries, HistoryEntry{TxID: it.TxID, Height: it.Height, Timestamp: ts})
	}
	return page, true
}

// AddressHistoryAt returns the single transaction at offset.
func (c *Client) AddressHistoryAt(ctx context.Context, address string, offset int64) (HistoryEntry, bool) {
	page, ok := c.AddressHistory(ctx, address, offset, 1)
	if !ok || len(page.Entries) == 0 {
		return HistoryEntry{}, false
	}
	return page.Entries[0], true
}

type brc20Item struct {
	Ticker              string              `json:"ticker"`
	OverallBalance      decimal.NullDecimal `json:"overallBalance"`
	AvailableBalance    decimal.NullDecimal `json:"availableBalance"`
	TransferableBalance decimal.NullDecimal `json:"transferableBalance"`
	PriceUSD            decimal.NullDecimal `json:"priceUsd"`
}

type brc20SummaryData struct {
	Total  int64       `json:"total"`
	Detail []brc20Item `json:"detail"`
}

// BRC20Summary returns the wallet-held token balances of address.
func (c *Client) BRC20Summary(ctx context.Context, address string) ([]TokenBalance, bool) {
	addr := url.PathEscape(address)
	res := c.caller.WithEndpointFallback(ctx, ProviderIndexer,
		bearer(candidates(c.ep.Indexer,
			fmt.Sprintf(brc20SummaryPath, addr, summaryPageSize),
			fmt.Sprintf(brc20SummaryAltPath, addr, summaryPageSize),
		), c.ep.IndexerAPIKey),
		c.envelopeOpts("indexer:brc20:"+address, c.ep.TTL.Balances, true),
	)
	data, ok := decodeEnvelope[brc20SummaryData](res)
	if !ok {
		return nil, false
	}
	out := make([]TokenBalance, 0, len(data.Detail))
	for _, it := range data.Detail {
		ticker := c.aliases.Remember(it.Ticker)
		if ticker == "" {
			continue
		}
		amount := it.OverallBalance.Decimal
		if !it.OverallBalance.Valid {
			amount = it.AvailableBalance.Decimal.Add(it.TransferableBalance.Decimal)
		}
		out = append(out, TokenBalance{
			Ticker:    ticker,
			RawTicker: it.Ticker,
			Amount:    amount,
			Hint:      asset.HintDecimal,
			Custody:   CustodyWallet,
			PriceUSD:  it.PriceUSD.Decimal,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, true
}
