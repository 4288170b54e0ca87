package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

type esploraStats struct {
	FundedTxoCount int64 `json:"funded_txo_count"`
	FundedTxoSum   int64 `json:"funded_txo_sum"`
	SpentTxoCount  int64 `json:"spent_txo_count"`
	SpentTxoSum    int64 `json:"spent_txo_sum"`
	TxCount        int64 `json:"tx_count"`
}

type esploraAddress struct {
	Address      string       `json:"address"`
	ChainStats   esploraStats `json:"chain_stats"`
	MempoolStats esploraStats `json:"mempool_stats"`
}

// ChainStats returns tx count and balance for address, pending mempool activity included.
func (c *Client) ChainStats(ctx context.Context, address string) (ChainStats, bool) {
	addr := url.PathEscape(address)
	res := c.caller.WithEndpointFallback(ctx, ProviderChain,
		candidates(c.ep.Chain,
			fmt.Sprintf(addressStatsPath, addr),
			fmt.Sprintf(addressStatsAltPath, addr),
		),
		c.dataOpts("chain:stats:"+address, c.ep.TTL.Stats, false),
	)
	raw, ok := DecodeJSON[esploraAddress](res)
	if !ok {
		return ChainStats{}, false
	}
	funded := raw.ChainStats.FundedTxoSum + raw.MempoolStats.FundedTxoSum
	spent := raw.ChainStats.SpentTxoSum + raw.MempoolStats.SpentTxoSum
	balance := funded - spent
	if balance < 0 {
		balance = 0
	}
	return ChainStats{
		TxCount:          raw.ChainStats.TxCount + raw.MempoolStats.TxCount,
		ConfirmedTxCount: raw.ChainStats.TxCount,
		FundedSats:       funded,
		SpentSats:        spent,
		BalanceSats:      balance,
	}, true
}

// UTXOCount returns the number of unspent outputs held by address.
func (c *Client) UTXOCount(ctx context.Context, address string) (int64, bool) {
	addr := url.PathEscape(address)
	res := c.caller.WithEndpointFallback(ctx, ProviderChain,
		candidates(c.ep.Chain,
			fmt.Sprintf(addressUTXOPath, addr),
			fmt.Sprintf(addressUTXOAltPath, addr),
		),
		c.dataOpts("chain:utxo:"+address, c.ep.TTL.Counts, false),
	)
	utxos, ok := DecodeJSON[[]json.RawMessage](res)
	if !ok {
		return 0, false
	}
	return int64(len(utxos)), true
}
