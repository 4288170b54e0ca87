package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fractal-terminal/terminalx/pkg/asset"
	"github.com/fractal-terminal/terminalx/pkg/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	ep := DefaultEndpoints()
	ep.Chain = []string{server.URL}
	ep.Indexer = []string{server.URL}
	ep.AMM = []string{server.URL}
	ep.Exchange = []string{server.URL}
	ep.FeeAPI = []string{server.URL}
	ep.Aggregator = []string{server.URL}
	ep.IndexerAPIKey = "secret"
	ep.AMMAPIKey = "secret"
	ep.MaxRetries = 1

	caller := NewCaller(CallerOpts{Cache: cache.NewMemoryStore()})
	return NewClient(caller, ep, NewAliases("sFB___000"), nil)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestClient_ChainStats(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/address/bc1qtest", r.URL.Path)
		writeJSON(w, `{
			"address":"bc1qtest",
			"chain_stats":{"funded_txo_sum":200000000,"spent_txo_sum":50000000,"tx_count":40},
			"mempool_stats":{"funded_txo_sum":0,"spent_txo_sum":0,"tx_count":2}
		}`)
	}))

	stats, ok := client.ChainStats(context.Background(), "bc1qtest")
	require.True(t, ok)
	assert.Equal(t, int64(42), stats.TxCount)
	assert.Equal(t, int64(40), stats.ConfirmedTxCount)
	assert.Equal(t, int64(150_000_000), stats.BalanceSats)
}

func TestClient_ChainStatsFallsBackToAltPath(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/address/bc1qtest" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, `{"chain_stats":{"funded_txo_sum":10,"spent_txo_sum":0,"tx_count":1}}`)
	}))

	stats, ok := client.ChainStats(context.Background(), "bc1qtest")
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.TxCount)
	assert.Equal(t, int64(10), stats.BalanceSats)
}

func TestClient_UTXOCount(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[{"txid":"a","vout":0,"value":1},{"txid":"b","vout":1,"value":2}]`)
	}))

	n, ok := client.UTXOCount(context.Background(), "bc1qtest")
	require.True(t, ok)
	assert.Equal(t, int64(2), n)
}

func TestClient_AddressHistoryAt(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "41", r.URL.Query().Get("cursor"))
		assert.Equal(t, "1", r.URL.Query().Get("size"))
		writeJSON(w, `{"code":0,"msg":"ok","data":{"total":42,"detail":[{"txid":"abc","height":10,"blocktime":1730000000}]}}`)
	}))

	entry, ok := client.AddressHistoryAt(context.Background(), "bc1qtest", 41)
	require.True(t, ok)
	assert.Equal(t, "abc", entry.TxID)
	assert.Equal(t, int64(1730000000), entry.Timestamp)
}

func TestClient_AddressHistoryRejectsBadEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":-1,"msg":"address invalid","data":null}`)
	}))

	_, ok := client.AddressHistoryAt(context.Background(), "bc1qtest", 0)
	assert.False(t, ok)
}

func TestClient_ErrorEnvelopeIsNotCached(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			writeJSON(w, `{"code":-2003,"msg":"rate limited","data":null}`)
			return
		}
		writeJSON(w, `{"code":0,"msg":"ok","data":{"satoshi":1500,"utxoCount":2}}`)
	}))
	ctx := context.Background()

	_, ok := client.IndexerBalance(ctx, "bc1qtest")
	assert.False(t, ok)

	bal, ok := client.IndexerBalance(ctx, "bc1qtest")
	require.True(t, ok)
	assert.Equal(t, int64(1500), bal.Satoshi)
	assert.Equal(t, int32(2), hits.Load())

	bal, ok = client.IndexerBalance(ctx, "bc1qtest")
	require.True(t, ok)
	assert.Equal(t, int64(1500), bal.Satoshi)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_BRC20Summary(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":"ok","data":{"total":2,"detail":[
			{"ticker":"fennec","overallBalance":"12.5"},
			{"ticker":"sats","availableBalance":"3","transferableBalance":"2"}
		]}}`)
	}))

	balances, ok := client.BRC20Summary(context.Background(), "bc1qtest")
	require.True(t, ok)
	require.Len(t, balances, 2)
	assert.Equal(t, "FENNEC", balances[0].Ticker)
	assert.True(t, decimal.RequireFromString("12.5").Equal(balances[0].Amount))
	assert.Equal(t, CustodyWallet, balances[0].Custody)
	assert.Equal(t, asset.HintDecimal, balances[0].Hint)
	assert.Equal(t, "SATS", balances[1].Ticker)
	assert.True(t, decimal.NewFromInt(5).Equal(balances[1].Amount))
}

func TestClient_Counts(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/indexer/address/bc1qtest/inscription-data":
			writeJSON(w, `{"code":0,"data":{"total":7}}`)
		case "/v1/indexer/address/bc1qtest/runes/balance-list":
			writeJSON(w, `{"code":0,"data":{"total":3,"detail":[]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	ords, ok := client.InscriptionCount(context.Background(), "bc1qtest")
	require.True(t, ok)
	assert.Equal(t, int64(7), ords)

	runes, ok := client.RuneCount(context.Background(), "bc1qtest")
	require.True(t, ok)
	assert.Equal(t, int64(3), runes)
}

func TestClient_PoolReservesTriesReversedOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("tick0") == "FENNEC" {
			writeJSON(w, `{"code":0,"data":{"existed":false}}`)
			return
		}
		assert.Equal(t, "sFB___000", q.Get("tick0"))
		writeJSON(w, `{"code":0,"data":{"existed":true,"tick0":"sFB___000","tick1":"FENNEC","amount0":"500","amount1":"1000"}}`)
	}))

	pool, ok := client.PoolReserves(context.Background(), "FENNEC", "SFB")
	require.True(t, ok)
	require.True(t, pool.Exists)

	rToken, rBase, ok := pool.Oriented("FENNEC", "SFB")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(1000).Equal(rToken))
	assert.True(t, decimal.NewFromInt(500).Equal(rBase))
}

func TestClient_PoolReservesMissingPool(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"data":{"existed":false}}`)
	}))

	pool, ok := client.PoolReserves(context.Background(), "NOPE", "SFB")
	require.True(t, ok)
	assert.False(t, pool.Exists)
}

func TestClient_AllBalanceCustody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"data":{
			"sFB___000":{"balance":{"module":"0","swap":"150000000","pendingSwap":"0"}},
			"fennec":{"balance":{"swap":"10","pendingSwap":"2.5"}},
			"odd":{"total":"4"},
			"empty":{}
		}}`)
	}))

	balances, ok := client.AllBalance(context.Background(), "bc1qtest")
	require.True(t, ok)
	require.Len(t, balances, 3)

	byTicker := map[string]TokenBalance{}
	for _, b := range balances {
		byTicker[b.Ticker] = b
	}
	assert.Equal(t, CustodyAMM, byTicker["SFB"].Custody)
	assert.True(t, decimal.NewFromInt(150_000_000).Equal(byTicker["SFB"].Amount))
	assert.True(t, decimal.RequireFromString("12.5").Equal(byTicker["FENNEC"].Amount))
	assert.Equal(t, CustodyUnknown, byTicker["ODD"].Custody)
}

func TestClient_MyPoolList(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"data":{"total":1,"list":[{"tick0":"sFB___000","tick1":"fennec","lp":"10","shareOfPool":"0.01","amount0":"2","amount1":"4"}]}}`)
	}))

	positions, ok := client.MyPoolList(context.Background(), "bc1qtest")
	require.True(t, ok)
	require.Len(t, positions, 1)
	assert.Equal(t, "SFB", positions[0].Tick0)
	assert.Equal(t, "FENNEC", positions[0].Tick1)
	assert.True(t, decimal.NewFromInt(4).Equal(positions[0].Amount1))
}

func TestClient_SpotPrice(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/ticker/price":
			w.WriteHeader(http.StatusNotFound)
		case "/api/v3/ticker/24hr":
			assert.Equal(t, "FBUSDT", r.URL.Query().Get("symbol"))
			writeJSON(w, `{"symbol":"FBUSDT","lastPrice":"0.42"}`)
		case "/api/v1/prices":
			writeJSON(w, `{"time":1730000000,"USD":0.41}`)
		case "/api/v3/simple/price":
			writeJSON(w, `{"fractal-bitcoin":{"usd":0.4}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	ctx := context.Background()

	p, ok := client.SpotPrice(ctx, OracleExchange, "fb")
	require.True(t, ok)
	assert.Equal(t, "0.42", p.String())

	p, ok = client.SpotPrice(ctx, OracleFeeAPI, "FB")
	require.True(t, ok)
	assert.Equal(t, "0.41", p.String())

	_, ok = client.SpotPrice(ctx, OracleFeeAPI, "BTC")
	assert.False(t, ok)

	p, ok = client.SpotPrice(ctx, OracleAggregator, "FB")
	require.True(t, ok)
	assert.Equal(t, "0.4", p.String())

	_, ok = client.SpotPrice(ctx, OracleAggregator, "UNKNOWN")
	assert.False(t, ok)
}

func TestClient_SpotPriceRejectsZero(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"symbol":"FBUSDT","price":"0"}`)
	}))

	_, ok := client.SpotPrice(context.Background(), OracleExchange, "FB")
	assert.False(t, ok)
}

func TestAliases(t *testing.T) {
	a := NewAliases("sFB___000")
	assert.Equal(t, "sFB___000", a.Raw("SFB"))
	assert.Equal(t, "sFB___000", a.Raw("sfb"))
	assert.Equal(t, "FENNEC", a.Raw("FENNEC"))

	assert.Equal(t, "SBTC", a.Remember("sBTC___000"))
	assert.Equal(t, "sBTC___000", a.Raw("SBTC"))
}
