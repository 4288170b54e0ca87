package upstream

import (
	"strings"
	"time"

	"github.com/fractal-terminal/terminalx/pkg/utils"
)

// Provider names key the limiter, metrics and cache.
const (
	ProviderChain      = "chain"
	ProviderIndexer    = "indexer"
	ProviderAMM        = "amm"
	ProviderExchange   = "exchange"
	ProviderFeeAPI     = "feeapi"
	ProviderAggregator = "aggregator"
)

// TTLs are the memoization windows per query family.
type TTLs struct {
	Stats    time.Duration
	Balances time.Duration
	History  time.Duration
	Pools    time.Duration
	Prices   time.Duration
	Counts   time.Duration
}

// Endpoints holds base URLs (mirrors in priority order) and credentials per provider.
type Endpoints struct {
	Chain      []string
	Indexer    []string
	AMM        []string
	Exchange   []string
	FeeAPI     []string
	Aggregator []string

	IndexerAPIKey string
	AMMAPIKey     string

	// FeeAPISymbol is the only symbol the fee API can price.
	FeeAPISymbol string
	// AggregatorIDs maps a symbol to the aggregator's coin id.
	AggregatorIDs map[string]string
	// RawTickers are the AMM spellings of tickers the pipeline queries before any AMM answer
	// has taught them, e.g. the base and bridged assets.
	RawTickers []string

	// OracleTimeout bounds price lookups; DataTimeout bounds everything else.
	OracleTimeout time.Duration
	DataTimeout   time.Duration
	MaxRetries    int

	TTL TTLs
}

// DefaultEndpoints returns the public mainnet endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Chain:        []string{"https://mempool.fractalbitcoin.io"},
		Indexer:      []string{"https://open-api-fractal.unisat.io"},
		AMM:          []string{"https://open-api-fractal.unisat.io"},
		Exchange:     []string{"https://api.mexc.com"},
		FeeAPI:       []string{"https://mempool.fractalbitcoin.io"},
		Aggregator:   []string{"https://api.coingecko.com"},
		FeeAPISymbol: "FB",
		AggregatorIDs: map[string]string{
			"FB":  "fractal-bitcoin",
			"BTC": "bitcoin",
		},
		RawTickers:    []string{"sFB___000", "sBTC___000"},
		OracleTimeout: 3 * time.Second,
		DataTimeout:   8 * time.Second,
		MaxRetries:    3,
		TTL: TTLs{
			Stats:    15 * time.Second,
			Balances: 15 * time.Second,
			History:  10 * time.Minute,
			Pools:    10 * time.Second,
			Prices:   30 * time.Second,
			Counts:   60 * time.Second,
		},
	}
}

// EndpointsFromEnv overlays UPSTREAM_*_URLS, UPSTREAM_RAW_TICKERS, UNISAT_API_KEY and friends on the defaults.
func EndpointsFromEnv() Endpoints {
	ep := DefaultEndpoints()
	ep.Chain = trimBases(utils.EnvList("UPSTREAM_CHAIN_URLS", ep.Chain))
	ep.Indexer = trimBases(utils.EnvList("UPSTREAM_INDEXER_URLS", ep.Indexer))
	ep.AMM = trimBases(utils.EnvList("UPSTREAM_AMM_URLS", ep.AMM))
	ep.Exchange = trimBases(utils.EnvList("UPSTREAM_EXCHANGE_URLS", ep.Exchange))
	ep.FeeAPI = trimBases(utils.EnvList("UPSTREAM_FEEAPI_URLS", ep.FeeAPI))
	ep.Aggregator = trimBases(utils.EnvList("UPSTREAM_AGGREGATOR_URLS", ep.Aggregator))
	ep.RawTickers = utils.EnvList("UPSTREAM_RAW_TICKERS", ep.RawTickers)
	ep.IndexerAPIKey = utils.Env("UNISAT_API_KEY", "")
	ep.AMMAPIKey = utils.Env("AMM_API_KEY", ep.IndexerAPIKey)
	ep.OracleTimeout = utils.EnvDuration("UPSTREAM_ORACLE_TIMEOUT", ep.OracleTimeout)
	ep.DataTimeout = utils.EnvDuration("UPSTREAM_DATA_TIMEOUT", ep.DataTimeout)
	ep.MaxRetries = utils.EnvInt("RATE_LIMIT_MAX_RETRIES", ep.MaxRetries)
	return ep
}

func trimBases(in []string) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		out = append(out, strings.TrimRight(b, "/"))
	}
	return utils.Dedup(out)
}
