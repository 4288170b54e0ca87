package upstream

// Upstream endpoint paths. Each logical query lists its primary path first, then the variants
// tried when the primary answers 404.

const (
	// Chain indexer (esplora-style)
	addressStatsPath    = "/api/address/%s"
	addressStatsAltPath = "/api/v1/address/%s"
	addressUTXOPath     = "/api/address/%s/utxo"
	addressUTXOAltPath  = "/api/v1/address/%s/utxo"

	// Indexer
	indexerBalancePath    = "/v1/indexer/address/%s/balance"
	indexerBalanceAltPath = "/v1/indexer/address/%s/available-balance"
	historyPath           = "/v1/indexer/address/%s/history?cursor=%d&size=%d"
	historyAltPath        = "/v1/indexer/address/%s/txs?offset=%d&limit=%d"
	brc20SummaryPath      = "/v1/indexer/address/%s/brc20/summary?start=0&limit=%d"
	brc20SummaryAltPath   = "/v1/indexer/address/%s/brc20/balance-list?start=0&limit=%d"
	inscriptionPath       = "/v1/indexer/address/%s/inscription-data?cursor=0&size=1"
	inscriptionAltPath    = "/v1/indexer/address/%s/inscription-utxo-data?cursor=0&size=1"
	runesPath             = "/v1/indexer/address/%s/runes/balance-list?start=0&limit=1"
	runesAltPath          = "/v1/runes/address/%s/balance-list?start=0&limit=1"

	// AMM
	poolInfoPath      = "/v1/brc20-swap/pool_info?tick0=%s&tick1=%s"
	poolInfoAltPath   = "/v1/swap/pool_info?tick0=%s&tick1=%s"
	allBalancePath    = "/v1/brc20-swap/all_balance?address=%s"
	allBalanceAltPath = "/v1/swap/all_balance?address=%s"
	myPoolListPath    = "/v1/brc20-swap/my_pool_list?address=%s&start=0&limit=%d"
	myPoolListAltPath = "/v1/swap/my_pool_list?address=%s&start=0&limit=%d"

	// Price oracles
	exchangeTickerPath    = "/api/v3/ticker/price?symbol=%sUSDT"
	exchangeTickerAltPath = "/api/v3/ticker/24hr?symbol=%sUSDT"
	feePricesPath         = "/api/v1/prices"
	aggregatorPricePath   = "/api/v3/simple/price?ids=%s&vs_currencies=usd"
)

const (
	summaryPageSize  = 500
	poolListPageSize = 100
)
