package audit

import (
	"time"

	"github.com/fractal-terminal/terminalx/pkg/upstream"
	"github.com/fractal-terminal/terminalx/pkg/utils"
	"github.com/shopspring/decimal"
)

// Config holds the network constants and tuning of the audit pipeline.
type Config struct {
	// BaseTicker is the AMM ticker of the base asset and BaseSymbol its oracle symbol.
	BaseTicker string
	BaseSymbol string
	// BridgedTicker/BridgedSymbol name the bridged asset used for the pool-derived base price.
	BridgedTicker string
	BridgedSymbol string
	// AlwaysPresent tickers are kept in tokenBalances even at zero.
	AlwaysPresent []string
	// OracleOrder is the priority order for base-asset spot prices.
	OracleOrder []upstream.Oracle
	// FallbackBaseUSD is the last-resort base price, always flagged when used.
	FallbackBaseUSD decimal.Decimal
	// NetworkLaunch bounds the oldest valid transaction timestamp.
	NetworkLaunch time.Time

	Workers   int
	QueueSize int
}

// DefaultConfig returns the mainnet settings.
func DefaultConfig() Config {
	return Config{
		BaseTicker:    "SFB",
		BaseSymbol:    "FB",
		BridgedTicker: "SBTC",
		BridgedSymbol: "BTC",
		AlwaysPresent: []string{"SFB", "FENNEC"},
		OracleOrder: []upstream.Oracle{
			upstream.OracleExchange,
			upstream.OracleFeeAPI,
			upstream.OracleAggregator,
		},
		FallbackBaseUSD: decimal.RequireFromString("0.5"),
		NetworkLaunch:   time.Unix(1725840000, 0).UTC(),
		Workers:         32,
		QueueSize:       1024,
	}
}

// ConfigFromEnv overlays BASE_PRICE_FALLBACK_USD, NETWORK_LAUNCH_UNIX and AUDIT_WORKERS on the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := utils.Env("BASE_PRICE_FALLBACK_USD", ""); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && d.IsPositive() {
			cfg.FallbackBaseUSD = d
		}
	}
	cfg.NetworkLaunch = time.Unix(utils.EnvInt64("NETWORK_LAUNCH_UNIX", cfg.NetworkLaunch.Unix()), 0).UTC()
	cfg.Workers = utils.EnvInt("AUDIT_WORKERS", cfg.Workers)
	cfg.QueueSize = utils.EnvInt("AUDIT_QUEUE_SIZE", cfg.QueueSize)
	return cfg
}
