package types

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fractal-terminal/terminalx/pkg/amm"
	"github.com/fractal-terminal/terminalx/pkg/analytics"
	"github.com/fractal-terminal/terminalx/pkg/audit"
	"github.com/fractal-terminal/terminalx/pkg/cache"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Auditor builds wallet snapshots.
type Auditor interface {
	Audit(ctx context.Context, req audit.AuditRequest) (*audit.WalletSnapshot, error)
}

// PriceService resolves prices and swap quotes.
type PriceService interface {
	ResolveBaseAssetUSD(ctx context.Context) audit.BaseQuote
	ResolveTokenPrices(ctx context.Context, tickers []string) (audit.TokenPrices, error)
	Quote(ctx context.Context, tickIn, tickOut string, amount decimal.Decimal, exactOut bool) (amm.Quote, error)
}

// LeaderboardReader reads ranked wallets from the analytics store.
type LeaderboardReader interface {
	Leaderboard(ctx context.Context, limit int) ([]analytics.LeaderboardEntry, error)
}

// Pinger is a dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Auditor Auditor
	Prices  PriceService
	// Leaderboard is nil when the Postgres analytics sink is disabled.
	Leaderboard LeaderboardReader
	// Cache backs the audit edge cache.
	Cache        cache.Store
	EdgeCacheTTL time.Duration
	// Dependencies probed by /health, keyed by name.
	Dependencies map[string]Pinger

	// Cron warms the base price on CronSpec.
	Cron     *cron.Cron
	CronSpec string

	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server

	closers []func()
}

// OnShutdown registers fn to run after the server stops, in reverse registration order.
func (a *App) OnShutdown(fn func()) {
	a.closers = append(a.closers, fn)
}

// Start serves until ctx is done, then shuts down gracefully.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("server stopped", zap.Error(err))
		}
	}()
	if a.Cron != nil {
		a.Cron.Start()
		a.Logger.Info("price warmer started", zap.String("cronSpec", a.CronSpec))
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.Logger.Info("shutting down…")
	_ = a.Server.Shutdown(shutdownCtx)
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
