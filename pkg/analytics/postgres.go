package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type pgStore interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
	Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error)
}

// PostgresSink keeps one leaderboard row per wallet plus an hourly net-worth sample.
type PostgresSink struct {
	db pgStore
}

func NewPostgresSink(db pgStore) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Name() string { return "postgres" }

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS wallet_leaderboard (
		address            TEXT PRIMARY KEY,
		net_worth_usd      NUMERIC(38, 12) NOT NULL DEFAULT 0,
		native_balance     NUMERIC(38, 8)  NOT NULL DEFAULT 0,
		lp_value_usd       NUMERIC(38, 12) NOT NULL DEFAULT 0,
		tx_count           BIGINT          NOT NULL DEFAULT 0,
		first_tx_timestamp BIGINT          NOT NULL DEFAULT 0,
		token_count        INTEGER         NOT NULL DEFAULT 0,
		first_referrer     TEXT            NOT NULL DEFAULT '',
		last_client_ip     TEXT            NOT NULL DEFAULT '',
		audit_count        BIGINT          NOT NULL DEFAULT 1,
		first_seen_at      TIMESTAMPTZ     NOT NULL,
		last_seen_at       TIMESTAMPTZ     NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS wallet_leaderboard_net_worth_idx ON wallet_leaderboard (net_worth_usd DESC)`,
	`CREATE TABLE IF NOT EXISTS wallet_samples (
		address        TEXT            NOT NULL,
		bucket         TIMESTAMPTZ     NOT NULL,
		net_worth_usd  NUMERIC(38, 12) NOT NULL,
		native_balance NUMERIC(38, 8)  NOT NULL,
		PRIMARY KEY (address, bucket)
	)`,
}

// InitSchema creates the leaderboard and sample tables if missing.
func (s *PostgresSink) InitSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init analytics schema: %w", err)
		}
	}
	return nil
}

// A degraded audit only bumps audit_count/last_seen_at so a partial snapshot never overwrites
// the last complete figures, and it writes no sample.
const upsertWalletSQL = `
WITH lb AS (
	INSERT INTO wallet_leaderboard (
		address, net_worth_usd, native_balance, lp_value_usd, tx_count, first_tx_timestamp,
		token_count, first_referrer, last_client_ip, audit_count, first_seen_at, last_seen_at
	)
	VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5, $6, $7, $8, $9, 1, $10, $10)
	ON CONFLICT (address) DO UPDATE SET
		net_worth_usd      = CASE WHEN $11::boolean THEN EXCLUDED.net_worth_usd ELSE wallet_leaderboard.net_worth_usd END,
		native_balance     = CASE WHEN $11::boolean THEN EXCLUDED.native_balance ELSE wallet_leaderboard.native_balance END,
		lp_value_usd       = CASE WHEN $11::boolean THEN EXCLUDED.lp_value_usd ELSE wallet_leaderboard.lp_value_usd END,
		tx_count           = GREATEST(wallet_leaderboard.tx_count, EXCLUDED.tx_count),
		first_tx_timestamp = CASE
			WHEN wallet_leaderboard.first_tx_timestamp = 0 THEN EXCLUDED.first_tx_timestamp
			WHEN EXCLUDED.first_tx_timestamp = 0 THEN wallet_leaderboard.first_tx_timestamp
			ELSE LEAST(wallet_leaderboard.first_tx_timestamp, EXCLUDED.first_tx_timestamp)
		END,
		token_count        = CASE WHEN $11::boolean THEN EXCLUDED.token_count ELSE wallet_leaderboard.token_count END,
		first_referrer     = CASE WHEN wallet_leaderboard.first_referrer = '' THEN EXCLUDED.first_referrer ELSE wallet_leaderboard.first_referrer END,
		last_client_ip     = EXCLUDED.last_client_ip,
		audit_count        = wallet_leaderboard.audit_count + 1,
		last_seen_at       = EXCLUDED.last_seen_at
	RETURNING address
)
INSERT INTO wallet_samples (address, bucket, net_worth_usd, native_balance)
SELECT address, $12, $2::numeric, $3::numeric FROM lb WHERE $11::boolean
ON CONFLICT (address, bucket) DO UPDATE SET
	net_worth_usd  = EXCLUDED.net_worth_usd,
	native_balance = EXCLUDED.native_balance`

func (s *PostgresSink) Record(ctx context.Context, row Row) error {
	err := s.db.Exec(ctx, upsertWalletSQL,
		row.Address,
		row.NetWorthUSD.String(),
		row.NativeBalance.String(),
		row.LPValueUSD.String(),
		row.TxCount,
		row.FirstTxTimestamp,
		row.TokenCount,
		row.Referrer,
		row.ClientIP,
		row.RecordedAt,
		row.Complete(),
		sampleBucket(row.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert wallet %s: %w", row.Address, err)
	}
	return nil
}

func sampleBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// LeaderboardEntry is one ranked wallet.
type LeaderboardEntry struct {
	Rank             int             `json:"rank"`
	Address          string          `json:"address"`
	NetWorthUSD      decimal.Decimal `json:"netWorthUsd"`
	NativeBalance    decimal.Decimal `json:"nativeBalance"`
	LPValueUSD       decimal.Decimal `json:"lpValueUsd"`
	TxCount          int64           `json:"txCount"`
	FirstTxTimestamp int64           `json:"firstTxTimestamp"`
	TokenCount       int             `json:"tokenCount"`
	Audits           int64           `json:"audits"`
	LastSeenAt       int64           `json:"lastSeenAt"`
}

const leaderboardSQL = `
SELECT address, net_worth_usd::text, native_balance::text, lp_value_usd::text,
       tx_count, first_tx_timestamp, token_count, audit_count, last_seen_at
FROM wallet_leaderboard
ORDER BY net_worth_usd DESC, address
LIMIT $1`

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 500
)

// ClampLimit bounds a requested leaderboard size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

// Leaderboard returns the wallets with the highest recorded net worth.
func (s *PostgresSink) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	limit = ClampLimit(limit)
	rows, err := s.db.Query(ctx, leaderboardSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]LeaderboardEntry, 0, limit)
	for rows.Next() {
		var (
			e                         LeaderboardEntry
			netWorth, native, lpValue string
			lastSeen                  time.Time
		)
		if err := rows.Scan(&e.Address, &netWorth, &native, &lpValue,
			&e.TxCount, &e.FirstTxTimestamp, &e.TokenCount, &e.Audits, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		if e.NetWorthUSD, err = decimal.NewFromString(netWorth); err != nil {
			return nil, fmt.Errorf("parse net worth for %s: %w", e.Address, err)
		}
		if e.NativeBalance, err = decimal.NewFromString(native); err != nil {
			return nil, fmt.Errorf("parse native balance for %s: %w", e.Address, err)
		}
		if e.LPValueUSD, err = decimal.NewFromString(lpValue); err != nil {
			return nil, fmt.Errorf("parse lp value for %s: %w", e.Address, err)
		}
		e.LastSeenAt = lastSeen.Unix()
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return out, nil
}
