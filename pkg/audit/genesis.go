package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// millisThreshold: timestamps above it are milliseconds, not seconds.
const millisThreshold = 1_000_000_000_000

// ValidateTimestamp returns ts in unix seconds if it lies in [launch, now], else 0. An
// implausible upstream timestamp is treated as unknown, never replaced by now.
func ValidateTimestamp(ts int64, now, launch time.Time) int64 {
	if ts <= 0 {
		return 0
	}
	if ts > millisThreshold {
		ts /= 1000
	}
	if ts > now.Unix() {
		return 0
	}
	if !launch.IsZero() && ts < launch.Unix() {
		return 0
	}
	return ts
}

// resolveGenesis finds the first transaction of address. History is newest first, so the
// oldest transaction sits at offset confirmed-1. When confirmed is unknown, or that offset comes
// back empty, the indexer's own total is used. It returns the timestamp (0 when undeterminable)
// and the tx count it relied on.
func (a *Aggregator) resolveGenesis(ctx context.Context, address string, confirmed int64, degraded *degradation) (int64, int64) {
	if confirmed > 0 {
		if entry, ok := a.src.AddressHistoryAt(ctx, address, confirmed-1); ok {
			return a.validate(address, entry.Timestamp), confirmed
		}
	}

	page, ok := a.src.AddressHistory(ctx, address, 0, 1)
	if !ok {
		degraded.add("history")
		return 0, confirmed
	}
	total := page.Total
	switch {
	case total <= 0:
		if confirmed > 0 {
			degraded.add("history")
		}
		return 0, confirmed
	case total == 1 && len(page.Entries) == 1:
		return a.validate(address, page.Entries[0].Timestamp), total
	case total == confirmed:
		degraded.add("history")
		return 0, total
	}

	entry, ok := a.src.AddressHistoryAt(ctx, address, total-1)
	if !ok {
		degraded.add("history")
		return 0, total
	}
	return a.validate(address, entry.Timestamp), total
}

func (a *Aggregator) validate(address string, ts int64) int64 {
	valid := ValidateTimestamp(ts, a.now(), a.cfg.NetworkLaunch)
	if valid == 0 && ts != 0 {
		a.logger.Debug("discarding implausible first transaction timestamp",
			zap.String("address", address),
			zap.Int64("timestamp", ts))
	}
	return valid
}
