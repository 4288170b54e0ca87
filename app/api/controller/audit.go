package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fractal-terminal/terminalx/pkg/audit"
	"go.uber.org/zap"
)

const auditCachePrefix = "audit:"

// HandleAudit returns the wallet snapshot for ?address=. Complete snapshots are memoized in
// the edge cache; clients are always told not to store them.
// GET /?action=audit&address=<addr>[&refresh=1]
func (c *Controller) HandleAudit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	qs := r.URL.Query()
	address, err := audit.NormalizeAddress(qs.Get("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	key := auditCachePrefix + address
	useCache := c.App.Cache != nil && c.App.EdgeCacheTTL > 0
	if useCache && qs.Get("refresh") != "1" {
		if body, ok := c.App.Cache.Get(ctx, key); ok {
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}
	}

	snap, err := c.App.Auditor.Audit(ctx, audit.AuditRequest{
		Address:   address,
		ClientIP:  clientIP(r),
		Referrer:  r.Referer(),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		c.writeAuditError(w, r, address, err)
		return
	}

	body, err := json.Marshal(dataResponse{Code: 0, Data: snap})
	if err != nil {
		c.App.Logger.Error("encode snapshot", zap.String("address", address), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "encode failed")
		return
	}
	body = append(body, '\n')

	if useCache && len(snap.Degraded) == 0 {
		c.App.Cache.Set(ctx, key, body, c.App.EdgeCacheTTL)
	}

	w.Header().Set("X-Cache", "MISS")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (c *Controller) writeAuditError(w http.ResponseWriter, r *http.Request, address string, err error) {
	if errors.Is(err, audit.ErrInvalidAddress) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload := map[string]string{"error": err.Error()}
	var internal *audit.InternalError
	if errors.As(err, &internal) {
		payload["stack"] = internal.Stack
	}
	c.App.Logger.Warn("audit request failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("address", address),
		zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, payload)
}
