package controller

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// HandleLeaderboard returns wallets ranked by last recorded net worth.
// GET /?action=leaderboard[&limit=<n>]
func (c *Controller) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if c.App.Leaderboard == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"code": 1, "error": "leaderboard unavailable"})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := c.App.Leaderboard.Leaderboard(r.Context(), limit)
	if err != nil {
		c.App.Logger.Warn("leaderboard query failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "leaderboard query failed")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeData(w, entries)
}
