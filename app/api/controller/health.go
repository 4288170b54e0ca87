package controller

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// HandleHealth pings every registered dependency.
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(c.App.Dependencies))
	for name := range c.App.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := c.App.Dependencies[name].Ping(ctx); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"status": "errored",
				"error":  name + " connection error",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
