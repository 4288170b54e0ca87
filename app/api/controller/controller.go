package controller

import (
	"encoding/json"
	"net/http"

	"github.com/fractal-terminal/terminalx/app/api/types"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/", c.HandleAction).Methods("GET", "HEAD")

	return r, nil
}

// HandleAction dispatches GET /?action=<name>.
func (c *Controller) HandleAction(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "audit":
		c.HandleAudit(w, r)
	case "price":
		c.HandlePrice(w, r)
	case "quote":
		c.HandleQuote(w, r)
	case "leaderboard":
		c.HandleLeaderboard(w, r)
	case "":
		writeError(w, http.StatusBadRequest, "missing action")
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

type dataResponse struct {
	Code int `json:"code"`
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dataResponse{Code: 0, Data: data})
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
