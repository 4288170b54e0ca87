package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fractal-terminal/terminalx/app/api/controller"
	"github.com/fractal-terminal/terminalx/app/api/types"
	"github.com/fractal-terminal/terminalx/pkg/utils"
)

// NewServer builds the HTTP server and its middleware chain.
func NewServer(app *types.App) error {
	handler, err := NewHandler(app)
	if err != nil {
		return err
	}

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3001")

	app.Server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// An audit fans out to many slow upstreams.
		WriteTimeout: utils.EnvDuration("HTTP_WRITE_TIMEOUT", 90*time.Second),
	}
	app.Logger.Info("Starting server", zap.String("addr", addr))

	return nil
}

// NewHandler returns the routed handler wrapped in the middleware chain.
func NewHandler(app *types.App) (http.Handler, error) {
	ctler := controller.NewController(app)
	router, err := ctler.NewRouter()
	if err != nil {
		return nil, err
	}

	var h http.Handler = router
	h = controller.WithCORS(h)
	h = controller.WithNoStoreForWrites(h)
	h = controller.WithRecovery(app.Logger, h)
	h = controller.WithRequestID(app.Logger, h)
	return h, nil
}
