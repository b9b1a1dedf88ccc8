package api

import (
	"net/http"

	"github.com/swiftdrop/driver-backend/api/handlers"
	"github.com/swiftdrop/driver-backend/api/middleware"
	"github.com/swiftdrop/driver-backend/pkg/config"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

// NewHandler returns the HTTP handler that cmd/api wires into its server.
func NewHandler(cfg *config.Config, logg *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Routes
	mux.HandleFunc("/healthz", handlers.Healthz(cfg, logg))
	mux.HandleFunc("/demo-error", handlers.DemoError(logg))

	// Middleware chain (outermost first)
	h := middleware.RequestID(logg)(mux)
	h = middleware.Logging(logg)(h)

	return h
}
