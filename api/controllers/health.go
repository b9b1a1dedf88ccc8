package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/swiftdrop/driver-backend/api/responses"
	"github.com/swiftdrop/driver-backend/pkg/config"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SwiftDrop-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every wired dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache, storage pinger) http.HandlerFunc {
	checks := []struct {
		name   string
		target pinger
	}{
		{"database", db},
		{"redis", cache},
		{"storage", storage},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SwiftDrop-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := make(map[string]string, len(checks))
		for _, check := range checks {
			if check.target == nil {
				status[check.name] = "skipped"
				continue
			}
			if err := check.target.Ping(ctx); err != nil {
				if logg != nil {
					logg.Error(r.Context(), "readiness check failed", err)
				}
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.name+" unavailable")
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			status[check.name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": status})
	}
}
