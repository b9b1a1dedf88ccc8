package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/swiftdrop/driver-backend/api/responses"
	"github.com/swiftdrop/driver-backend/api/validators"
	"github.com/swiftdrop/driver-backend/internal/locations"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

const maxHistoryLimit = 500

type reportLocationsRequest struct {
	Samples []locations.SampleInput `json:"samples" validate:"required,min=1,max=100,dive"`
}

// ReportLocations ingests a batch of GPS fixes from the driver's device.
func ReportLocations(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "locations service unavailable"))
			return
		}

		driverID, err := driverFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body reportLocationsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Report(r.Context(), driverID, body.Samples)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// LocationHistory returns the caller's breadcrumb trail since a timestamp.
func LocationHistory(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "locations service unavailable"))
			return
		}

		driverID, err := driverFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		since := time.Time{}
		if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "since must be RFC 3339"))
				return
			}
			since = parsed
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxHistoryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.History(r.Context(), driverID, since, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"locations": history})
	}
}
