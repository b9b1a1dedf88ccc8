package controllers

import (
	"net/http"
	"strings"

	"github.com/swiftdrop/driver-backend/api/responses"
	"github.com/swiftdrop/driver-backend/api/validators"
	"github.com/swiftdrop/driver-backend/internal/auth"
	"github.com/swiftdrop/driver-backend/internal/drivers"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

type presenceRequest struct {
	Status string `json:"status" validate:"required"`
}

// DriverProfile returns the authenticated driver's profile.
func DriverProfile(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}

		driverID, err := driverFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		driver, err := svc.Profile(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, auth.FromModel(driver))
	}
}

// DriverUpdateProfile applies partial edits to the caller's profile.
func DriverUpdateProfile(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}

		driverID, err := driverFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body drivers.UpdateProfileInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		driver, err := svc.UpdateProfile(r.Context(), driverID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, auth.FromModel(driver))
	}
}

// DriverSetPresence flips the caller online or offline.
func DriverSetPresence(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}

		driverID, err := driverFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body presenceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParsePresenceStatus(strings.TrimSpace(body.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid presence status"))
			return
		}

		driver, err := svc.SetPresence(r.Context(), driverID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, auth.FromModel(driver))
	}
}
