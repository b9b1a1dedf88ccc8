package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/swiftdrop/driver-backend/api/responses"
	"github.com/swiftdrop/driver-backend/api/validators"
	"github.com/swiftdrop/driver-backend/internal/deliveries"
	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/logger"
	"github.com/swiftdrop/driver-backend/pkg/pagination"
)

type declineRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type deliverRequest struct {
	ProofPhotoURL string  `json:"proof_photo_url" validate:"required,url"`
	RecipientName string  `json:"recipient_name" validate:"required,max=200"`
	DeliveryNotes *string `json:"delivery_notes,omitempty" validate:"omitempty,max=1000"`
}

// ListDeliveries returns the caller's deliveries, most recent first.
func ListDeliveries(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		driverID, err := driverFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters deliveries.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseDeliveryStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		page, err := svc.List(r.Context(), driverID, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// GetDelivery returns a single delivery owned by the caller.
func GetDelivery(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		driverID, deliveryID, err := deliveryScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.Get(r.Context(), driverID, deliveryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, delivery)
	}
}

// AcceptDelivery transitions an assigned delivery into the active state.
func AcceptDelivery(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, func(r *http.Request, driverID, deliveryID uuid.UUID) (*models.Delivery, error) {
		return svc.Accept(r.Context(), driverID, deliveryID)
	})
}

// DeclineDelivery rejects an assigned delivery, optionally with a reason.
func DeclineDelivery(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		driverID, deliveryID, err := deliveryScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body declineRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		delivery, err := svc.Decline(r.Context(), driverID, deliveryID, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, delivery)
	}
}

// ConfirmPickup marks the parcel as collected from the pickup point.
func ConfirmPickup(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, func(r *http.Request, driverID, deliveryID uuid.UUID) (*models.Delivery, error) {
		return svc.ConfirmPickup(r.Context(), driverID, deliveryID)
	})
}

// DepartDelivery marks the driver as en route to the drop-off.
func DepartDelivery(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, func(r *http.Request, driverID, deliveryID uuid.UUID) (*models.Delivery, error) {
		return svc.Depart(r.Context(), driverID, deliveryID)
	})
}

// CompleteDelivery records proof of delivery and finishes the job.
func CompleteDelivery(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		driverID, deliveryID, err := deliveryScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body deliverRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.Deliver(r.Context(), deliveries.DeliverInput{
			DriverID:      driverID,
			DeliveryID:    deliveryID,
			ProofPhotoURL: body.ProofPhotoURL,
			RecipientName: body.RecipientName,
			DeliveryNotes: body.DeliveryNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, delivery)
	}
}

// DeliveryWaypoint returns the coordinate the driver should head to next.
func DeliveryWaypoint(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		driverID, deliveryID, err := deliveryScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		waypoint, err := svc.Waypoint(r.Context(), driverID, deliveryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, waypoint)
	}
}

func deliveryScope(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	driverID, err := driverFromContext(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	deliveryID, err := pathID(r, "deliveryId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return driverID, deliveryID, nil
}

func transition(svc deliveries.Service, logg *logger.Logger, fn func(r *http.Request, driverID, deliveryID uuid.UUID) (*models.Delivery, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		driverID, deliveryID, err := deliveryScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := fn(r, driverID, deliveryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, delivery)
	}
}
