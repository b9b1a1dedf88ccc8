package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/swiftdrop/driver-backend/api/responses"
	"github.com/swiftdrop/driver-backend/internal/proofs"
	"github.com/swiftdrop/driver-backend/pkg/config"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

const (
	proofKindDelivery = "delivery"
	proofKindProfile  = "profile"
)

// UploadProofPhoto accepts a multipart photo and stores it in the bucket that
// matches its kind. Delivery proofs need a delivery_id field; profile images
// attach to the caller.
func UploadProofPhoto(svc proofs.Service, cfg config.GCSConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "proofs service unavailable"))
			return
		}

		driverID, err := driverFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		maxBytes := int64(cfg.MaxUploadMB) * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1024)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart payload"))
			return
		}

		file, header, err := r.FormFile("photo")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "photo file required"))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read photo"))
			return
		}

		input := proofs.UploadInput{
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
			LocalRef:    strings.TrimSpace(r.FormValue("local_ref")),
		}

		kind := strings.TrimSpace(r.FormValue("kind"))
		if kind == "" {
			kind = proofKindDelivery
		}

		var result *proofs.UploadResult
		switch kind {
		case proofKindDelivery:
			deliveryID, err := uuid.Parse(strings.TrimSpace(r.FormValue("delivery_id")))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery_id"))
				return
			}
			input.OwnerID = deliveryID
			result, err = svc.UploadProof(r.Context(), input)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		case proofKindProfile:
			input.OwnerID = driverID
			result, err = svc.UploadProfileImage(r.Context(), input)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid kind"))
			return
		}

		responses.WriteSuccess(w, result)
	}
}
