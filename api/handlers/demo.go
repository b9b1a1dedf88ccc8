package handlers

import (
	"net/http"

	"github.com/swiftdrop/driver-backend/api/responses"
	"github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

func DemoError(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		demoErr := errors.New(errors.CodeValidation, "missing demo payload").
			WithDetails(map[string]string{"field": "demo"})

		responses.WriteError(r.Context(), logg, w, demoErr)
	}
}
