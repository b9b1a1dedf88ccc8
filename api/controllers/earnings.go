package controllers

import (
	"net/http"
	"strings"

	"github.com/swiftdrop/driver-backend/api/responses"
	"github.com/swiftdrop/driver-backend/api/validators"
	"github.com/swiftdrop/driver-backend/internal/earnings"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/logger"
	"github.com/swiftdrop/driver-backend/pkg/pagination"
)

// ListEarnings returns the caller's payout ledger, most recent first.
func ListEarnings(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}

		driverID, err := driverFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
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

		page, err := svc.List(r.Context(), driverID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// EarningsSummary returns aggregated totals. A period query narrows the
// response to that window's total.
func EarningsSummary(svc earnings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}

		driverID, err := driverFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("period")); raw != "" {
			period := earnings.Period(raw)
			switch period {
			case earnings.PeriodToday, earnings.PeriodWeek, earnings.PeriodMonth, earnings.PeriodAll:
			default:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid period"))
				return
			}

			total, err := svc.PeriodTotal(r.Context(), driverID, period)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			responses.WriteSuccess(w, map[string]any{
				"period": period,
				"total":  total,
			})
			return
		}

		summary, err := svc.Summary(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
