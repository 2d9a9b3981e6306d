package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stocklinehq/stockline-backend/api/responses"
	"github.com/stocklinehq/stockline-backend/api/validators"
	"github.com/stocklinehq/stockline-backend/internal/reorder"
	"github.com/stocklinehq/stockline-backend/pkg/enums"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	"github.com/stocklinehq/stockline-backend/pkg/pagination"
)

// ManualReorder creates an audited trigger for one SKU and resolves it
// immediately, returning the outcome including the purchase order id.
func ManualReorder(svc *reorder.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input reorder.ManualReorderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.ManualReorder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, outcome)
	}
}

// ProcessPending drains the pending trigger queue once.
func ProcessPending(svc *reorder.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.ProcessPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProcessAutoReorder runs a full sweep: evaluate every enabled config,
// enqueue triggers, then drain the queue.
func ProcessAutoReorder(svc *reorder.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.ProcessAutoReorder(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UpdateReorderSettings upserts thresholds/automation for one SKU.
func UpdateReorderSettings(svc *reorder.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skuID, err := uuid.Parse(chi.URLParam(r, "skuID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sku id"))
			return
		}

		var input reorder.UpdateSettingsInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cfg, err := svc.UpdateSettings(r.Context(), skuID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

// ReorderHistory returns a cursor-paginated page of trigger history for one SKU.
func ReorderHistory(svc *reorder.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skuID, err := uuid.Parse(chi.URLParam(r, "skuID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sku id"))
			return
		}

		q := reorder.HistoryQuery{SKUID: skuID}

		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			q.Page.Limit = value
		}

		if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
			q.Page.Cursor = cursor
		}

		if statusStr := strings.TrimSpace(r.URL.Query().Get("status")); statusStr != "" {
			status := enums.TriggerStatus(statusStr)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			q.Status = &status
		}

		triggers, next, err := svc.History(r.Context(), q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := map[string]any{"triggers": triggers}
		if next != nil {
			resp["next_cursor"] = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, resp)
	}
}

// PendingTriggers lists queue contents in processing order.
func PendingTriggers(svc *reorder.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		triggers, err := svc.PendingTriggers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"triggers": triggers})
	}
}

// HasPendingReorder reports whether a SKU currently has a live trigger.
func HasPendingReorder(svc *reorder.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skuID, err := uuid.Parse(chi.URLParam(r, "skuID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sku id"))
			return
		}

		pending, err := svc.HasPending(r.Context(), skuID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"pending": pending})
	}
}

// ReorderStatistics serves the stock-position dashboard projection.
func ReorderStatistics(stats *reorder.StatsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := stats.Statistics(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
