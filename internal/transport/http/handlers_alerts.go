package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"medledger/internal/alerts"
	"medledger/internal/platform/middleware"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/platform/httputil"
)

// AlertService is the slice of the alert generator the HTTP layer uses.
type AlertService interface {
	ListActive(ctx context.Context, programID id.ProgramID, filter alerts.ListFilter) ([]*alerts.Alert, error)
	Resolve(ctx context.Context, alertID id.AlertID, staffID id.StaffID) (*alerts.Alert, error)
}

func (h *handlers) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var filter alerts.ListFilter
	q := r.URL.Query()
	if raw := q.Get("severity"); raw != "" {
		if filter.Severity, err = alerts.ParseSeverity(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := q.Get("resident_id"); raw != "" {
		if filter.ResidentID, err = id.ParseResidentID(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "invalid since timestamp %q", raw))
			return
		}
		filter.Since = since
	}

	active, err := h.alerts.ListActive(ctx, programID, filter)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list active alerts")
		return
	}
	if active == nil {
		active = []*alerts.Alert{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"alerts": active})
}

func (h *handlers) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	alertID, err := id.ParseAlertID(chi.URLParam(r, "alertID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	alert, err := h.alerts.Resolve(ctx, alertID, middleware.GetStaffID(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to resolve alert")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, alert)
}
