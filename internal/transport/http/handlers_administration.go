package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"medledger/internal/administration"
	"medledger/internal/platform/middleware"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/platform/httputil"
)

// DoseService is the slice of the administration log the HTTP layer uses.
type DoseService interface {
	Log(ctx context.Context, input administration.LogInput) (*administration.Event, error)
	List(ctx context.Context, programID id.ProgramID, filter administration.ListFilter) (*administration.Page, error)
}

type logAdministrationRequest struct {
	ResidentID  string `json:"resident_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Shift       string `json:"shift"`
	Action      string `json:"action"`
	WasLate     bool   `json:"was_late"`
	MinutesLate int    `json:"minutes_late"`
	Notes       string `json:"notes"`
}

func (h *handlers) handleLogAdministration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	medicationID, err := id.ParseMedicationID(chi.URLParam(r, "medicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req logAdministrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	residentID, err := id.ParseResidentID(req.ResidentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	shift, err := administration.ParseShift(req.Shift)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	action, err := administration.ParseAction(req.Action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	event, err := h.doses.Log(ctx, administration.LogInput{
		ResidentID:   residentID,
		MedicationID: medicationID,
		Date:         date,
		Time:         req.Time,
		Shift:        shift,
		Action:       action,
		WasLate:      req.WasLate,
		MinutesLate:  req.MinutesLate,
		Notes:        req.Notes,
		StaffID:      middleware.GetStaffID(r),
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to log administration")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *handlers) handleListAdministrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var filter administration.ListFilter
	q := r.URL.Query()
	if raw := q.Get("start"); raw != "" {
		if filter.Start, err = parseDate(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := q.Get("end"); raw != "" {
		if filter.End, err = parseDate(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := q.Get("shift"); raw != "" {
		if filter.Shift, err = administration.ParseShift(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := q.Get("action"); raw != "" {
		if filter.Action, err = administration.ParseAction(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	filter.Limit = queryInt(q.Get("limit"))
	filter.Offset = queryInt(q.Get("offset"))

	page, err := h.doses.List(ctx, programID, filter)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list administrations")
		return
	}
	if page.Events == nil {
		page.Events = []*administration.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// parseDate accepts a bare date or a full RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, dErrors.Newf(dErrors.CodeValidation, "invalid date %q", raw)
}

func queryInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
