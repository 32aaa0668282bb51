package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medledger/internal/administration"
	"medledger/internal/medaudit"
	"medledger/internal/platform/middleware"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/platform/httputil"
)

// AuditService is the slice of the audit engine the HTTP layer uses.
type AuditService interface {
	OpenSession(ctx context.Context, programID id.ProgramID, input medaudit.OpenInput) (*medaudit.AuditSession, error)
	Decide(ctx context.Context, sessionID id.AuditSessionID, input medaudit.DecideInput) (*medaudit.AuditSession, error)
	GetPending(ctx context.Context, programID id.ProgramID) ([]*medaudit.AuditSession, error)
}

type auditLineRequest struct {
	MedicationID  string `json:"medication_record_id"`
	ObservedCount int    `json:"observed_count"`
	Notes         string `json:"notes"`
}

type openAuditSessionRequest struct {
	Date  string             `json:"date"`
	Time  string             `json:"time"`
	Shift string             `json:"shift"`
	Notes string             `json:"notes"`
	Lines []auditLineRequest `json:"lines"`
}

func (h *handlers) handleOpenAuditSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req openAuditSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	shift, err := administration.ParseShift(req.Shift)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	lines := make([]medaudit.LineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		medicationID, err := id.ParseMedicationID(line.MedicationID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		lines = append(lines, medaudit.LineInput{
			MedicationID:  medicationID,
			ObservedCount: line.ObservedCount,
			Notes:         line.Notes,
		})
	}

	session, err := h.audits.OpenSession(ctx, programID, medaudit.OpenInput{
		Date:    date,
		Time:    req.Time,
		Shift:   shift,
		StaffID: middleware.GetStaffID(r),
		Notes:   req.Notes,
		Lines:   lines,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to open audit session")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, session)
}

type decideAuditSessionRequest struct {
	Channel string `json:"channel"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`
}

func (h *handlers) handleDecideAuditSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, err := id.ParseAuditSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req decideAuditSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	channel, err := medaudit.ParseChannel(req.Channel)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	decision, err := medaudit.ParseDecision(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.audits.Decide(ctx, sessionID, medaudit.DecideInput{
		Channel:  channel,
		Decision: decision,
		StaffID:  middleware.GetStaffID(r),
		Notes:    req.Notes,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to decide audit session")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *handlers) handlePendingAuditSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sessions, err := h.audits.GetPending(ctx, programID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list pending audit sessions")
		return
	}
	if sessions == nil {
		sessions = []*medaudit.AuditSession{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}
