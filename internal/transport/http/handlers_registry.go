package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medledger/internal/platform/middleware"
	"medledger/internal/registry"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/platform/httputil"
)

// RegistryService is the slice of the medication registry the HTTP layer uses.
type RegistryService interface {
	Create(ctx context.Context, programID id.ProgramID, input registry.CreateInput) (*registry.MedicationRecord, error)
	ListByProgram(ctx context.Context, programID id.ProgramID) ([]*registry.MedicationRecord, error)
	ListByResident(ctx context.Context, residentID id.ResidentID) ([]*registry.MedicationRecord, error)
}

type createMedicationRequest struct {
	ResidentID    string `json:"resident_id"`
	Name          string `json:"name"`
	Dosage        string `json:"dosage"`
	Frequency     string `json:"frequency"`
	HandlingClass string `json:"handling_class"`
	InitialCount  int    `json:"initial_count"`
	Prescriber    string `json:"prescriber"`
}

func (h *handlers) handleCreateMedication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req createMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	residentID, err := id.ParseResidentID(req.ResidentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	class, err := registry.ParseHandlingClass(req.HandlingClass)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.registry.Create(ctx, programID, registry.CreateInput{
		ResidentID:    residentID,
		Name:          req.Name,
		Dosage:        req.Dosage,
		Frequency:     req.Frequency,
		HandlingClass: class,
		InitialCount:  req.InitialCount,
		Prescriber:    req.Prescriber,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create medication")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *handlers) handleListMedications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	programID, err := id.ParseProgramID(chi.URLParam(r, "programID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var records []*registry.MedicationRecord
	if raw := r.URL.Query().Get("resident_id"); raw != "" {
		residentID, err := id.ParseResidentID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		records, err = h.registry.ListByResident(ctx, residentID)
		if err != nil {
			h.writeServiceError(ctx, w, err, "failed to list medications")
			return
		}
	} else {
		records, err = h.registry.ListByProgram(ctx, programID)
		if err != nil {
			h.writeServiceError(ctx, w, err, "failed to list medications")
			return
		}
	}
	if records == nil {
		records = []*registry.MedicationRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"medications": records})
}

// writeServiceError logs and surfaces a service failure. Client-correctable
// errors log at warn; internal ones at error with the wrapped cause.
func (h *handlers) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
