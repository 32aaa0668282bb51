// Package administration is the append-only dose log. Events are immutable
// once created; corrections are modeled as new events, and this is the only
// module permitted to decrement registry counts outside of audit approval.
package administration

import (
	"time"

	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
)

// Action is the outcome of one scheduled dose.
type Action string

const (
	ActionAdministered Action = "ADMINISTERED"
	ActionRefused      Action = "REFUSED"
	ActionLate         Action = "LATE"
	ActionMissed       Action = "MISSED"
	ActionHeld         Action = "HELD"
)

// IsValid checks the action is one of the supported enum values.
func (a Action) IsValid() bool {
	switch a {
	case ActionAdministered, ActionRefused, ActionLate, ActionMissed, ActionHeld:
		return true
	}
	return false
}

// ParseAction validates an action from the wire.
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if !a.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid action %q", raw)
	}
	return a, nil
}

// Shift names the staffing shift a dose belongs to.
type Shift string

const (
	ShiftMorning   Shift = "MORNING"
	ShiftAfternoon Shift = "AFTERNOON"
	ShiftNight     Shift = "NIGHT"
)

// IsValid checks the shift is one of the supported enum values.
func (s Shift) IsValid() bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftNight:
		return true
	}
	return false
}

// ParseShift validates a shift from the wire.
func ParseShift(raw string) (Shift, error) {
	s := Shift(raw)
	if !s.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid shift %q", raw)
	}
	return s, nil
}

// Event is one immutable dose record. ResidentName and StaffName are
// write-time projections from the directory for display; the IDs remain the
// source of identity.
type Event struct {
	ID           id.AdministrationID `json:"id"`
	ProgramID    id.ProgramID        `json:"program_id"`
	ResidentID   id.ResidentID       `json:"resident_id"`
	ResidentName string              `json:"resident_name"`
	MedicationID id.MedicationID     `json:"medication_record_id"`
	Medication   string              `json:"medication_name"`
	Date         time.Time           `json:"date"`
	Time         string              `json:"time"`
	Shift        Shift               `json:"shift"`
	Action       Action              `json:"action"`
	WasLate      bool                `json:"was_late"`
	MinutesLate  int                 `json:"minutes_late,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	StaffID      id.StaffID          `json:"staff_id"`
	StaffName    string              `json:"staff_name"`
	CreatedAt    time.Time           `json:"created_at"`
}

// LogInput carries everything needed to log one dose event.
type LogInput struct {
	ResidentID   id.ResidentID
	MedicationID id.MedicationID
	Date         time.Time
	Time         string
	Shift        Shift
	Action       Action
	WasLate      bool
	MinutesLate  int
	Notes        string
	StaffID      id.StaffID
}

// Validate enforces required fields before any lookup or write.
func (in LogInput) Validate() error {
	if in.ResidentID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "resident_id is required")
	}
	if in.MedicationID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "medication_id is required")
	}
	if in.StaffID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "staff_id is required")
	}
	if in.Date.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "date is required")
	}
	if !in.Shift.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid shift %q", in.Shift)
	}
	if !in.Action.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid action %q", in.Action)
	}
	if in.MinutesLate < 0 {
		return dErrors.New(dErrors.CodeValidation, "minutes_late must not be negative")
	}
	return nil
}

// ListFilter narrows event queries. Zero values disable each criterion.
type ListFilter struct {
	Start  time.Time
	End    time.Time
	Shift  Shift
	Action Action
	Limit  int
	Offset int
}

// DefaultPageSize bounds unpaginated event queries.
const DefaultPageSize = 50

// Page is one page of events plus the total match count.
type Page struct {
	Events []*Event `json:"events"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}
