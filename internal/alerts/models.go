// Package alerts derives acknowledgeable notifications from administration
// and audit events: refused or missed doses, low inventory, count
// discrepancies. Alerts are short-lived; they are raised by rule evaluation
// and mutated only by an explicit resolve.
package alerts

import (
	"time"

	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
)

// Severity ranks how urgently staff must act on an alert.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// IsValid checks the severity is one of the supported enum values.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// ParseSeverity validates a severity from the wire.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(raw)
	if !s.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid severity %q", raw)
	}
	return s, nil
}

// Status is the alert lifecycle: ACTIVE until a staff member resolves it.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusResolved Status = "RESOLVED"
)

// Alert is one acknowledgeable notification. Resident and medication
// references are optional back-references, never ownership.
type Alert struct {
	ID           id.AlertID      `json:"id"`
	ProgramID    id.ProgramID    `json:"program_id"`
	ResidentID   id.ResidentID   `json:"resident_id,omitzero"`
	MedicationID id.MedicationID `json:"medication_record_id,omitzero"`
	Severity     Severity        `json:"severity"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Status       Status          `json:"status"`
	RaisedAt     time.Time       `json:"raised_at"`
	ResolvedBy   id.StaffID      `json:"resolved_by,omitzero"`
	ResolvedAt   *time.Time      `json:"resolved_at,omitempty"`
}

// RaiseInput carries everything needed to raise an alert.
type RaiseInput struct {
	ProgramID    id.ProgramID
	ResidentID   id.ResidentID
	MedicationID id.MedicationID
	Severity     Severity
	Title        string
	Description  string
}

// Validate enforces required fields before any store write.
func (in RaiseInput) Validate() error {
	if in.ProgramID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "program_id is required")
	}
	if !in.Severity.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid severity %q", in.Severity)
	}
	if in.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	return nil
}

// ListFilter narrows active-alert queries.
type ListFilter struct {
	Severity   Severity      // zero value matches all severities
	ResidentID id.ResidentID // zero value matches all residents
	Since      time.Time     // zero value disables the recency window
}
