// Package registry owns the current-count ledger: one MedicationRecord per
// active prescription per resident. Every count mutation in the system routes
// through this package so the chain-of-custody invariant is enforced in one
// place.
package registry

import (
	"strings"
	"time"

	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
)

// HandlingClass describes how a medication's quantity is tracked.
type HandlingClass string

const (
	// Countable medications decrement one unit per administered dose.
	Countable HandlingClass = "COUNTABLE"
	// NonCountable medications are always available (e.g. topicals); the
	// stored count is pinned at 1.
	NonCountable HandlingClass = "NON_COUNTABLE"
	// RecordOnly medications log administrations without tracking quantity
	// (e.g. inhalers); the stored count is informational only.
	RecordOnly HandlingClass = "RECORD_ONLY"
)

// IsValid checks the handling class is one of the supported enum values.
func (c HandlingClass) IsValid() bool {
	switch c {
	case Countable, NonCountable, RecordOnly:
		return true
	}
	return false
}

// ParseHandlingClass validates a handling class from the wire.
func ParseHandlingClass(raw string) (HandlingClass, error) {
	c := HandlingClass(raw)
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid handling class %q", raw)
	}
	return c, nil
}

// Status is the medication lifecycle state.
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusOnHold       Status = "ON_HOLD"
	StatusDiscontinued Status = "DISCONTINUED"
	StatusDeleted      Status = "DELETED"
)

// IsValid checks the status is one of the supported enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusOnHold, StatusDiscontinued, StatusDeleted:
		return true
	}
	return false
}

// ParseStatus validates a lifecycle status from the wire.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid medication status %q", raw)
	}
	return s, nil
}

// countFrozen reports whether the lifecycle state forbids count mutation.
func (s Status) countFrozen() bool {
	return s == StatusDiscontinued || s == StatusDeleted
}

// MedicationRecord is one active prescription instance for one resident.
// CurrentCount is mutated only by administration commits or audit approval,
// and only through the registry service.
type MedicationRecord struct {
	ID            id.MedicationID `json:"id"`
	ProgramID     id.ProgramID    `json:"program_id"`
	ResidentID    id.ResidentID   `json:"resident_id"`
	ResidentName  string          `json:"resident_name"`
	Name          string          `json:"name"`
	Dosage        string          `json:"dosage"`
	Frequency     string          `json:"frequency"`
	HandlingClass HandlingClass   `json:"handling_class"`
	Status        Status          `json:"status"`
	InitialCount  int             `json:"initial_count"`
	CurrentCount  int             `json:"current_count"`
	Prescriber    string          `json:"prescriber"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// touch advances UpdatedAt before a mutating write. Timestamps are explicit;
// there is no persistence-hook magic.
func (m *MedicationRecord) touch(now time.Time) {
	m.UpdatedAt = now
}

// CreateInput carries the attributes for a new medication record.
type CreateInput struct {
	ResidentID    id.ResidentID
	Name          string
	Dosage        string
	Frequency     string
	HandlingClass HandlingClass
	InitialCount  int
	Prescriber    string
}

// Validate enforces required fields and count invariants at construction.
func (in CreateInput) Validate() error {
	if in.ResidentID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "resident_id is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(in.Dosage) == "" {
		return dErrors.New(dErrors.CodeValidation, "dosage is required")
	}
	if !in.HandlingClass.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid handling class %q", in.HandlingClass)
	}
	if in.InitialCount < 0 {
		return dErrors.New(dErrors.CodeValidation, "initial_count must not be negative")
	}
	return nil
}

// newMedicationRecord constructs the record, applying the handling-class
// count rules at birth: NON_COUNTABLE pins the count at 1.
func newMedicationRecord(programID id.ProgramID, residentName string, in CreateInput, now time.Time) *MedicationRecord {
	count := in.InitialCount
	if in.HandlingClass == NonCountable {
		count = 1
	}
	return &MedicationRecord{
		ID:            id.NewMedicationID(),
		ProgramID:     programID,
		ResidentID:    in.ResidentID,
		ResidentName:  residentName,
		Name:          strings.TrimSpace(in.Name),
		Dosage:        strings.TrimSpace(in.Dosage),
		Frequency:     strings.TrimSpace(in.Frequency),
		HandlingClass: in.HandlingClass,
		Status:        StatusActive,
		InitialCount:  count,
		CurrentCount:  count,
		Prescriber:    strings.TrimSpace(in.Prescriber),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
