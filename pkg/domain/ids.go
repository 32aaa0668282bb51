// Package domain holds the typed identifiers shared across medledger modules.
//
// Every entity reference is a distinct named UUID type so the compiler rejects
// cross-type assignment (a ResidentID can never be passed where a StaffID is
// expected). Parse functions enforce the trust-boundary invariant: IDs must be
// valid, non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "medledger/pkg/domain-errors"
)

type (
	// ProgramID identifies a residential program.
	ProgramID uuid.UUID
	// ResidentID identifies a resident in the external directory.
	ResidentID uuid.UUID
	// StaffID identifies a staff member in the external directory.
	StaffID uuid.UUID
	// MedicationID identifies a medication record in the registry.
	MedicationID uuid.UUID
	// AdministrationID identifies one logged dose event.
	AdministrationID uuid.UUID
	// AuditSessionID identifies one reconciliation pass.
	AuditSessionID uuid.UUID
	// AlertID identifies a derived alert.
	AlertID uuid.UUID
)

func (id ProgramID) String() string        { return uuid.UUID(id).String() }
func (id ResidentID) String() string       { return uuid.UUID(id).String() }
func (id StaffID) String() string          { return uuid.UUID(id).String() }
func (id MedicationID) String() string     { return uuid.UUID(id).String() }
func (id AdministrationID) String() string { return uuid.UUID(id).String() }
func (id AuditSessionID) String() string   { return uuid.UUID(id).String() }
func (id AlertID) String() string          { return uuid.UUID(id).String() }

func (id ProgramID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ResidentID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id StaffID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id MedicationID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AdministrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AuditSessionID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id AlertID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }

// NewProgramID returns a fresh random ProgramID.
func NewProgramID() ProgramID { return ProgramID(uuid.New()) }

// NewResidentID returns a fresh random ResidentID.
func NewResidentID() ResidentID { return ResidentID(uuid.New()) }

// NewStaffID returns a fresh random StaffID.
func NewStaffID() StaffID { return StaffID(uuid.New()) }

// NewMedicationID returns a fresh random MedicationID.
func NewMedicationID() MedicationID { return MedicationID(uuid.New()) }

// NewAdministrationID returns a fresh random AdministrationID.
func NewAdministrationID() AdministrationID { return AdministrationID(uuid.New()) }

// NewAuditSessionID returns a fresh random AuditSessionID.
func NewAuditSessionID() AuditSessionID { return AuditSessionID(uuid.New()) }

// NewAlertID returns a fresh random AlertID.
func NewAlertID() AlertID { return AlertID(uuid.New()) }

// Named UUID types do not inherit uuid.UUID's methods, so text marshaling is
// declared per type to keep JSON round-trips in canonical string form.

func (id ProgramID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id ResidentID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id StaffID) MarshalText() ([]byte, error)          { return []byte(id.String()), nil }
func (id MedicationID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id AdministrationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id AuditSessionID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id AlertID) MarshalText() ([]byte, error)          { return []byte(id.String()), nil }

func (id *ProgramID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ProgramID(u)
	return nil
}

func (id *ResidentID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ResidentID(u)
	return nil
}

func (id *StaffID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = StaffID(u)
	return nil
}

func (id *MedicationID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = MedicationID(u)
	return nil
}

func (id *AdministrationID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = AdministrationID(u)
	return nil
}

func (id *AuditSessionID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = AuditSessionID(u)
	return nil
}

func (id *AlertID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = AlertID(u)
	return nil
}

// parseUUID rejects empty strings, malformed UUIDs, and the nil UUID.
func parseUUID(raw, field string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is required", field)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is not a valid UUID", field)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s must not be the nil UUID", field)
	}
	return parsed, nil
}

// ParseProgramID parses and validates a program identifier.
func ParseProgramID(raw string) (ProgramID, error) {
	u, err := parseUUID(raw, "program_id")
	return ProgramID(u), err
}

// ParseResidentID parses and validates a resident identifier.
func ParseResidentID(raw string) (ResidentID, error) {
	u, err := parseUUID(raw, "resident_id")
	return ResidentID(u), err
}

// ParseStaffID parses and validates a staff identifier.
func ParseStaffID(raw string) (StaffID, error) {
	u, err := parseUUID(raw, "staff_id")
	return StaffID(u), err
}

// ParseMedicationID parses and validates a medication record identifier.
func ParseMedicationID(raw string) (MedicationID, error) {
	u, err := parseUUID(raw, "medication_id")
	return MedicationID(u), err
}

// ParseAuditSessionID parses and validates an audit session identifier.
func ParseAuditSessionID(raw string) (AuditSessionID, error) {
	u, err := parseUUID(raw, "session_id")
	return AuditSessionID(u), err
}

// ParseAlertID parses and validates an alert identifier.
func ParseAlertID(raw string) (AlertID, error) {
	u, err := parseUUID(raw, "alert_id")
	return AlertID(u), err
}
