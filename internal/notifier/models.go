// Package notifier is the message-passing boundary between the core and the
// external fan-out transport. The core publishes one flat change-description
// per mutation; subscriber lifecycles, backpressure, and delivery guarantees
// all live on the other side of this boundary.
package notifier

import (
	"time"

	id "medledger/pkg/domain"
)

// ChangeType names the mutation a ChangeEvent describes.
type ChangeType string

const (
	ChangeMedicationAdded        ChangeType = "medication_added"
	ChangeMedicationAdministered ChangeType = "medication_administered"
	ChangeAuditSubmitted         ChangeType = "audit_submitted"
	ChangeAuditReviewed          ChangeType = "audit_reviewed"
	ChangeNewAlert               ChangeType = "new_alert"
	ChangeAlertResolved          ChangeType = "alert_resolved"
)

// ChangeEvent is the terse, transport-agnostic description of one mutation.
// Optional references are zero-valued when the mutation has no such subject.
type ChangeEvent struct {
	Type           ChangeType        `json:"type"`
	ProgramID      id.ProgramID      `json:"program_id"`
	ResidentID     id.ResidentID     `json:"resident_id,omitzero"`
	MedicationID   id.MedicationID   `json:"medication_record_id,omitzero"`
	AuditSessionID id.AuditSessionID `json:"audit_session_id,omitzero"`
	AlertID        id.AlertID        `json:"alert_id,omitzero"`
	OccurredAt     time.Time         `json:"occurred_at"`
}
