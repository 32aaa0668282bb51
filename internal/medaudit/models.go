// Package medaudit runs shift-count reconciliation: staff submit observed
// counts as an audit session, and a dual sign-off (program director plus
// clinical reviewer) decides whether the observed counts become the
// authoritative registry counts.
package medaudit

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"medledger/internal/administration"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
)

// Status is the lifecycle state of an audit session or one approval channel.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDenied   Status = "DENIED"
)

// IsTerminal reports whether no further decisions may land.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// Channel names one of the two sign-off channels.
type Channel string

const (
	ChannelDirector Channel = "DIRECTOR"
	ChannelClinical Channel = "CLINICAL"
)

// IsValid checks the channel is one of the supported enum values.
func (c Channel) IsValid() bool {
	return c == ChannelDirector || c == ChannelClinical
}

// ParseChannel validates a channel from the wire.
func ParseChannel(raw string) (Channel, error) {
	c := Channel(raw)
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid approval channel %q", raw)
	}
	return c, nil
}

// Decision is the verdict one channel hands down.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionDenied   Decision = "DENIED"
)

// IsValid checks the decision is one of the supported enum values.
func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionDenied
}

// ParseDecision validates a decision from the wire.
func ParseDecision(raw string) (Decision, error) {
	d := Decision(raw)
	if !d.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid decision %q", raw)
	}
	return d, nil
}

// Approval is one channel's sign-off record. Zero-valued until the channel
// decides; Status stays PENDING while undecided.
type Approval struct {
	Status    Status     `json:"status"`
	StaffID   id.StaffID `json:"staff_id,omitzero"`
	StaffName string     `json:"staff_name,omitempty"`
	DecidedAt time.Time  `json:"decided_at,omitzero"`
	Notes     string     `json:"notes,omitempty"`
}

// Decided reports whether this channel has already handed down a verdict.
func (a Approval) Decided() bool {
	return a.Status == StatusApproved || a.Status == StatusDenied
}

// AuditCountLine captures one medication's observed count against the
// registry value at submission time. CountedBy attributes the prior count to
// the staff member who last handled the medication.
type AuditCountLine struct {
	ID             uuid.UUID         `json:"id"`
	SessionID      id.AuditSessionID `json:"session_id"`
	ResidentID     id.ResidentID     `json:"resident_id"`
	MedicationID   id.MedicationID   `json:"medication_record_id"`
	MedicationName string            `json:"medication_name"`
	PreviousCount  int               `json:"previous_count"`
	CurrentCount   int               `json:"current_count"`
	Variance       int               `json:"variance"`
	CountedBy      string            `json:"counted_by,omitempty"`
	Notes          string            `json:"notes,omitempty"`
}

// AuditSession is one reconciliation pass over a program's medications.
// Lines are immutable once the session is submitted; approval decisions only
// touch the approval records and the session status.
type AuditSession struct {
	ID               id.AuditSessionID    `json:"id"`
	ProgramID        id.ProgramID         `json:"program_id"`
	Date             time.Time            `json:"date"`
	Time             string               `json:"time"`
	Shift            administration.Shift `json:"shift"`
	StaffID          id.StaffID           `json:"staff_id"`
	StaffName        string               `json:"staff_name"`
	Notes            string               `json:"notes,omitempty"`
	HasDiscrepancies bool                 `json:"has_discrepancies"`
	Status           Status               `json:"status"`
	DirectorApproval Approval             `json:"director_approval"`
	ClinicalApproval Approval             `json:"clinical_approval"`
	Lines            []*AuditCountLine    `json:"lines"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// approvalFor returns the approval record for a channel.
func (s *AuditSession) approvalFor(channel Channel) *Approval {
	if channel == ChannelDirector {
		return &s.DirectorApproval
	}
	return &s.ClinicalApproval
}

// LineInput is one observed count in a session submission.
type LineInput struct {
	MedicationID  id.MedicationID
	ObservedCount int
	Notes         string
}

// OpenInput carries a full session submission.
type OpenInput struct {
	Date    time.Time
	Time    string
	Shift   administration.Shift
	StaffID id.StaffID
	Notes   string
	Lines   []LineInput
}

// Validate enforces required fields before any medication is resolved.
func (in OpenInput) Validate() error {
	if in.StaffID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "staff_id is required")
	}
	if in.Date.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "date is required")
	}
	if !in.Shift.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid shift %q", in.Shift)
	}
	if len(in.Lines) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one count line is required")
	}
	seen := make(map[id.MedicationID]struct{}, len(in.Lines))
	for _, line := range in.Lines {
		if line.MedicationID.IsNil() {
			return dErrors.New(dErrors.CodeValidation, "every line needs a medication_id")
		}
		if line.ObservedCount < 0 {
			return dErrors.New(dErrors.CodeValidation, "observed counts must not be negative")
		}
		if _, dup := seen[line.MedicationID]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "duplicate line for medication %s", line.MedicationID)
		}
		seen[line.MedicationID] = struct{}{}
	}
	return nil
}

// DecideInput carries one channel's verdict on a pending session.
type DecideInput struct {
	Channel  Channel
	Decision Decision
	StaffID  id.StaffID
	Notes    string
}

// Validate enforces required fields on a decision.
func (in DecideInput) Validate() error {
	if !in.Channel.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid approval channel %q", in.Channel)
	}
	if !in.Decision.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid decision %q", in.Decision)
	}
	if in.StaffID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "staff_id is required")
	}
	return nil
}

// auditDay normalizes a session date for the one-pending-session-per-shift
// uniqueness rule.
func auditDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func normalizeNotes(notes string) string {
	return strings.TrimSpace(notes)
}
