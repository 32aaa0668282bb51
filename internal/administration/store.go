package administration

import (
	"context"

	id "medledger/pkg/domain"
)

// Store persists dose events. The interface exposes no update or delete:
// the log is append-only by construction.
type Store interface {
	Append(ctx context.Context, event *Event) error
	// List returns a page of a program's events, newest first, plus the
	// total number of events matching the filter.
	List(ctx context.Context, programID id.ProgramID, filter ListFilter) (*Page, error)
	// LastByMedication returns the most recent event for a medication, or
	// sentinel.ErrNotFound when none exists. Audit lines use it to attribute
	// the prior count to the staff member who last touched the medication.
	LastByMedication(ctx context.Context, medicationID id.MedicationID) (*Event, error)
}
