package registry

import (
	"context"

	id "medledger/pkg/domain"
)

// Store persists medication records. Count mutations go through Mutate and
// MutateMany so each implementation can serialize them: the in-memory store
// holds its lock across fn, the postgres store applies fn inside a
// SELECT ... FOR UPDATE transaction. Implementations return sentinel errors.
type Store interface {
	Insert(ctx context.Context, record *MedicationRecord) error
	Get(ctx context.Context, medicationID id.MedicationID) (*MedicationRecord, error)
	ListByProgram(ctx context.Context, programID id.ProgramID) ([]*MedicationRecord, error)
	ListByResident(ctx context.Context, residentID id.ResidentID) ([]*MedicationRecord, error)

	// Mutate loads the record, applies fn under the record's write lock, and
	// persists the result. An error from fn aborts without persisting.
	Mutate(ctx context.Context, medicationID id.MedicationID, fn func(*MedicationRecord) error) (*MedicationRecord, error)

	// MutateMany applies fn to every named record in one atomic unit:
	// either all records persist or none do.
	MutateMany(ctx context.Context, medicationIDs []id.MedicationID, fn func(*MedicationRecord) error) ([]*MedicationRecord, error)
}
