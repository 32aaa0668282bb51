package medaudit

import (
	"context"

	id "medledger/pkg/domain"
)

// Store persists audit sessions with their count lines. Implementations
// return sentinel errors; the service translates them into domain errors.
//
// Insert returns sentinel.ErrConflict when a PENDING session already exists
// for the same program, date, and shift. Update replaces the session's
// approval state and status; lines are written once at Insert and never
// change afterwards.
type Store interface {
	Insert(ctx context.Context, session *AuditSession) error
	Get(ctx context.Context, sessionID id.AuditSessionID) (*AuditSession, error)
	Update(ctx context.Context, session *AuditSession) error
	ListPending(ctx context.Context, programID id.ProgramID) ([]*AuditSession, error)
}
