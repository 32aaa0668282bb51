package alerts

import (
	"context"

	id "medledger/pkg/domain"
)

// Store persists alerts. Implementations return sentinel errors; the service
// translates them into domain errors.
type Store interface {
	Insert(ctx context.Context, alert *Alert) error
	Get(ctx context.Context, alertID id.AlertID) (*Alert, error)
	// Update persists a resolve; the service owns the state transition.
	Update(ctx context.Context, alert *Alert) error
	// ListActive returns ACTIVE alerts for a program, newest first.
	ListActive(ctx context.Context, programID id.ProgramID, filter ListFilter) ([]*Alert, error)
}
