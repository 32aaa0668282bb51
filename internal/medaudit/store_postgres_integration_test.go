//go:build integration

package medaudit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"medledger/internal/administration"
	"medledger/internal/medaudit"
	"medledger/internal/registry"
	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
	"medledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres      *containers.PostgresContainer
	store         *medaudit.PostgresStore
	registryStore *registry.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = medaudit.NewPostgresStore(s.postgres.Pool)
	s.registryStore = registry.NewPostgresStore(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"medication_audit_lines", "medication_audit_sessions", "medication_records")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seedMedication(programID id.ProgramID) *registry.MedicationRecord {
	now := time.Now().UTC().Truncate(time.Millisecond)
	record := &registry.MedicationRecord{
		ID:            id.NewMedicationID(),
		ProgramID:     programID,
		ResidentID:    id.NewResidentID(),
		Name:          "Sertraline",
		Dosage:        "50mg",
		HandlingClass: registry.Countable,
		Status:        registry.StatusActive,
		InitialCount:  27,
		CurrentCount:  27,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.Require().NoError(s.registryStore.Insert(context.Background(), record))
	return record
}

func (s *PostgresStoreSuite) newSession(programID id.ProgramID, medication *registry.MedicationRecord) *medaudit.AuditSession {
	now := time.Now().UTC().Truncate(time.Millisecond)
	session := &medaudit.AuditSession{
		ID:               id.NewAuditSessionID(),
		ProgramID:        programID,
		Date:             time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Time:             "21:30",
		Shift:            administration.ShiftNight,
		StaffID:          id.NewStaffID(),
		StaffName:        "Sam Whitfield",
		Status:           medaudit.StatusPending,
		DirectorApproval: medaudit.Approval{Status: medaudit.StatusPending},
		ClinicalApproval: medaudit.Approval{Status: medaudit.StatusPending},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	session.Lines = []*medaudit.AuditCountLine{{
		ID:             uuid.New(),
		SessionID:      session.ID,
		ResidentID:     medication.ResidentID,
		MedicationID:   medication.ID,
		MedicationName: medication.Name,
		PreviousCount:  27,
		CurrentCount:   25,
		Variance:       -2,
		CountedBy:      "Sam Whitfield",
	}}
	session.HasDiscrepancies = true
	return session
}

func (s *PostgresStoreSuite) TestInsertAndGetWithLines() {
	ctx := context.Background()
	programID := id.NewProgramID()
	medication := s.seedMedication(programID)
	session := s.newSession(programID, medication)

	s.Require().NoError(s.store.Insert(ctx, session))

	loaded, err := s.store.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(medaudit.StatusPending, loaded.Status)
	s.True(loaded.HasDiscrepancies)
	s.Require().Len(loaded.Lines, 1)
	s.Equal(-2, loaded.Lines[0].Variance)
	s.Equal("Sam Whitfield", loaded.Lines[0].CountedBy)
}

func (s *PostgresStoreSuite) TestDuplicatePendingSessionConflicts() {
	ctx := context.Background()
	programID := id.NewProgramID()
	medication := s.seedMedication(programID)

	first := s.newSession(programID, medication)
	s.Require().NoError(s.store.Insert(ctx, first))

	duplicate := s.newSession(programID, medication)
	err := s.store.Insert(ctx, duplicate)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// Once the first session is terminal the shift can be audited again.
	first.Status = medaudit.StatusDenied
	s.Require().NoError(s.store.Update(ctx, first))
	s.Require().NoError(s.store.Insert(ctx, duplicate))
}

func (s *PostgresStoreSuite) TestUpdatePersistsApprovals() {
	ctx := context.Background()
	programID := id.NewProgramID()
	medication := s.seedMedication(programID)
	session := s.newSession(programID, medication)
	s.Require().NoError(s.store.Insert(ctx, session))

	decidedAt := time.Now().UTC().Truncate(time.Millisecond)
	session.DirectorApproval = medaudit.Approval{
		Status:    medaudit.StatusApproved,
		StaffID:   id.NewStaffID(),
		StaffName: "Dana Okafor",
		DecidedAt: decidedAt,
	}
	session.UpdatedAt = decidedAt
	s.Require().NoError(s.store.Update(ctx, session))

	loaded, err := s.store.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(medaudit.StatusApproved, loaded.DirectorApproval.Status)
	s.Equal("Dana Okafor", loaded.DirectorApproval.StaffName)
	s.Equal(medaudit.StatusPending, loaded.ClinicalApproval.Status)
	s.False(loaded.DirectorApproval.DecidedAt.IsZero())
}

func (s *PostgresStoreSuite) TestListPendingSkipsTerminalSessions() {
	ctx := context.Background()
	programID := id.NewProgramID()
	medication := s.seedMedication(programID)

	pending := s.newSession(programID, medication)
	s.Require().NoError(s.store.Insert(ctx, pending))

	sessions, err := s.store.ListPending(ctx, programID)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Require().Len(sessions[0].Lines, 1)

	pending.Status = medaudit.StatusApproved
	s.Require().NoError(s.store.Update(ctx, pending))

	sessions, err = s.store.ListPending(ctx, programID)
	s.Require().NoError(err)
	s.Empty(sessions)
}
