//go:build integration

package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medledger/internal/registry"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/platform/sentinel"
	"medledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *registry.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = registry.NewPostgresStore(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"medication_audit_lines", "medication_audit_sessions",
		"administration_events", "medication_alerts", "medication_records")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newRecord(count int) *registry.MedicationRecord {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &registry.MedicationRecord{
		ID:            id.NewMedicationID(),
		ProgramID:     id.NewProgramID(),
		ResidentID:    id.NewResidentID(),
		ResidentName:  "Jordan Reyes",
		Name:          "Methylphenidate",
		Dosage:        "10mg",
		HandlingClass: registry.Countable,
		Status:        registry.StatusActive,
		InitialCount:  count,
		CurrentCount:  count,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *PostgresStoreSuite) TestInsertAndGetRoundTrip() {
	ctx := context.Background()
	record := s.newRecord(30)
	s.Require().NoError(s.store.Insert(ctx, record))

	loaded, err := s.store.Get(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(record.ID, loaded.ID)
	s.Equal(30, loaded.CurrentCount)
	s.Equal(registry.Countable, loaded.HandlingClass)
	s.Equal("Jordan Reyes", loaded.ResidentName)
}

func (s *PostgresStoreSuite) TestGetMissingIsNotFound() {
	_, err := s.store.Get(context.Background(), id.NewMedicationID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestMutatePersistsChange() {
	ctx := context.Background()
	record := s.newRecord(30)
	s.Require().NoError(s.store.Insert(ctx, record))

	updated, err := s.store.Mutate(ctx, record.ID, func(m *registry.MedicationRecord) error {
		m.CurrentCount--
		return nil
	})
	s.Require().NoError(err)
	s.Equal(29, updated.CurrentCount)

	loaded, err := s.store.Get(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(29, loaded.CurrentCount)
}

func (s *PostgresStoreSuite) TestMutateManyIsAllOrNothing() {
	ctx := context.Background()
	first := s.newRecord(10)
	second := s.newRecord(20)
	second.Status = registry.StatusDiscontinued
	s.Require().NoError(s.store.Insert(ctx, first))
	s.Require().NoError(s.store.Insert(ctx, second))

	_, err := s.store.MutateMany(ctx, []id.MedicationID{first.ID, second.ID},
		func(m *registry.MedicationRecord) error {
			if m.Status != registry.StatusActive {
				return dErrors.New(dErrors.CodeInvalidState, "medication is not active")
			}
			m.CurrentCount = 0
			return nil
		})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	loaded, err := s.store.Get(ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(10, loaded.CurrentCount, "the failing sibling rolls back the whole batch")
}

func (s *PostgresStoreSuite) TestMutateCallbackErrorPropagates() {
	ctx := context.Background()
	record := s.newRecord(5)
	s.Require().NoError(s.store.Insert(ctx, record))

	wantErr := errors.New("boom")
	_, err := s.store.Mutate(ctx, record.ID, func(*registry.MedicationRecord) error {
		return wantErr
	})
	s.Require().ErrorIs(err, wantErr)
}

func (s *PostgresStoreSuite) TestListByProgramExcludesDeleted() {
	ctx := context.Background()
	record := s.newRecord(5)
	deleted := s.newRecord(5)
	deleted.ProgramID = record.ProgramID
	deleted.Status = registry.StatusDeleted
	s.Require().NoError(s.store.Insert(ctx, record))
	s.Require().NoError(s.store.Insert(ctx, deleted))

	records, err := s.store.ListByProgram(ctx, record.ProgramID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(record.ID, records[0].ID)
}
