package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
)

// PostgresStore persists medication records in PostgreSQL. Count mutations
// run inside a transaction with SELECT ... FOR UPDATE so concurrent
// administrations against the same record serialize at the row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const medicationColumns = `id, program_id, resident_id, resident_name, name, dosage, frequency,
	handling_class, status, initial_count, current_count, prescriber, created_at, updated_at`

func (s *PostgresStore) Insert(ctx context.Context, record *MedicationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO medication_records (`+medicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		uuid.UUID(record.ID), uuid.UUID(record.ProgramID), uuid.UUID(record.ResidentID),
		record.ResidentName, record.Name, record.Dosage, record.Frequency,
		string(record.HandlingClass), string(record.Status),
		record.InitialCount, record.CurrentCount, record.Prescriber,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert medication record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, medicationID id.MedicationID) (*MedicationRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+medicationColumns+` FROM medication_records WHERE id = $1`,
		uuid.UUID(medicationID))
	record, err := scanMedication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get medication record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByProgram(ctx context.Context, programID id.ProgramID) ([]*MedicationRecord, error) {
	return s.list(ctx,
		`SELECT `+medicationColumns+` FROM medication_records
		 WHERE program_id = $1 AND status <> 'DELETED' ORDER BY created_at, id`,
		uuid.UUID(programID))
}

func (s *PostgresStore) ListByResident(ctx context.Context, residentID id.ResidentID) ([]*MedicationRecord, error) {
	return s.list(ctx,
		`SELECT `+medicationColumns+` FROM medication_records
		 WHERE resident_id = $1 AND status <> 'DELETED' ORDER BY created_at, id`,
		uuid.UUID(residentID))
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*MedicationRecord, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list medication records: %w", err)
	}
	defer rows.Close()

	var out []*MedicationRecord
	for rows.Next() {
		record, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medication record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Mutate(ctx context.Context, medicationID id.MedicationID, fn func(*MedicationRecord) error) (*MedicationRecord, error) {
	records, err := s.MutateMany(ctx, []id.MedicationID{medicationID}, fn)
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

func (s *PostgresStore) MutateMany(ctx context.Context, medicationIDs []id.MedicationID, fn func(*MedicationRecord) error) ([]*MedicationRecord, error) {
	// Lock rows in a stable order so two overlapping audits cannot deadlock.
	ordered := make([]id.MedicationID, len(medicationIDs))
	copy(ordered, medicationIDs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin mutate tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	byID := make(map[id.MedicationID]*MedicationRecord, len(ordered))
	for _, medicationID := range ordered {
		row := tx.QueryRow(ctx,
			`SELECT `+medicationColumns+` FROM medication_records WHERE id = $1 FOR UPDATE`,
			uuid.UUID(medicationID))
		record, err := scanMedication(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, sentinel.ErrNotFound
			}
			return nil, fmt.Errorf("lock medication record: %w", err)
		}
		if err := fn(record); err != nil {
			return nil, err
		}
		byID[medicationID] = record
	}

	for _, record := range byID {
		_, err := tx.Exec(ctx, `
			UPDATE medication_records
			SET resident_name = $2, name = $3, dosage = $4, frequency = $5,
			    handling_class = $6, status = $7, current_count = $8, updated_at = $9
			WHERE id = $1`,
			uuid.UUID(record.ID), record.ResidentName, record.Name, record.Dosage,
			record.Frequency, string(record.HandlingClass), string(record.Status),
			record.CurrentCount, record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("update medication record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit mutate tx: %w", err)
	}

	// Preserve caller order in the result.
	out := make([]*MedicationRecord, 0, len(medicationIDs))
	for _, medicationID := range medicationIDs {
		out = append(out, byID[medicationID])
	}
	return out, nil
}

func scanMedication(row pgx.Row) (*MedicationRecord, error) {
	var (
		record                          MedicationRecord
		recordID, programID, residentID uuid.UUID
		class, status                   string
	)
	err := row.Scan(&recordID, &programID, &residentID, &record.ResidentName,
		&record.Name, &record.Dosage, &record.Frequency, &class, &status,
		&record.InitialCount, &record.CurrentCount, &record.Prescriber,
		&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	record.ID = id.MedicationID(recordID)
	record.ProgramID = id.ProgramID(programID)
	record.ResidentID = id.ResidentID(residentID)
	record.HandlingClass = HandlingClass(class)
	record.Status = Status(status)
	return &record, nil
}
