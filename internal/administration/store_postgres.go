package administration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
)

// PostgresStore persists dose events in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const eventColumns = `id, program_id, resident_id, resident_name, medication_id, medication_name,
	event_date, event_time, shift, action, was_late, minutes_late, notes, staff_id, staff_name, created_at`

func (s *PostgresStore) Append(ctx context.Context, event *Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO administration_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		uuid.UUID(event.ID), uuid.UUID(event.ProgramID), uuid.UUID(event.ResidentID),
		event.ResidentName, uuid.UUID(event.MedicationID), event.Medication,
		event.Date, event.Time, string(event.Shift), string(event.Action),
		event.WasLate, event.MinutesLate, event.Notes,
		uuid.UUID(event.StaffID), event.StaffName, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append administration event: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, programID id.ProgramID, filter ListFilter) (*Page, error) {
	where := " WHERE program_id = $1"
	args := []any{uuid.UUID(programID)}

	if !filter.Start.IsZero() {
		args = append(args, filter.Start)
		where += fmt.Sprintf(" AND event_date >= $%d", len(args))
	}
	if !filter.End.IsZero() {
		args = append(args, filter.End)
		where += fmt.Sprintf(" AND event_date <= $%d", len(args))
	}
	if filter.Shift != "" {
		args = append(args, string(filter.Shift))
		where += fmt.Sprintf(" AND shift = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		where += fmt.Sprintf(" AND action = $%d", len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM administration_events"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count administration events: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	offset := max(0, filter.Offset)
	args = append(args, limit, offset)
	query := fmt.Sprintf("SELECT "+eventColumns+" FROM administration_events"+where+
		" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list administration events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan administration event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &Page{Events: events, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *PostgresStore) LastByMedication(ctx context.Context, medicationID id.MedicationID) (*Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM administration_events
		 WHERE medication_id = $1 ORDER BY created_at DESC LIMIT 1`,
		uuid.UUID(medicationID))
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("last administration event: %w", err)
	}
	return event, nil
}

func scanEvent(row pgx.Row) (*Event, error) {
	var (
		event                          Event
		eventID, programID, residentID uuid.UUID
		medicationID, staffID          uuid.UUID
		shift, action                  string
	)
	err := row.Scan(&eventID, &programID, &residentID, &event.ResidentName,
		&medicationID, &event.Medication, &event.Date, &event.Time,
		&shift, &action, &event.WasLate, &event.MinutesLate, &event.Notes,
		&staffID, &event.StaffName, &event.CreatedAt)
	if err != nil {
		return nil, err
	}
	event.ID = id.AdministrationID(eventID)
	event.ProgramID = id.ProgramID(programID)
	event.ResidentID = id.ResidentID(residentID)
	event.MedicationID = id.MedicationID(medicationID)
	event.StaffID = id.StaffID(staffID)
	event.Shift = Shift(shift)
	event.Action = Action(action)
	return &event, nil
}
