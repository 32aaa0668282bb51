package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
)

// PostgresStore persists alerts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, alert *Alert) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO medication_alerts
			(id, program_id, resident_id, medication_id, severity, title, description, status, raised_at, resolved_by, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(alert.ID), uuid.UUID(alert.ProgramID),
		nullableUUID(uuid.UUID(alert.ResidentID)), nullableUUID(uuid.UUID(alert.MedicationID)),
		string(alert.Severity), alert.Title, alert.Description, string(alert.Status),
		alert.RaisedAt, nullableUUID(uuid.UUID(alert.ResolvedBy)), alert.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, alertID id.AlertID) (*Alert, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, program_id, resident_id, medication_id, severity, title, description, status, raised_at, resolved_by, resolved_at
		FROM medication_alerts WHERE id = $1`, uuid.UUID(alertID))
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return alert, nil
}

func (s *PostgresStore) Update(ctx context.Context, alert *Alert) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE medication_alerts
		SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $1`,
		uuid.UUID(alert.ID), string(alert.Status),
		nullableUUID(uuid.UUID(alert.ResolvedBy)), alert.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListActive(ctx context.Context, programID id.ProgramID, filter ListFilter) ([]*Alert, error) {
	query := `
		SELECT id, program_id, resident_id, medication_id, severity, title, description, status, raised_at, resolved_by, resolved_at
		FROM medication_alerts
		WHERE program_id = $1 AND status = 'ACTIVE'`
	args := []any{uuid.UUID(programID)}

	if filter.Severity != "" {
		args = append(args, string(filter.Severity))
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	if !filter.ResidentID.IsNil() {
		args = append(args, uuid.UUID(filter.ResidentID))
		query += fmt.Sprintf(" AND resident_id = $%d", len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		query += fmt.Sprintf(" AND raised_at >= $%d", len(args))
	}
	query += " ORDER BY raised_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	defer rows.Close()

	var out []*Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, alert)
	}
	return out, rows.Err()
}

func scanAlert(row pgx.Row) (*Alert, error) {
	var (
		alert                            Alert
		alertID, programID               uuid.UUID
		residentID, medicationID, byUUID *uuid.UUID
		severity, status                 string
		resolvedAt                       *time.Time
	)
	err := row.Scan(&alertID, &programID, &residentID, &medicationID, &severity,
		&alert.Title, &alert.Description, &status, &alert.RaisedAt, &byUUID, &resolvedAt)
	if err != nil {
		return nil, err
	}
	alert.ID = id.AlertID(alertID)
	alert.ProgramID = id.ProgramID(programID)
	if residentID != nil {
		alert.ResidentID = id.ResidentID(*residentID)
	}
	if medicationID != nil {
		alert.MedicationID = id.MedicationID(*medicationID)
	}
	if byUUID != nil {
		alert.ResolvedBy = id.StaffID(*byUUID)
	}
	alert.Severity = Severity(severity)
	alert.Status = Status(status)
	alert.ResolvedAt = resolvedAt
	return &alert, nil
}

// nullableUUID maps the nil UUID to a SQL NULL.
func nullableUUID(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}
