package medaudit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"medledger/internal/administration"
	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
)

// PostgresStore persists audit sessions and their count lines in PostgreSQL.
// A partial unique index on (program_id, audit_day, shift) WHERE status =
// 'PENDING' enforces the one-open-session-per-shift rule at the database;
// lines ride the session transaction and cascade-delete with it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const sessionColumns = `id, program_id, audit_date, audit_day, audit_time, shift, staff_id, staff_name,
	notes, has_discrepancies, status,
	director_status, director_staff_id, director_staff_name, director_decided_at, director_notes,
	clinical_status, clinical_staff_id, clinical_staff_name, clinical_decided_at, clinical_notes,
	created_at, updated_at`

const lineColumns = `id, session_id, resident_id, medication_id, medication_name,
	previous_count, current_count, variance, counted_by, notes`

func (s *PostgresStore) Insert(ctx context.Context, session *AuditSession) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin audit insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO medication_audit_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		        $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		uuid.UUID(session.ID), uuid.UUID(session.ProgramID),
		session.Date, auditDay(session.Date), session.Time, string(session.Shift),
		uuid.UUID(session.StaffID), session.StaffName,
		session.Notes, session.HasDiscrepancies, string(session.Status),
		string(session.DirectorApproval.Status), nullableUUID(uuid.UUID(session.DirectorApproval.StaffID)),
		session.DirectorApproval.StaffName, nullableTime(session.DirectorApproval.DecidedAt), session.DirectorApproval.Notes,
		string(session.ClinicalApproval.Status), nullableUUID(uuid.UUID(session.ClinicalApproval.StaffID)),
		session.ClinicalApproval.StaffName, nullableTime(session.ClinicalApproval.DecidedAt), session.ClinicalApproval.Notes,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert audit session: %w", err)
	}

	for _, line := range session.Lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO medication_audit_lines (`+lineColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			line.ID, uuid.UUID(line.SessionID), uuid.UUID(line.ResidentID),
			uuid.UUID(line.MedicationID), line.MedicationName,
			line.PreviousCount, line.CurrentCount, line.Variance,
			line.CountedBy, line.Notes,
		)
		if err != nil {
			return fmt.Errorf("insert audit line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit audit insert tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID id.AuditSessionID) (*AuditSession, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM medication_audit_sessions WHERE id = $1`,
		uuid.UUID(sessionID))
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get audit session: %w", err)
	}
	if session.Lines, err = s.lines(ctx, session.ID); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *PostgresStore) Update(ctx context.Context, session *AuditSession) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE medication_audit_sessions
		SET has_discrepancies = $2, status = $3,
		    director_status = $4, director_staff_id = $5, director_staff_name = $6,
		    director_decided_at = $7, director_notes = $8,
		    clinical_status = $9, clinical_staff_id = $10, clinical_staff_name = $11,
		    clinical_decided_at = $12, clinical_notes = $13,
		    updated_at = $14
		WHERE id = $1`,
		uuid.UUID(session.ID), session.HasDiscrepancies, string(session.Status),
		string(session.DirectorApproval.Status), nullableUUID(uuid.UUID(session.DirectorApproval.StaffID)),
		session.DirectorApproval.StaffName, nullableTime(session.DirectorApproval.DecidedAt), session.DirectorApproval.Notes,
		string(session.ClinicalApproval.Status), nullableUUID(uuid.UUID(session.ClinicalApproval.StaffID)),
		session.ClinicalApproval.StaffName, nullableTime(session.ClinicalApproval.DecidedAt), session.ClinicalApproval.Notes,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update audit session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListPending(ctx context.Context, programID id.ProgramID) ([]*AuditSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM medication_audit_sessions
		 WHERE program_id = $1 AND status = 'PENDING' ORDER BY created_at, id`,
		uuid.UUID(programID))
	if err != nil {
		return nil, fmt.Errorf("list pending audit sessions: %w", err)
	}
	defer rows.Close()

	var out []*AuditSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit session: %w", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, session := range out {
		if session.Lines, err = s.lines(ctx, session.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) lines(ctx context.Context, sessionID id.AuditSessionID) ([]*AuditCountLine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+lineColumns+` FROM medication_audit_lines
		 WHERE session_id = $1 ORDER BY medication_name, id`,
		uuid.UUID(sessionID))
	if err != nil {
		return nil, fmt.Errorf("list audit lines: %w", err)
	}
	defer rows.Close()

	var out []*AuditCountLine
	for rows.Next() {
		var (
			line                     AuditCountLine
			sessionUUID              uuid.UUID
			residentID, medicationID uuid.UUID
		)
		err := rows.Scan(&line.ID, &sessionUUID, &residentID, &medicationID,
			&line.MedicationName, &line.PreviousCount, &line.CurrentCount,
			&line.Variance, &line.CountedBy, &line.Notes)
		if err != nil {
			return nil, fmt.Errorf("scan audit line: %w", err)
		}
		line.SessionID = id.AuditSessionID(sessionUUID)
		line.ResidentID = id.ResidentID(residentID)
		line.MedicationID = id.MedicationID(medicationID)
		out = append(out, &line)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (*AuditSession, error) {
	var (
		session                          AuditSession
		sessionID, programID, staffID    uuid.UUID
		shift, status                    string
		day                              string
		directorStatus, clinicalStatus   string
		directorStaffID, clinicalStaffID *uuid.UUID
		directorDecided, clinicalDecided *time.Time
	)
	err := row.Scan(&sessionID, &programID, &session.Date, &day, &session.Time,
		&shift, &staffID, &session.StaffName, &session.Notes,
		&session.HasDiscrepancies, &status,
		&directorStatus, &directorStaffID, &session.DirectorApproval.StaffName,
		&directorDecided, &session.DirectorApproval.Notes,
		&clinicalStatus, &clinicalStaffID, &session.ClinicalApproval.StaffName,
		&clinicalDecided, &session.ClinicalApproval.Notes,
		&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	session.ID = id.AuditSessionID(sessionID)
	session.ProgramID = id.ProgramID(programID)
	session.StaffID = id.StaffID(staffID)
	session.Shift = administration.Shift(shift)
	session.Status = Status(status)
	session.DirectorApproval.Status = Status(directorStatus)
	session.ClinicalApproval.Status = Status(clinicalStatus)
	if directorStaffID != nil {
		session.DirectorApproval.StaffID = id.StaffID(*directorStaffID)
	}
	if clinicalStaffID != nil {
		session.ClinicalApproval.StaffID = id.StaffID(*clinicalStaffID)
	}
	if directorDecided != nil {
		session.DirectorApproval.DecidedAt = *directorDecided
	}
	if clinicalDecided != nil {
		session.ClinicalApproval.DecidedAt = *clinicalDecided
	}
	return &session, nil
}

// nullableUUID maps the nil UUID to a SQL NULL.
func nullableUUID(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}

// nullableTime maps the zero time to a SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
