package medaudit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"medledger/internal/administration"
	"medledger/internal/alerts"
	"medledger/internal/directory"
	"medledger/internal/notifier"
	"medledger/internal/platform/metrics"
	"medledger/internal/registry"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/platform/sentinel"
	"medledger/pkg/requestcontext"
)

// Registry is the slice of the medication registry the audit engine needs:
// reads at submission time, and the atomic count overwrite at approval time.
type Registry interface {
	Get(ctx context.Context, medicationID id.MedicationID) (*registry.MedicationRecord, error)
	CommitObservedCounts(ctx context.Context, observed map[id.MedicationID]int, reason string) error
}

// DoseLog attributes the prior count to whoever last handled the medication.
type DoseLog interface {
	LastFor(ctx context.Context, medicationID id.MedicationID) (*administration.Event, error)
}

// AlertRaiser raises discrepancy alerts once a session is approved.
type AlertRaiser interface {
	Raise(ctx context.Context, input alerts.RaiseInput) (*alerts.Alert, error)
}

// Service implements the audit engine and its dual sign-off workflow.
type Service struct {
	store   Store
	reg     Registry
	doses   DoseLog
	dir     directory.Directory
	alerts  AlertRaiser
	changes notifier.Notifier
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithNotifier(n notifier.Notifier) Option {
	return func(s *Service) { s.changes = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAlertRaiser(a AlertRaiser) Option {
	return func(s *Service) { s.alerts = a }
}

func WithDoseLog(d DoseLog) Option {
	return func(s *Service) { s.doses = d }
}

func New(store Store, reg Registry, dir directory.Directory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("medaudit: store is required")
	}
	if reg == nil {
		return nil, errors.New("medaudit: registry is required")
	}
	if dir == nil {
		return nil, errors.New("medaudit: directory is required")
	}
	s := &Service{
		store:   store,
		reg:     reg,
		dir:     dir,
		changes: notifier.Nop{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OpenSession captures observed counts for a program as a PENDING session.
// Nothing is committed to the registry; previous counts and variances are
// frozen at submission time. One PENDING session per program, date, and
// shift.
func (s *Service) OpenSession(ctx context.Context, programID id.ProgramID, input OpenInput) (*AuditSession, error) {
	if programID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "program_id is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	staff, err := s.dir.Staff(ctx, input.StaffID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "staff member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve staff")
	}

	now := requestcontext.Now(ctx)
	session := &AuditSession{
		ID:               id.NewAuditSessionID(),
		ProgramID:        programID,
		Date:             input.Date,
		Time:             input.Time,
		Shift:            input.Shift,
		StaffID:          staff.ID,
		StaffName:        staff.Name,
		Notes:            normalizeNotes(input.Notes),
		Status:           StatusPending,
		DirectorApproval: Approval{Status: StatusPending},
		ClinicalApproval: Approval{Status: StatusPending},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// Resolve every medication before persisting anything: a single bad line
	// aborts the whole submission.
	for _, in := range input.Lines {
		medication, err := s.reg.Get(ctx, in.MedicationID)
		if err != nil {
			return nil, err
		}
		if medication.ProgramID != programID {
			return nil, dErrors.Newf(dErrors.CodeValidation,
				"medication %s belongs to a different program", in.MedicationID)
		}
		line := &AuditCountLine{
			ID:             uuid.New(),
			SessionID:      session.ID,
			ResidentID:     medication.ResidentID,
			MedicationID:   medication.ID,
			MedicationName: medication.Name,
			PreviousCount:  medication.CurrentCount,
			CurrentCount:   in.ObservedCount,
			Variance:       in.ObservedCount - medication.CurrentCount,
			Notes:          normalizeNotes(in.Notes),
		}
		if line.Variance != 0 {
			session.HasDiscrepancies = true
		}
		if s.doses != nil {
			last, err := s.doses.LastFor(ctx, medication.ID)
			if err != nil {
				return nil, err
			}
			if last != nil {
				line.CountedBy = last.StaffName
			}
		}
		session.Lines = append(session.Lines, line)
	}

	if err := s.store.Insert(ctx, session); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict,
				"an open audit session already exists for this program, date, and shift")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist audit session")
	}

	if s.metrics != nil {
		s.metrics.AuditSessionsOpened.Inc()
	}
	s.logger.InfoContext(ctx, "audit session opened",
		"session_id", session.ID.String(),
		"program_id", programID.String(),
		"lines", len(session.Lines),
		"has_discrepancies", session.HasDiscrepancies,
	)

	_ = s.changes.Publish(ctx, notifier.ChangeEvent{
		Type:           notifier.ChangeAuditSubmitted,
		ProgramID:      programID,
		AuditSessionID: session.ID,
		OccurredAt:     now,
	})
	return session, nil
}

// Decide records one channel's verdict. A denial on either channel is
// terminal. The session becomes APPROVED only when both channels approve; at
// that moment every observed count overwrites its medication atomically, and
// discrepant lines raise WARNING alerts.
func (s *Service) Decide(ctx context.Context, sessionID id.AuditSessionID, input DecideInput) (*AuditSession, error) {
	if sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "session_id is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	staff, err := s.dir.Staff(ctx, input.StaffID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "staff member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve staff")
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "audit session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit session")
	}
	if session.Status.IsTerminal() {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "audit session is already %s", session.Status)
	}

	approval := session.approvalFor(input.Channel)
	if approval.Decided() {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"the %s channel has already decided this session", input.Channel)
	}

	now := requestcontext.Now(ctx)
	approval.Status = Status(input.Decision)
	approval.StaffID = staff.ID
	approval.StaffName = staff.Name
	approval.DecidedAt = now
	approval.Notes = normalizeNotes(input.Notes)

	switch {
	case input.Decision == DecisionDenied:
		// Terminal: the registry stays untouched and the lines stand as the
		// permanent record of what was observed.
		session.Status = StatusDenied
	case session.DirectorApproval.Status == StatusApproved && session.ClinicalApproval.Status == StatusApproved:
		if err := s.commitApproval(ctx, session); err != nil {
			return nil, err
		}
		session.Status = StatusApproved
	}
	session.UpdatedAt = now

	if err := s.store.Update(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update audit session")
	}

	if session.Status.IsTerminal() {
		if s.metrics != nil {
			s.metrics.AuditSessionsDecided.WithLabelValues(string(session.Status)).Inc()
		}
		if session.Status == StatusApproved {
			s.raiseDiscrepancyAlerts(ctx, session)
		}
	}
	s.logger.InfoContext(ctx, "audit session decided",
		"session_id", session.ID.String(),
		"channel", string(input.Channel),
		"decision", string(input.Decision),
		"status", string(session.Status),
	)

	_ = s.changes.Publish(ctx, notifier.ChangeEvent{
		Type:           notifier.ChangeAuditReviewed,
		ProgramID:      session.ProgramID,
		AuditSessionID: session.ID,
		OccurredAt:     now,
	})
	return session, nil
}

// Get returns one session with its lines.
func (s *Service) Get(ctx context.Context, sessionID id.AuditSessionID) (*AuditSession, error) {
	if sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "session_id is required")
	}
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "audit session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit session")
	}
	return session, nil
}

// GetPending lists a program's open sessions, oldest first, with lines.
func (s *Service) GetPending(ctx context.Context, programID id.ProgramID) ([]*AuditSession, error) {
	if programID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "program_id is required")
	}
	sessions, err := s.store.ListPending(ctx, programID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending audit sessions")
	}
	return sessions, nil
}

// commitApproval writes every observed count into the registry. The registry
// applies them atomically: either all medications take their audited counts
// or none do, and a frozen medication rejects the whole approval.
func (s *Service) commitApproval(ctx context.Context, session *AuditSession) error {
	observed := make(map[id.MedicationID]int, len(session.Lines))
	for _, line := range session.Lines {
		observed[line.MedicationID] = line.CurrentCount
	}
	reason := fmt.Sprintf("audit session %s approved", session.ID)
	return s.reg.CommitObservedCounts(ctx, observed, reason)
}

func (s *Service) raiseDiscrepancyAlerts(ctx context.Context, session *AuditSession) {
	if s.alerts == nil {
		return
	}
	for _, line := range session.Lines {
		if line.Variance == 0 {
			continue
		}
		_, err := s.alerts.Raise(ctx, alerts.RaiseInput{
			ProgramID:    session.ProgramID,
			ResidentID:   line.ResidentID,
			MedicationID: line.MedicationID,
			Severity:     alerts.SeverityWarning,
			Title:        "Count discrepancy",
			Description: fmt.Sprintf("%s expected %d, counted %d (variance %+d)",
				line.MedicationName, line.PreviousCount, line.CurrentCount, line.Variance),
		})
		if err != nil {
			s.logger.WarnContext(ctx, "discrepancy alert failed",
				"session_id", session.ID.String(),
				"medication_id", line.MedicationID.String(),
				"error", err,
			)
		}
	}
}
