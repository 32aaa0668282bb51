package administration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

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

// Registry is the slice of the medication registry this module needs: record
// lookup and the single sanctioned path for count mutation.
type Registry interface {
	Get(ctx context.Context, medicationID id.MedicationID) (*registry.MedicationRecord, error)
	MutateCount(ctx context.Context, medicationID id.MedicationID, delta int, reason string) (int, error)
}

// AlertRaiser raises refused/missed-dose alerts.
type AlertRaiser interface {
	Raise(ctx context.Context, input alerts.RaiseInput) (*alerts.Alert, error)
}

// Service owns the append-only administration log.
type Service struct {
	store    Store
	registry Registry
	alerts   AlertRaiser
	dir      directory.Directory
	changes  notifier.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

func New(store Store, reg Registry, dir directory.Directory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("administration store is required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory is required")
	}
	svc := &Service{
		store:    store,
		registry: reg,
		dir:      dir,
		changes:  notifier.Nop{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Log records one dose event. ADMINISTERED decrements the registry count;
// REFUSED and MISSED raise a CRITICAL alert. Exactly one change-description
// is emitted per logged event, whatever the action.
func (s *Service) Log(ctx context.Context, input LogInput) (*Event, error) {
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
	resident, err := s.dir.Resident(ctx, input.ResidentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "resident not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve resident")
	}
	medication, err := s.registry.Get(ctx, input.MedicationID)
	if err != nil {
		return nil, err
	}
	if medication.ResidentID != input.ResidentID {
		return nil, dErrors.New(dErrors.CodeValidation, "medication does not belong to this resident")
	}

	// Mutate the count before appending so a frozen medication rejects the
	// whole operation and no orphaned event lands in the log.
	if input.Action == ActionAdministered {
		if _, err := s.registry.MutateCount(ctx, medication.ID, -1, "dose administered"); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	event := &Event{
		ID:           id.NewAdministrationID(),
		ProgramID:    medication.ProgramID,
		ResidentID:   resident.ID,
		ResidentName: resident.Name,
		MedicationID: medication.ID,
		Medication:   medication.Name,
		Date:         input.Date,
		Time:         input.Time,
		Shift:        input.Shift,
		Action:       input.Action,
		WasLate:      input.WasLate,
		MinutesLate:  input.MinutesLate,
		Notes:        input.Notes,
		StaffID:      staff.ID,
		StaffName:    staff.Name,
		CreatedAt:    now,
	}
	if err := s.store.Append(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist administration event")
	}

	if s.metrics != nil {
		s.metrics.AdministrationsLogged.WithLabelValues(string(event.Action)).Inc()
	}
	s.raiseDoseAlert(ctx, event, medication)

	_ = s.changes.Publish(ctx, notifier.ChangeEvent{
		Type:         notifier.ChangeMedicationAdministered,
		ProgramID:    event.ProgramID,
		ResidentID:   event.ResidentID,
		MedicationID: event.MedicationID,
		OccurredAt:   now,
	})

	return event, nil
}

// List returns a page of a program's dose events, newest first.
func (s *Service) List(ctx context.Context, programID id.ProgramID, filter ListFilter) (*Page, error) {
	if programID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "program_id is required")
	}
	if filter.Shift != "" && !filter.Shift.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid shift %q", filter.Shift)
	}
	if filter.Action != "" && !filter.Action.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid action %q", filter.Action)
	}

	page, err := s.store.List(ctx, programID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list administration events")
	}
	return page, nil
}

// LastFor returns the most recent event for a medication, or nil when the
// medication has never been administered. Audit lines use it for
// chain-of-custody attribution of the prior count.
func (s *Service) LastFor(ctx context.Context, medicationID id.MedicationID) (*Event, error) {
	event, err := s.store.LastByMedication(ctx, medicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load last administration event")
	}
	return event, nil
}

func (s *Service) raiseDoseAlert(ctx context.Context, event *Event, medication *registry.MedicationRecord) {
	if s.alerts == nil {
		return
	}
	var title string
	switch event.Action {
	case ActionRefused:
		title = "Dose refused"
	case ActionMissed:
		title = "Dose missed"
	default:
		return
	}

	_, err := s.alerts.Raise(ctx, alerts.RaiseInput{
		ProgramID:    event.ProgramID,
		ResidentID:   event.ResidentID,
		MedicationID: event.MedicationID,
		Severity:     alerts.SeverityCritical,
		Title:        title,
		Description: fmt.Sprintf("%s %s %s (%s) on the %s shift",
			event.ResidentName, describeAction(event.Action), medication.Name, medication.Dosage, event.Shift),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "dose alert failed",
			"medication_id", event.MedicationID.String(),
			"action", string(event.Action),
			"error", err,
		)
	}
}

func describeAction(a Action) string {
	switch a {
	case ActionRefused:
		return "refused"
	case ActionMissed:
		return "missed"
	default:
		return string(a)
	}
}
