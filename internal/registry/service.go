package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"medledger/internal/alerts"
	"medledger/internal/directory"
	"medledger/internal/notifier"
	"medledger/internal/platform/metrics"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/platform/sentinel"
	"medledger/pkg/requestcontext"
)

// AlertRaiser is the slice of the alert service the registry needs for the
// low-inventory policy.
type AlertRaiser interface {
	Raise(ctx context.Context, input alerts.RaiseInput) (*alerts.Alert, error)
}

// Service is the single authority for medication counts. All other modules
// route count mutations through it rather than writing storage directly.
type Service struct {
	store    Store
	dir      directory.Directory
	alerts   AlertRaiser
	changes  notifier.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	lowStock int
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

// WithLowStockThreshold overrides the COUNTABLE inventory level at or below
// which a low-inventory alert is raised.
func WithLowStockThreshold(threshold int) Option {
	return func(s *Service) { s.lowStock = threshold }
}

// DefaultLowStockThreshold applies when the deployment does not configure one.
const DefaultLowStockThreshold = 10

func New(store Store, dir directory.Directory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("medication store is required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory is required")
	}
	svc := &Service{
		store:    store,
		dir:      dir,
		changes:  notifier.Nop{},
		logger:   slog.Default(),
		lowStock: DefaultLowStockThreshold,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create registers a new medication record with CurrentCount = InitialCount
// and status ACTIVE. The resident must resolve in the directory and belong to
// the target program.
func (s *Service) Create(ctx context.Context, programID id.ProgramID, input CreateInput) (*MedicationRecord, error) {
	if programID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "program_id is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	resident, err := s.dir.Resident(ctx, input.ResidentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "resident not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve resident")
	}
	if resident.ProgramID != programID {
		return nil, dErrors.New(dErrors.CodeValidation, "resident does not belong to this program")
	}

	record := newMedicationRecord(programID, resident.Name, input, requestcontext.Now(ctx))
	if err := s.store.Insert(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist medication record")
	}

	if s.metrics != nil {
		s.metrics.MedicationsCreated.Inc()
	}
	_ = s.changes.Publish(ctx, notifier.ChangeEvent{
		Type:         notifier.ChangeMedicationAdded,
		ProgramID:    programID,
		ResidentID:   record.ResidentID,
		MedicationID: record.ID,
		OccurredAt:   record.CreatedAt,
	})

	return record, nil
}

// MutateCount applies a delta to the record's count under the handling-class
// rules and returns the new count. COUNTABLE clamps at zero, NON_COUNTABLE is
// pinned at 1, RECORD_ONLY leaves the stored count untouched. The caller owns
// the change-description for the operation that triggered the mutation.
func (s *Service) MutateCount(ctx context.Context, medicationID id.MedicationID, delta int, reason string) (int, error) {
	if medicationID.IsNil() {
		return 0, dErrors.New(dErrors.CodeValidation, "medication_id is required")
	}

	now := requestcontext.Now(ctx)
	var previous int
	record, err := s.store.Mutate(ctx, medicationID, func(m *MedicationRecord) error {
		if m.Status.countFrozen() {
			return dErrors.Newf(dErrors.CodeInvalidState, "medication is %s", m.Status)
		}
		previous = m.CurrentCount
		switch m.HandlingClass {
		case Countable:
			m.CurrentCount = max(0, m.CurrentCount+delta)
		case NonCountable:
			m.CurrentCount = 1
		case RecordOnly:
			// Stored count is informational; nothing changes.
		}
		m.touch(now)
		return nil
	})
	if err != nil {
		return 0, s.translateMutateErr(err)
	}

	s.logger.InfoContext(ctx, "medication count mutated",
		"medication_id", medicationID.String(),
		"delta", delta,
		"previous", previous,
		"current", record.CurrentCount,
		"reason", reason,
	)
	s.evaluateLowStock(ctx, record, previous)
	return record.CurrentCount, nil
}

// SetCount overwrites the count with an audited observation. Only the
// approval workflow calls this; it bypasses the delta rules because the
// physical count is authoritative once dual sign-off lands.
func (s *Service) SetCount(ctx context.Context, medicationID id.MedicationID, observed int, reason string) (int, error) {
	if observed < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "observed count must not be negative")
	}
	now := requestcontext.Now(ctx)
	var previous int
	record, err := s.store.Mutate(ctx, medicationID, func(m *MedicationRecord) error {
		if m.Status.countFrozen() {
			return dErrors.Newf(dErrors.CodeInvalidState, "medication is %s", m.Status)
		}
		previous = m.CurrentCount
		if m.HandlingClass == Countable {
			m.CurrentCount = observed
		}
		m.touch(now)
		return nil
	})
	if err != nil {
		return 0, s.translateMutateErr(err)
	}

	s.logger.InfoContext(ctx, "medication count overwritten by audit",
		"medication_id", medicationID.String(),
		"previous", previous,
		"current", record.CurrentCount,
		"reason", reason,
	)
	s.evaluateLowStock(ctx, record, previous)
	return record.CurrentCount, nil
}

// CommitObservedCounts applies a set of audited overwrites atomically: all
// medications take their observed counts or none do. Used by audit approval.
func (s *Service) CommitObservedCounts(ctx context.Context, observed map[id.MedicationID]int, reason string) error {
	if len(observed) == 0 {
		return nil
	}
	medicationIDs := make([]id.MedicationID, 0, len(observed))
	for medicationID := range observed {
		medicationIDs = append(medicationIDs, medicationID)
	}

	now := requestcontext.Now(ctx)
	previous := make(map[id.MedicationID]int, len(observed))
	records, err := s.store.MutateMany(ctx, medicationIDs, func(m *MedicationRecord) error {
		if m.Status.countFrozen() {
			return dErrors.Newf(dErrors.CodeInvalidState, "medication is %s", m.Status)
		}
		previous[m.ID] = m.CurrentCount
		if m.HandlingClass == Countable {
			m.CurrentCount = observed[m.ID]
		}
		m.touch(now)
		return nil
	})
	if err != nil {
		return s.translateMutateErr(err)
	}

	s.logger.InfoContext(ctx, "audited counts committed",
		"medications", len(records),
		"reason", reason,
	)
	for _, record := range records {
		s.evaluateLowStock(ctx, record, previous[record.ID])
	}
	return nil
}

// SetStatus moves the record through its lifecycle. DELETED is terminal.
func (s *Service) SetStatus(ctx context.Context, medicationID id.MedicationID, status Status) (*MedicationRecord, error) {
	if !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid medication status %q", status)
	}
	now := requestcontext.Now(ctx)
	record, err := s.store.Mutate(ctx, medicationID, func(m *MedicationRecord) error {
		if m.Status == StatusDeleted {
			return dErrors.New(dErrors.CodeInvalidState, "medication is deleted")
		}
		m.Status = status
		m.touch(now)
		return nil
	})
	if err != nil {
		return nil, s.translateMutateErr(err)
	}
	return record, nil
}

// Get returns one medication record.
func (s *Service) Get(ctx context.Context, medicationID id.MedicationID) (*MedicationRecord, error) {
	record, err := s.store.Get(ctx, medicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "medication not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load medication")
	}
	return record, nil
}

// ListByProgram returns a program's non-deleted medication records.
func (s *Service) ListByProgram(ctx context.Context, programID id.ProgramID) ([]*MedicationRecord, error) {
	records, err := s.store.ListByProgram(ctx, programID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list medications")
	}
	return records, nil
}

// ListByResident returns a resident's non-deleted medication records.
func (s *Service) ListByResident(ctx context.Context, residentID id.ResidentID) ([]*MedicationRecord, error) {
	records, err := s.store.ListByResident(ctx, residentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list medications")
	}
	return records, nil
}

func (s *Service) translateMutateErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "medication not found")
	case dErrors.HasCode(err, dErrors.CodeInvalidState), dErrors.HasCode(err, dErrors.CodeValidation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mutate medication count")
	}
}

// evaluateLowStock applies the low-inventory policy after a committed count
// change. Edge-triggered: an alert fires only when the count crosses the
// threshold (or hits zero), not on every mutation below it.
func (s *Service) evaluateLowStock(ctx context.Context, record *MedicationRecord, previous int) {
	if s.alerts == nil || record.HandlingClass != Countable {
		return
	}
	current := record.CurrentCount

	var input alerts.RaiseInput
	switch {
	case current == 0 && previous > 0:
		input = alerts.RaiseInput{
			ProgramID:    record.ProgramID,
			ResidentID:   record.ResidentID,
			MedicationID: record.ID,
			Severity:     alerts.SeverityCritical,
			Title:        "Medication supply exhausted",
			Description:  fmt.Sprintf("%s for %s has 0 units remaining", record.Name, record.ResidentName),
		}
	case current <= s.lowStock && previous > s.lowStock:
		input = alerts.RaiseInput{
			ProgramID:    record.ProgramID,
			ResidentID:   record.ResidentID,
			MedicationID: record.ID,
			Severity:     alerts.SeverityWarning,
			Title:        "Medication inventory low",
			Description:  fmt.Sprintf("%s for %s is down to %d units", record.Name, record.ResidentName, current),
		}
	default:
		return
	}

	if _, err := s.alerts.Raise(ctx, input); err != nil {
		s.logger.WarnContext(ctx, "low-stock alert failed",
			"medication_id", record.ID.String(),
			"error", err,
		)
	}
}
