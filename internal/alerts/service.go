package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"medledger/internal/notifier"
	"medledger/internal/platform/metrics"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/platform/sentinel"
	"medledger/pkg/requestcontext"
)

// Service owns the alert lifecycle: raise, resolve, query.
type Service struct {
	store   Store
	changes notifier.Notifier
	logger  *slog.Logger
	metrics *metrics.Metrics
	recency *RecencyCache
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

func WithRecencyCache(c *RecencyCache) Option {
	return func(s *Service) { s.recency = c }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("alert store is required")
	}
	svc := &Service{
		store:   store,
		changes: notifier.Nop{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Raise creates an ACTIVE alert and emits a new_alert change-description.
func (s *Service) Raise(ctx context.Context, input RaiseInput) (*Alert, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	alert := &Alert{
		ID:           id.NewAlertID(),
		ProgramID:    input.ProgramID,
		ResidentID:   input.ResidentID,
		MedicationID: input.MedicationID,
		Severity:     input.Severity,
		Title:        input.Title,
		Description:  input.Description,
		Status:       StatusActive,
		RaisedAt:     requestcontext.Now(ctx),
	}

	if err := s.store.Insert(ctx, alert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist alert")
	}

	if s.metrics != nil {
		s.metrics.AlertsRaised.WithLabelValues(string(alert.Severity)).Inc()
	}
	if s.recency != nil {
		if err := s.recency.Record(ctx, alert); err != nil {
			s.logger.WarnContext(ctx, "alert recency cache write failed", "error", err)
		}
	}

	_ = s.changes.Publish(ctx, notifier.ChangeEvent{
		Type:         notifier.ChangeNewAlert,
		ProgramID:    alert.ProgramID,
		ResidentID:   alert.ResidentID,
		MedicationID: alert.MedicationID,
		AlertID:      alert.ID,
		OccurredAt:   alert.RaisedAt,
	})

	return alert, nil
}

// Resolve marks an ACTIVE alert RESOLVED by the given staff member.
func (s *Service) Resolve(ctx context.Context, alertID id.AlertID, staffID id.StaffID) (*Alert, error) {
	if alertID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "alert_id is required")
	}
	if staffID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "staff_id is required")
	}

	alert, err := s.store.Get(ctx, alertID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "alert not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load alert")
	}
	if alert.Status == StatusResolved {
		return nil, dErrors.New(dErrors.CodeInvalidState, "alert already resolved")
	}

	now := requestcontext.Now(ctx)
	alert.Status = StatusResolved
	alert.ResolvedBy = staffID
	alert.ResolvedAt = &now

	if err := s.store.Update(ctx, alert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve alert")
	}

	if s.metrics != nil {
		s.metrics.AlertsResolved.Inc()
	}

	_ = s.changes.Publish(ctx, notifier.ChangeEvent{
		Type:         notifier.ChangeAlertResolved,
		ProgramID:    alert.ProgramID,
		ResidentID:   alert.ResidentID,
		MedicationID: alert.MedicationID,
		AlertID:      alert.ID,
		OccurredAt:   now,
	})

	return alert, nil
}

// ListActive returns ACTIVE alerts for a program, newest first. When a
// recency window is requested and the cache is available, the cache narrows
// the candidate set; any cache failure falls back to the store scan.
func (s *Service) ListActive(ctx context.Context, programID id.ProgramID, filter ListFilter) ([]*Alert, error) {
	if programID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "program_id is required")
	}

	if s.recency != nil && !filter.Since.IsZero() {
		if out, err := s.listActiveFromCache(ctx, programID, filter); err == nil {
			return out, nil
		} else {
			s.logger.WarnContext(ctx, "alert recency cache read failed, falling back to store", "error", err)
		}
	}

	out, err := s.store.ListActive(ctx, programID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list alerts")
	}
	return out, nil
}

func (s *Service) listActiveFromCache(ctx context.Context, programID id.ProgramID, filter ListFilter) ([]*Alert, error) {
	ids, err := s.recency.RecentIDs(ctx, programID, filter.Since)
	if err != nil {
		return nil, err
	}
	out := make([]*Alert, 0, len(ids))
	for _, alertID := range ids {
		alert, err := s.store.Get(ctx, alertID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if alert.Status != StatusActive {
			continue
		}
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		if !filter.ResidentID.IsNil() && alert.ResidentID != filter.ResidentID {
			continue
		}
		out = append(out, alert)
	}
	return out, nil
}
