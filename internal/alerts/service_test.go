package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"medledger/internal/notifier"
	"medledger/internal/platform/metrics"
	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/requestcontext"
)

// ServiceSuite runs the alert lifecycle against the real in-memory store.
type ServiceSuite struct {
	suite.Suite
	svc       *Service
	changes   *notifier.Memory
	programID id.ProgramID
	staffID   id.StaffID
}

func (s *ServiceSuite) SetupTest() {
	s.changes = notifier.NewMemory()
	svc, err := New(NewInMemoryStore(),
		WithNotifier(s.changes),
		WithMetrics(metrics.NewForTest()),
	)
	require.NoError(s.T(), err)
	s.svc = svc
	s.programID = id.NewProgramID()
	s.staffID = id.NewStaffID()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) raise(severity Severity, title string) *Alert {
	alert, err := s.svc.Raise(context.Background(), RaiseInput{
		ProgramID: s.programID,
		Severity:  severity,
		Title:     title,
	})
	require.NoError(s.T(), err)
	return alert
}

func (s *ServiceSuite) TestRaise_SetsActiveAndEmitsChange() {
	alert := s.raise(SeverityCritical, "Dose refused")

	assert.Equal(s.T(), StatusActive, alert.Status)
	assert.False(s.T(), alert.RaisedAt.IsZero())

	events := s.changes.EventsOfType(notifier.ChangeNewAlert)
	require.Len(s.T(), events, 1)
	assert.Equal(s.T(), alert.ID, events[0].AlertID)
	assert.Equal(s.T(), s.programID, events[0].ProgramID)
}

func (s *ServiceSuite) TestRaise_RejectsMissingFields() {
	_, err := s.svc.Raise(context.Background(), RaiseInput{Severity: SeverityInfo, Title: "x"})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Raise(context.Background(), RaiseInput{ProgramID: s.programID, Severity: "LOUD", Title: "x"})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestResolve_MarksResolved() {
	alert := s.raise(SeverityWarning, "Low inventory")

	resolved, err := s.svc.Resolve(context.Background(), alert.ID, s.staffID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), StatusResolved, resolved.Status)
	assert.Equal(s.T(), s.staffID, resolved.ResolvedBy)
	require.NotNil(s.T(), resolved.ResolvedAt)

	events := s.changes.EventsOfType(notifier.ChangeAlertResolved)
	require.Len(s.T(), events, 1)
	assert.Equal(s.T(), alert.ID, events[0].AlertID)
}

func (s *ServiceSuite) TestResolve_TwiceFailsWithInvalidState() {
	alert := s.raise(SeverityWarning, "Low inventory")

	_, err := s.svc.Resolve(context.Background(), alert.ID, s.staffID)
	require.NoError(s.T(), err)

	_, err = s.svc.Resolve(context.Background(), alert.ID, s.staffID)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestResolve_UnknownAlertIsNotFound() {
	_, err := s.svc.Resolve(context.Background(), id.NewAlertID(), s.staffID)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestListActive_Filters() {
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	residentID := id.NewResidentID()

	oldCtx := requestcontext.WithTime(context.Background(), base.Add(-48*time.Hour))
	_, err := s.svc.Raise(oldCtx, RaiseInput{ProgramID: s.programID, Severity: SeverityInfo, Title: "old"})
	require.NoError(s.T(), err)

	recentCtx := requestcontext.WithTime(context.Background(), base)
	critical, err := s.svc.Raise(recentCtx, RaiseInput{
		ProgramID:  s.programID,
		ResidentID: residentID,
		Severity:   SeverityCritical,
		Title:      "refused",
	})
	require.NoError(s.T(), err)

	resolvedAlert, err := s.svc.Raise(recentCtx, RaiseInput{ProgramID: s.programID, Severity: SeverityCritical, Title: "resolved later"})
	require.NoError(s.T(), err)
	_, err = s.svc.Resolve(context.Background(), resolvedAlert.ID, s.staffID)
	require.NoError(s.T(), err)

	s.Run("severity filter", func() {
		out, err := s.svc.ListActive(context.Background(), s.programID, ListFilter{Severity: SeverityCritical})
		require.NoError(s.T(), err)
		require.Len(s.T(), out, 1)
		assert.Equal(s.T(), critical.ID, out[0].ID)
	})

	s.Run("resident filter", func() {
		out, err := s.svc.ListActive(context.Background(), s.programID, ListFilter{ResidentID: residentID})
		require.NoError(s.T(), err)
		require.Len(s.T(), out, 1)
		assert.Equal(s.T(), critical.ID, out[0].ID)
	})

	s.Run("recency window excludes old alerts", func() {
		out, err := s.svc.ListActive(context.Background(), s.programID, ListFilter{Since: base.Add(-time.Hour)})
		require.NoError(s.T(), err)
		require.Len(s.T(), out, 1)
		assert.Equal(s.T(), critical.ID, out[0].ID)
	})

	s.Run("no filter returns all active", func() {
		out, err := s.svc.ListActive(context.Background(), s.programID, ListFilter{})
		require.NoError(s.T(), err)
		assert.Len(s.T(), out, 2)
	})
}
