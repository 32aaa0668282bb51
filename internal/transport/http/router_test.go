package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"medledger/internal/administration"
	"medledger/internal/alerts"
	"medledger/internal/directory"
	"medledger/internal/jwttoken"
	"medledger/internal/medaudit"
	"medledger/internal/platform/metrics"
	"medledger/internal/registry"
	id "medledger/pkg/domain"
)

// RouterSuite drives the whole subsystem through the HTTP surface: real
// services on in-memory stores behind the full middleware chain.
type RouterSuite struct {
	suite.Suite
	router     http.Handler
	token      string
	programID  id.ProgramID
	residentID id.ResidentID
	staffID    id.StaffID
}

func (s *RouterSuite) SetupTest() {
	s.programID = id.NewProgramID()
	s.residentID = id.NewResidentID()
	s.staffID = id.NewStaffID()

	dir := directory.NewInMemory()
	dir.SeedProgram(s.programID, "Maple House")
	dir.SeedResident(s.residentID, s.programID, "Jordan Reyes")
	dir.SeedStaff(s.staffID, "Sam Whitfield")

	testMetrics := metrics.NewForTest()
	alertSvc, err := alerts.New(alerts.NewInMemoryStore(), alerts.WithMetrics(testMetrics))
	require.NoError(s.T(), err)
	regSvc, err := registry.New(registry.NewInMemoryStore(), dir,
		registry.WithAlertRaiser(alertSvc), registry.WithMetrics(testMetrics))
	require.NoError(s.T(), err)
	doseSvc, err := administration.New(administration.NewInMemoryStore(), regSvc, dir,
		administration.WithAlertRaiser(alertSvc), administration.WithMetrics(testMetrics))
	require.NoError(s.T(), err)
	auditSvc, err := medaudit.New(medaudit.NewInMemoryStore(), regSvc, dir,
		medaudit.WithAlertRaiser(alertSvc), medaudit.WithDoseLog(doseSvc), medaudit.WithMetrics(testMetrics))
	require.NoError(s.T(), err)

	jwt := jwttoken.NewService("router-suite-signing-key", "medledger-test")
	s.token, err = jwt.GenerateToken(s.staffID, time.Hour)
	require.NoError(s.T(), err)

	s.router = NewRouter(Deps{
		Registry:       regSvc,
		Doses:          doseSvc,
		Audits:         auditSvc,
		Alerts:         alertSvc,
		TokenValidator: jwt,
	})
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) createMedication(initial int) string {
	rec := s.do(http.MethodPost, "/programs/"+s.programID.String()+"/medications", map[string]any{
		"resident_id":    s.residentID.String(),
		"name":           "Methylphenidate",
		"dosage":         "10mg",
		"handling_class": "COUNTABLE",
		"initial_count":  initial,
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&created))
	require.NotEmpty(s.T(), created.ID)
	return created.ID
}

func (s *RouterSuite) TestRequiresBearerToken() {
	req := httptest.NewRequest(http.MethodGet, "/programs/"+s.programID.String()+"/medications", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestHealthAndMetricsAreOpen() {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestCreateAndListMedications() {
	s.createMedication(30)

	rec := s.do(http.MethodGet, "/programs/"+s.programID.String()+"/medications", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var list struct {
		Medications []struct {
			Name         string `json:"name"`
			CurrentCount int    `json:"current_count"`
			ResidentName string `json:"resident_name"`
		} `json:"medications"`
	}
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&list))
	require.Len(s.T(), list.Medications, 1)
	assert.Equal(s.T(), 30, list.Medications[0].CurrentCount)
	assert.Equal(s.T(), "Jordan Reyes", list.Medications[0].ResidentName)
}

func (s *RouterSuite) TestCreateMedicationRejectsBadClass() {
	rec := s.do(http.MethodPost, "/programs/"+s.programID.String()+"/medications", map[string]any{
		"resident_id":    s.residentID.String(),
		"name":           "Methylphenidate",
		"dosage":         "10mg",
		"handling_class": "UNCOUNTED",
	})
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	var envelope struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(s.T(), "validation_error", envelope.Error)
	assert.NotEmpty(s.T(), envelope.Description)
}

func (s *RouterSuite) TestLogAndListAdministrations() {
	medicationID := s.createMedication(30)

	logPath := fmt.Sprintf("/programs/%s/medications/%s/administrations", s.programID, medicationID)
	rec := s.do(http.MethodPost, logPath, map[string]any{
		"resident_id": s.residentID.String(),
		"date":        "2026-03-10",
		"time":        "08:00",
		"shift":       "MORNING",
		"action":      "ADMINISTERED",
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	var event struct {
		Action    string `json:"action"`
		StaffName string `json:"staff_name"`
	}
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&event))
	assert.Equal(s.T(), "ADMINISTERED", event.Action)
	assert.Equal(s.T(), "Sam Whitfield", event.StaffName, "actor comes from the bearer token")

	rec = s.do(http.MethodGet,
		"/programs/"+s.programID.String()+"/medications/administrations?action=ADMINISTERED", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var page struct {
		Total int `json:"total"`
	}
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(s.T(), 1, page.Total)
}

func (s *RouterSuite) TestAuditLifecycleOverHTTP() {
	medicationID := s.createMedication(27)

	openPath := "/programs/" + s.programID.String() + "/medication-audits"
	rec := s.do(http.MethodPost, openPath, map[string]any{
		"date":  "2026-03-10",
		"time":  "21:30",
		"shift": "NIGHT",
		"lines": []map[string]any{
			{"medication_record_id": medicationID, "observed_count": 25},
		},
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	var session struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		HasDiscrepancies bool   `json:"has_discrepancies"`
	}
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&session))
	assert.Equal(s.T(), "PENDING", session.Status)
	assert.True(s.T(), session.HasDiscrepancies)

	rec = s.do(http.MethodGet, openPath+"/pending", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	approvalPath := "/medication-audits/" + session.ID + "/approval"
	rec = s.do(http.MethodPost, approvalPath, map[string]any{
		"channel": "DIRECTOR", "status": "APPROVED",
	})
	require.Equal(s.T(), http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, approvalPath, map[string]any{
		"channel": "CLINICAL", "status": "APPROVED",
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var decided struct {
		Status string `json:"status"`
	}
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&decided))
	assert.Equal(s.T(), "APPROVED", decided.Status)

	// The committed count shows up through the registry surface.
	rec = s.do(http.MethodGet, "/programs/"+s.programID.String()+"/medications", nil)
	var list struct {
		Medications []struct {
			CurrentCount int `json:"current_count"`
		} `json:"medications"`
	}
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&list))
	require.Len(s.T(), list.Medications, 1)
	assert.Equal(s.T(), 25, list.Medications[0].CurrentCount)

	// Terminal sessions reject further decisions.
	rec = s.do(http.MethodPost, approvalPath, map[string]any{
		"channel": "DIRECTOR", "status": "DENIED",
	})
	assert.Equal(s.T(), http.StatusConflict, rec.Code)
}

func (s *RouterSuite) TestAlertsSurface() {
	medicationID := s.createMedication(30)

	logPath := fmt.Sprintf("/programs/%s/medications/%s/administrations", s.programID, medicationID)
	rec := s.do(http.MethodPost, logPath, map[string]any{
		"resident_id": s.residentID.String(),
		"date":        "2026-03-10",
		"time":        "08:00",
		"shift":       "MORNING",
		"action":      "REFUSED",
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet,
		"/programs/"+s.programID.String()+"/medication-alerts/active?severity=CRITICAL", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var list struct {
		Alerts []struct {
			ID       string `json:"id"`
			Severity string `json:"severity"`
		} `json:"alerts"`
	}
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&list))
	require.Len(s.T(), list.Alerts, 1)

	resolvePath := "/medication-alerts/" + list.Alerts[0].ID + "/resolve"
	rec = s.do(http.MethodPost, resolvePath, nil)
	require.Equal(s.T(), http.StatusOK, rec.Code, rec.Body.String())

	// Resolving again is an invalid state transition.
	rec = s.do(http.MethodPost, resolvePath, nil)
	assert.Equal(s.T(), http.StatusConflict, rec.Code)
}

func (s *RouterSuite) TestUnknownMedicationIs404() {
	logPath := fmt.Sprintf("/programs/%s/medications/%s/administrations",
		s.programID, id.NewMedicationID())
	rec := s.do(http.MethodPost, logPath, map[string]any{
		"resident_id": s.residentID.String(),
		"date":        "2026-03-10",
		"time":        "08:00",
		"shift":       "MORNING",
		"action":      "ADMINISTERED",
	})
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}
