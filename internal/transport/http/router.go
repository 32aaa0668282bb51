// Package httptransport is the thin HTTP layer over the medication services.
// Handlers decode, delegate, and translate domain errors; no business logic
// lives here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medledger/internal/platform/metrics"
	"medledger/internal/platform/middleware"
)

const defaultRequestTimeout = 30 * time.Second

// Deps carries everything the router needs. Service fields are the narrow
// per-handler interfaces so tests can wire real services or fakes.
type Deps struct {
	Registry       RegistryService
	Doses          DoseService
	Audits         AuditService
	Alerts         AlertService
	TokenValidator middleware.TokenValidator
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
}

type handlers struct {
	registry RegistryService
	doses    DoseService
	audits   AuditService
	alerts   AlertService
	logger   *slog.Logger
}

// NewRouter wires the full route surface. /healthz and /metrics sit outside
// the authenticated chain; everything else requires a staff bearer token.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	h := &handlers{
		registry: d.Registry,
		doses:    d.Doses,
		audits:   d.Audits,
		alerts:   d.Alerts,
		logger:   d.Logger,
	}

	root := chi.NewRouter()
	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	root.Method(http.MethodGet, "/metrics", promhttp.Handler())

	api := chi.NewRouter()
	api.Use(middleware.Recovery(d.Logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.Logger(d.Logger))
	api.Use(middleware.Timeout(timeout))
	api.Use(middleware.ContentTypeJSON)
	if d.Metrics != nil {
		api.Use(middleware.LatencyMiddleware(d.Metrics))
	}
	api.Use(middleware.RequireAuth(d.TokenValidator, d.Logger))

	api.Route("/programs/{programID}", func(r chi.Router) {
		r.Post("/medications", h.handleCreateMedication)
		r.Get("/medications", h.handleListMedications)
		r.Post("/medications/{medicationID}/administrations", h.handleLogAdministration)
		r.Get("/medications/administrations", h.handleListAdministrations)
		r.Post("/medication-audits", h.handleOpenAuditSession)
		r.Get("/medication-audits/pending", h.handlePendingAuditSessions)
		r.Get("/medication-alerts/active", h.handleActiveAlerts)
	})
	api.Post("/medication-audits/{sessionID}/approval", h.handleDecideAuditSession)
	api.Post("/medication-alerts/{alertID}/resolve", h.handleResolveAlert)

	root.Mount("/", api)
	return root
}
