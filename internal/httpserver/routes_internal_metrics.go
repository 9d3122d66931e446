package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/libervia/gateway/internal/telemetry"
)

func (s *Server) mountInternal(r chi.Router) {
	r.Route("/internal", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireGlobalAdmin)
			r.Get("/metrics", s.handleInternalMetricsText)
			r.Get("/metrics/json", s.handleInternalMetricsJSON)
			r.Get("/health/operational", s.handleOperationalHealth)
			r.Get("/health/operational/status", s.handleOperationalHealthStatus)
		})

		r.Route("/tenants/{id}", func(r chi.Router) {
			r.Use(s.pipeline.TenantFromPath("id"))
			r.Use(s.auth.RequireTenantSelfOrGlobal)
			r.Get("/metrics", s.handleInternalTenantMetricsJSON)
			r.Get("/metrics/json", s.handleInternalTenantMetricsJSON)
		})
	})
}

func (s *Server) handleInternalMetricsText(w http.ResponseWriter, r *http.Request) {
	s.metrics.UpdateRuntimeMetrics()
	s.metrics.PrometheusHandler().ServeHTTP(w, r)
}

func (s *Server) handleInternalMetricsJSON(w http.ResponseWriter, r *http.Request) {
	s.metrics.UpdateRuntimeMetrics()
	Respond(w, http.StatusOK, s.metrics.GenerateSnapshot(""))
}

func (s *Server) handleInternalTenantMetricsJSON(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	Respond(w, http.StatusOK, s.metrics.GenerateSnapshot(id))
}

func (s *Server) handleOperationalHealth(w http.ResponseWriter, r *http.Request) {
	report := s.metrics.OperationalHealth()
	status := http.StatusOK
	if report.Status == telemetry.StatusCritical {
		status = http.StatusServiceUnavailable
	}
	Respond(w, status, report)
}

func (s *Server) handleOperationalHealthStatus(w http.ResponseWriter, r *http.Request) {
	report := s.metrics.OperationalHealth()
	status := http.StatusOK
	if report.Status == telemetry.StatusCritical {
		status = http.StatusServiceUnavailable
	}
	Respond(w, status, map[string]any{"status": report.Status, "summary": report.Summary})
}
