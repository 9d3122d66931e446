package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/libervia/gateway/internal/apierr"
	"github.com/libervia/gateway/internal/telemetry"
)

func (s *Server) handleAdminMetrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.UpdateRuntimeMetrics()
	Respond(w, http.StatusOK, s.metrics.GenerateSnapshot(""))
}

func (s *Server) handleAdminHealth(w http.ResponseWriter, r *http.Request) {
	report := s.metrics.OperationalHealth()
	status := http.StatusOK
	if report.Status == telemetry.StatusCritical {
		status = http.StatusServiceUnavailable
	}
	Respond(w, status, report)
}

func (s *Server) handleAdminInstances(w http.ResponseWriter, r *http.Request) {
	active := s.runtime.ListActive()
	Respond(w, http.StatusOK, map[string]any{"instances": active, "total": len(active)})
}

func (s *Server) handleQueryTenants(w http.ResponseWriter, r *http.Request) {
	tenants := s.registry.List(false)
	Respond(w, http.StatusOK, map[string]any{"tenants": tenants, "total": len(tenants)})
}

func (s *Server) handleQueryInstances(w http.ResponseWriter, r *http.Request) {
	all := s.runtime.GetAllMetrics()
	Respond(w, http.StatusOK, map[string]any{"instances": all, "total": len(all)})
}

func (s *Server) handleQueryMetrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.UpdateRuntimeMetrics()
	Respond(w, http.StatusOK, s.metrics.GenerateSnapshot(""))
}

func (s *Server) handleQueryEventLog(w http.ResponseWriter, r *http.Request) {
	active := s.runtime.ListActive()
	out := make(map[string]any, len(active))
	for _, id := range active {
		ci, ok := s.runtime.Get(id)
		if !ok {
			continue
		}
		status, err := ci.Core.EventLogStatusReport()
		if err != nil {
			continue
		}
		out[id] = status
	}
	Respond(w, http.StatusOK, map[string]any{"tenants": out, "total": len(out)})
}

func (s *Server) handleQueryMandates(w http.ResponseWriter, r *http.Request) {
	s.handleQueryEntityStore(w, r, "AutonomyMandates")
}

func (s *Server) handleQueryReviews(w http.ResponseWriter, r *http.Request) {
	s.handleQueryEntityStore(w, r, "ReviewCases")
}

func (s *Server) handleQueryConsequences(w http.ResponseWriter, r *http.Request) {
	s.handleQueryEntityStore(w, r, "ObservacoesDeConsequencia")
}

func (s *Server) handleQueryEntityStore(w http.ResponseWriter, r *http.Request, entityType string) {
	id := chi.URLParam(r, "id")
	ci, err := s.runtime.GetOrCreate(id)
	if err != nil {
		RespondError(w, r, apierr.CodeTenantNotFound, err.Error())
		return
	}
	store, err := ci.Core.EntityStoreFor(entityType)
	if err != nil {
		RespondError(w, r, apierr.CodeInternal, err.Error())
		return
	}
	items := store.All()
	Respond(w, http.StatusOK, map[string]any{"entityType": entityType, "items": items, "total": store.Count()})
}

// handleQueryDashboard aggregates a tenant's core metrics with its three
// supplementary entity counts into a single operator-facing summary.
func (s *Server) handleQueryDashboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ci, err := s.runtime.GetOrCreate(id)
	if err != nil {
		RespondError(w, r, apierr.CodeTenantNotFound, err.Error())
		return
	}
	mandates, _ := ci.Core.EntityStoreFor("AutonomyMandates")
	reviews, _ := ci.Core.EntityStoreFor("ReviewCases")
	consequences, _ := ci.Core.EntityStoreFor("ObservacoesDeConsequencia")

	Respond(w, http.StatusOK, map[string]any{
		"tenantId":        id,
		"coreMetrics":     ci.Metrics(),
		"mandateCount":    countOrZero(mandates),
		"reviewCount":     countOrZero(reviews),
		"consequenceCount": countOrZero(consequences),
	})
}

type counter interface{ Count() int }

func countOrZero(c counter) int {
	if c == nil {
		return 0
	}
	return c.Count()
}
