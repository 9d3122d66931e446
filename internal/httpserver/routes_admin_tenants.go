package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/libervia/gateway/internal/apierr"
	"github.com/libervia/gateway/internal/telemetry"
	"github.com/libervia/gateway/internal/tenant"
)

func (s *Server) mountAdmin(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Route("/tenants", func(r chi.Router) {
			r.Use(s.auth.RequireGlobalAdmin)
			r.Get("/", s.handleListTenants)
			r.Post("/", s.handleCreateTenant)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetTenant)
				r.Patch("/", s.handleUpdateTenant)
				r.Delete("/", s.handleDeleteTenant)
				r.Post("/suspend", s.handleSuspendTenant)
				r.Post("/resume", s.handleResumeTenant)
				r.Post("/shutdown", s.handleShutdownTenantInstance)

				// Per-tenant operations: global_admin OR the matching
				// tenant's own tenant_admin key.
				r.Group(func(r chi.Router) {
					r.Use(s.pipeline.TenantFromPath("id"))
					r.Use(s.auth.RequireTenantAdminOrGlobal)

					r.Get("/audit/verify", s.handleAuditVerify)
					r.Get("/audit/verify-fast", s.handleAuditVerifyFast)
					r.Get("/audit/export", s.handleAuditExport)
					r.Get("/audit/replay", s.handleAuditReplay)
					r.Get("/events", s.handleTenantEvents)

					r.Get("/keys", s.handleListKeys)
					r.Post("/keys", s.handleCreateKey)
					r.Post("/keys/{keyId}/revoke", s.handleRevokeKey)
					r.Post("/keys/rotate", s.handleRotateKey)

					r.Get("/metrics", s.handleAdminTenantMetrics)

					r.Get("/backups", s.handleListBackups)
					r.Post("/backups", s.handleCreateBackup)
					r.Get("/backups/{backupId}", s.handleGetBackup)
					r.Post("/backups/{backupId}/restore", s.handleRestoreBackup)

					r.Post("/dr/start/{procType}", s.handleDRStart)
					r.Post("/dr/confirm/{procedureId}", s.handleDRConfirm)
				})
			})
		})

		r.Post("/shutdown-all", s.auth.RequireGlobalAdmin(http.HandlerFunc(s.handleShutdownAll)).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireGlobalAdmin)
			r.Get("/metrics", s.handleAdminMetrics)
			r.Get("/health", s.handleAdminHealth)
			r.Get("/instances", s.handleAdminInstances)
			r.Get("/query/tenants", s.handleQueryTenants)
			r.Get("/query/instances", s.handleQueryInstances)
			r.Get("/query/metrics", s.handleQueryMetrics)
			r.Get("/query/eventlog", s.handleQueryEventLog)
		})

		r.Route("/query/{id}", func(r chi.Router) {
			r.Use(s.pipeline.TenantFromPath("id"))
			r.Use(s.auth.RequireTenantAdminOrGlobal)
			r.Get("/mandates", s.handleQueryMandates)
			r.Get("/reviews", s.handleQueryReviews)
			r.Get("/consequences", s.handleQueryConsequences)
			r.Get("/dashboard", s.handleQueryDashboard)
		})
	})
}

type createTenantInput struct {
	ID                  string            `json:"id" validate:"required"`
	Name                string            `json:"name" validate:"required"`
	GenerateLegacyToken bool              `json:"generateLegacyToken,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants := s.registry.List(false)
	Respond(w, http.StatusOK, map[string]any{"tenants": tenants, "total": len(tenants)})
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var in createTenantInput
	if !DecodeAndValidate(w, r, &in) {
		return
	}
	t, err := s.registry.Register(tenant.RegisterInput{
		ID:                  in.ID,
		Name:                in.Name,
		GenerateLegacyToken: in.GenerateLegacyToken,
		Metadata:            in.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrInvalidTenantID):
			RespondError(w, r, apierr.CodeInvalidTenantID, err.Error())
		case errors.Is(err, tenant.ErrAlreadyExists):
			RespondError(w, r, apierr.CodeValidation, err.Error())
		default:
			RespondError(w, r, apierr.CodeInternal, err.Error())
		}
		return
	}
	s.metrics.SetGauge(telemetry.MetricTenantsTotal, nil, float64(len(s.registry.List(false))))
	Respond(w, http.StatusCreated, t)
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, apierr.CodeTenantNotFound, "tenant not found")
		return
	}
	Respond(w, http.StatusOK, t)
}

type updateTenantInput struct {
	Name     *string           `json:"name,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	var in updateTenantInput
	if !DecodeAndValidate(w, r, &in) {
		return
	}
	t, err := s.registry.Update(chi.URLParam(r, "id"), tenant.UpdatePartial{Name: in.Name, Metadata: in.Metadata})
	if err != nil {
		RespondError(w, r, apierr.CodeTenantNotFound, "tenant not found")
		return
	}
	Respond(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.registry.Remove(id); err != nil {
		RespondError(w, r, apierr.CodeTenantNotFound, "tenant not found")
		return
	}
	_ = s.runtime.Shutdown(id)
	Respond(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleSuspendTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.registry.Suspend(id); err != nil {
		RespondError(w, r, apierr.CodeTenantNotFound, "tenant not found")
		return
	}
	Respond(w, http.StatusOK, map[string]string{"id": id, "status": "suspended"})
}

func (s *Server) handleResumeTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.registry.Resume(id); err != nil {
		RespondError(w, r, apierr.CodeTenantNotFound, "tenant not found")
		return
	}
	Respond(w, http.StatusOK, map[string]string{"id": id, "status": "active"})
}

func (s *Server) handleShutdownTenantInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.runtime.Shutdown(id); err != nil {
		RespondError(w, r, apierr.CodeInternal, err.Error())
		return
	}
	Respond(w, http.StatusOK, map[string]string{"id": id, "status": "shutdown"})
}

func (s *Server) handleShutdownAll(w http.ResponseWriter, r *http.Request) {
	if err := s.runtime.ShutdownAll(); err != nil {
		RespondError(w, r, apierr.CodeInternal, err.Error())
		return
	}
	Respond(w, http.StatusOK, map[string]string{"status": "shutdown"})
}
