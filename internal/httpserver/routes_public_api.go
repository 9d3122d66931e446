package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/libervia/gateway/internal/apierr"
	"github.com/libervia/gateway/internal/auth"
	"github.com/libervia/gateway/internal/core"
	"github.com/libervia/gateway/internal/runtime"
	"github.com/libervia/gateway/internal/telemetry"
)

func (s *Server) mountPublicAPI(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.pipeline.TenantResolution)
		r.Use(s.auth.RequireAPIAccess)
		r.Use(s.pipeline.RateLimit)
		r.Use(s.instrument)

		r.Post("/decisoes", s.handleCreateDecisao)
		r.Get("/episodios/{id}", s.handleGetEpisodio)
		r.Post("/episodios/{id}/encerrar", s.handleEncerrarEpisodio)
		r.Post("/observacoes", s.handleCreateObservacao)
		r.Get("/eventos", s.handleListEventos)
		r.Get("/eventlog/status", s.handleEventLogStatus)
	})
}

func actorFrom(r *http.Request) string {
	id := auth.FromContext(r.Context())
	if id == nil {
		return "anonymous"
	}
	if id.KeyID != "" {
		return id.KeyID
	}
	return string(id.Role)
}

func (s *Server) tenantInstance(w http.ResponseWriter, r *http.Request) (*runtime.CoreInstance, bool) {
	tenantID := telemetry.TenantIDFromContext(r.Context())
	ci, err := s.runtime.GetOrCreate(tenantID)
	if err != nil {
		switch {
		case errors.Is(err, runtime.ErrTenantSuspended):
			RespondError(w, r, apierr.CodeTenantSuspended, "tenant is suspended")
		case errors.Is(err, runtime.ErrTenantNotFound), errors.Is(err, runtime.ErrTenantDeleted):
			RespondError(w, r, apierr.CodeTenantNotFound, "tenant not found")
		default:
			RespondError(w, r, apierr.CodeInternal, err.Error())
		}
		return nil, false
	}
	return ci, true
}

func (s *Server) handleCreateDecisao(w http.ResponseWriter, r *http.Request) {
	ci, ok := s.tenantInstance(w, r)
	if !ok {
		return
	}
	var in core.CreateDecisaoInput
	if !DecodeAndValidate(w, r, &in) {
		return
	}
	d, err := ci.Core.CreateDecisao(actorFrom(r), in)
	if err != nil {
		RespondError(w, r, apierr.CodeInternal, err.Error())
		return
	}
	Respond(w, http.StatusCreated, d)
}

func (s *Server) handleGetEpisodio(w http.ResponseWriter, r *http.Request) {
	ci, ok := s.tenantInstance(w, r)
	if !ok {
		return
	}
	ep, err := ci.Core.GetEpisodio(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, apierr.CodeNotFound, err.Error())
		return
	}
	Respond(w, http.StatusOK, ep)
}

func (s *Server) handleEncerrarEpisodio(w http.ResponseWriter, r *http.Request) {
	ci, ok := s.tenantInstance(w, r)
	if !ok {
		return
	}
	ep, err := ci.Core.EncerrarEpisodio(actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, apierr.CodeValidation, err.Error())
		return
	}
	Respond(w, http.StatusOK, ep)
}

func (s *Server) handleCreateObservacao(w http.ResponseWriter, r *http.Request) {
	ci, ok := s.tenantInstance(w, r)
	if !ok {
		return
	}
	var in core.CreateObservacaoInput
	if !DecodeAndValidate(w, r, &in) {
		return
	}
	o, err := ci.Core.CreateObservacao(actorFrom(r), in)
	if err != nil {
		RespondError(w, r, apierr.CodeInternal, err.Error())
		return
	}
	Respond(w, http.StatusCreated, o)
}

func (s *Server) handleListEventos(w http.ResponseWriter, r *http.Request) {
	ci, ok := s.tenantInstance(w, r)
	if !ok {
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	result, err := ci.Core.ListEventos(limit)
	if err != nil {
		RespondError(w, r, apierr.CodeInternal, err.Error())
		return
	}
	Respond(w, http.StatusOK, result)
}

func (s *Server) handleEventLogStatus(w http.ResponseWriter, r *http.Request) {
	ci, ok := s.tenantInstance(w, r)
	if !ok {
		return
	}
	status, err := ci.Core.EventLogStatusReport()
	if err != nil {
		RespondError(w, r, apierr.CodeInternal, err.Error())
		return
	}
	Respond(w, http.StatusOK, status)
}
