package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/libervia/gateway/internal/apierr"
	"github.com/libervia/gateway/internal/tenant"
)

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.registry.ListTenantKeys(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, apierr.CodeTenantNotFound, "tenant not found")
		return
	}
	Respond(w, http.StatusOK, map[string]any{"keys": keys, "total": len(keys)})
}

type createKeyInput struct {
	Role        string `json:"role" validate:"required,oneof=public tenant_admin"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var in createKeyInput
	if !DecodeAndValidate(w, r, &in) {
		return
	}
	created, err := s.registry.CreateTenantKey(chi.URLParam(r, "id"), tenant.Role(in.Role), in.Description)
	if err != nil {
		RespondError(w, r, apierr.CodeTenantNotFound, err.Error())
		return
	}
	Respond(w, http.StatusCreated, created)
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.RevokeTenantKey(chi.URLParam(r, "id"), chi.URLParam(r, "keyId")); err != nil {
		RespondError(w, r, apierr.CodeTenantNotFound, err.Error())
		return
	}
	Respond(w, http.StatusOK, map[string]string{"status": "revoked"})
}

type rotateKeyInput struct {
	Role string `json:"role" validate:"required,oneof=public tenant_admin"`
}

func (s *Server) handleRotateKey(w http.ResponseWriter, r *http.Request) {
	var in rotateKeyInput
	if !DecodeAndValidate(w, r, &in) {
		return
	}
	created, err := s.registry.RotateTenantKey(chi.URLParam(r, "id"), tenant.Role(in.Role))
	if err != nil {
		RespondError(w, r, apierr.CodeTenantNotFound, err.Error())
		return
	}
	Respond(w, http.StatusCreated, created)
}
