package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/libervia/gateway/internal/core"
	"github.com/libervia/gateway/internal/tenant"
)

func doRequest(h http.Handler, method, path string, headers map[string]string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
	}
}

// S1: a tenant with no keys gets dev-bypass public access and an empty
// event list back.
func TestScenario_PublicAuthHappyPath(t *testing.T) {
	h := newTestHarness(t)
	h.registerTenant(t, "acme")

	rec := doRequest(h.Server, http.MethodGet, "/api/v1/eventos", map[string]string{"X-Tenant-Id": "acme"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result core.ListEventosResult
	decodeBody(t, rec, &result)
	if result.Total != 0 || result.Limit != 50 || len(result.Eventos) != 0 {
		t.Fatalf("unexpected body: %+v", result)
	}
}

// S2: a header tenant id and a path tenant id that disagree is a 400
// TENANT_CONFLICT, naming both sides in details.
func TestScenario_CrossTenantConflict(t *testing.T) {
	h := newTestHarness(t)
	h.registerTenant(t, "acme")
	h.registerTenant(t, "globex")

	// /admin routes resolve the tenant id from the path alone
	// (TenantFromPath), so only /api/v1 — which reads X-Tenant-Id and the
	// Host subdomain — can actually disagree with itself.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/eventos", nil)
	req.Header.Set("X-Tenant-Id", "acme")
	req.Host = "globex.gateway.example.com"
	rec2 := httptest.NewRecorder()
	h.Server.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 tenant conflict, got %d: %s", rec2.Code, rec2.Body.String())
	}
	var envelope struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	}
	decodeBody(t, rec2, &envelope)
	if envelope.Code != "TENANT_CONFLICT" {
		t.Fatalf("expected TENANT_CONFLICT, got %q", envelope.Code)
	}
	if envelope.Details["headerTenant"] != "acme" {
		t.Fatalf("expected headerTenant=acme in details, got %+v", envelope.Details)
	}
}

// S3: a tenant's own public key is refused 403 INSUFFICIENT_ROLE on an
// operation that requires tenant_admin or global_admin.
func TestScenario_RoleEscalationRefused(t *testing.T) {
	h := newTestHarness(t)
	h.registerTenant(t, "acme")
	created, err := h.Registry.CreateTenantKey("acme", tenant.RolePublic, "")
	if err != nil {
		t.Fatalf("CreateTenantKey: %v", err)
	}

	rec := doRequest(h.Server, http.MethodGet, "/admin/tenants/acme/keys",
		map[string]string{"Authorization": "Bearer " + created.Token}, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Code string `json:"code"`
	}
	decodeBody(t, rec, &envelope)
	if envelope.Code != "INSUFFICIENT_ROLE" {
		t.Fatalf("expected INSUFFICIENT_ROLE, got %q", envelope.Code)
	}
}

// S4: revoking a key invalidates it immediately for subsequent requests.
func TestScenario_RevocationInvalidatesImmediately(t *testing.T) {
	h := newTestHarness(t)
	h.registerTenant(t, "acme")
	created, err := h.Registry.CreateTenantKey("acme", tenant.RoleTenantAdmin, "")
	if err != nil {
		t.Fatalf("CreateTenantKey: %v", err)
	}

	rec := doRequest(h.Server, http.MethodGet, "/admin/tenants/acme/keys",
		map[string]string{"Authorization": "Bearer " + created.Token}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 before revocation, got %d: %s", rec.Code, rec.Body.String())
	}

	if err := h.Registry.RevokeTenantKey("acme", created.KeyID); err != nil {
		t.Fatalf("RevokeTenantKey: %v", err)
	}

	rec = doRequest(h.Server, http.MethodGet, "/admin/tenants/acme/keys",
		map[string]string{"Authorization": "Bearer " + created.Token}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after revocation, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Code string `json:"code"`
	}
	decodeBody(t, rec, &envelope)
	if envelope.Code != "INVALID_TOKEN" {
		t.Fatalf("expected INVALID_TOKEN, got %q", envelope.Code)
	}
}

// S6: suspending a tenant isolates it (403 TENANT_SUSPENDED) while leaving
// other tenants unaffected.
func TestScenario_SuspendIsolatesTenant(t *testing.T) {
	h := newTestHarness(t)
	h.registerTenant(t, "acme")
	h.registerTenant(t, "globex")

	if err := h.Registry.Suspend("acme"); err != nil {
		t.Fatalf("Suspend: %v", err)
	}

	rec := doRequest(h.Server, http.MethodGet, "/api/v1/eventos", map[string]string{"X-Tenant-Id": "acme"}, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for suspended tenant, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Code string `json:"code"`
	}
	decodeBody(t, rec, &envelope)
	if envelope.Code != "TENANT_SUSPENDED" {
		t.Fatalf("expected TENANT_SUSPENDED, got %q", envelope.Code)
	}

	rec = doRequest(h.Server, http.MethodGet, "/api/v1/eventos", map[string]string{"X-Tenant-Id": "globex"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unaffected tenant, got %d: %s", rec.Code, rec.Body.String())
	}
}
