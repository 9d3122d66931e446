package telemetry

import "testing"

func TestCollapseDynamicSegments(t *testing.T) {
	cases := map[string]string{
		"/admin/tenants/550e8400-e29b-41d4-a716-446655440000/audit/verify": "/admin/tenants/:id/audit/verify",
		"/admin/tenants/12345/keys":                                       "/admin/tenants/:id/keys",
		"/admin/tenants/a-very-long-lowercase-tenant-slug/metrics":        "/admin/tenants/:id/metrics",
		"/health":         "/health",
		"/api/v1/eventos": "/api/v1/eventos",
		"/api/v1/episodios/ep-1":                     "/api/v1/episodios/ep-1",
		"/api/v1/episodios/episodio-20260115-000123":  "/api/v1/episodios/:id",
	}
	for in, want := range cases {
		if got := collapseDynamicSegments(in); got != want {
			t.Errorf("collapseDynamicSegments(%q) = %q, want %q", in, got, want)
		}
	}
}
