package apierr

import "testing"

func TestNew_HumanizesCode(t *testing.T) {
	e := New(CodeTenantConflict, "conflicting tenant ids")
	if e.Err != "tenant conflict" {
		t.Fatalf("expected humanized error string, got %q", e.Err)
	}
	if e.Code != CodeTenantConflict {
		t.Fatalf("expected code to round-trip, got %q", e.Code)
	}
}

func TestWithDetailsAndRequestID_DoNotMutateOriginal(t *testing.T) {
	base := New(CodeTenantConflict, "conflict")
	withDetails := base.WithDetails(map[string]any{"headerTenant": "acme"})
	withID := withDetails.WithRequestID("req-1")

	if base.Details != nil {
		t.Fatal("expected original error to remain without details")
	}
	if withID.Details["headerTenant"] != "acme" {
		t.Fatal("expected details to carry through")
	}
	if withID.RequestID != "req-1" {
		t.Fatal("expected request id to be set")
	}
}

func TestHTTPStatus_KnownCodes(t *testing.T) {
	cases := map[Code]int{
		CodeMissingToken:   401,
		CodeInvalidToken:   401,
		CodeInsufficientRole: 403,
		CodeTenantSuspended:  403,
		CodeTenantNotFound:   404,
		CodeRateLimited:      429,
		CodeRestoreRejected:  422,
		CodeDRProcedureError: 500,
	}
	for code, want := range cases {
		if got := HTTPStatus(code); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}
