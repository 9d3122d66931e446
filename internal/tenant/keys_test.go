package tenant

import "testing"

func TestCreateAndValidateTenantKey(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(RegisterInput{ID: "acme", Name: "ACME"})

	created, err := r.CreateTenantKey("acme", RolePublic, "ci key")
	if err != nil {
		t.Fatalf("CreateTenantKey: %v", err)
	}
	if created.Token == "" {
		t.Fatal("expected plaintext token on creation")
	}

	ctx, err := r.ValidateTenantToken("acme", created.Token)
	if err != nil {
		t.Fatalf("ValidateTenantToken: %v", err)
	}
	if ctx == nil || ctx.Role != RolePublic || ctx.KeyID != created.KeyID {
		t.Fatalf("expected matching auth context, got %+v", ctx)
	}

	if ctx, err := r.ValidateTenantToken("acme", "not-the-token"); err != nil || ctx != nil {
		t.Fatalf("expected nil context for wrong token, got %+v, err %v", ctx, err)
	}
}

func TestListTenantKeys_RedactsHash(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(RegisterInput{ID: "acme", Name: "ACME"})
	r.CreateTenantKey("acme", RolePublic, "")

	keys, err := r.ListTenantKeys("acme")
	if err != nil {
		t.Fatalf("ListTenantKeys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}
	if keys[0].TokenHash != "" {
		t.Fatal("expected tokenHash to be redacted")
	}
}

func TestRevokeTenantKey_IdempotentFail(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(RegisterInput{ID: "acme", Name: "ACME"})
	created, _ := r.CreateTenantKey("acme", RolePublic, "")

	if err := r.RevokeTenantKey("acme", created.KeyID); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := r.RevokeTenantKey("acme", created.KeyID); err == nil {
		t.Fatal("expected second revoke to fail")
	}

	ctx, err := r.ValidateTenantToken("acme", created.Token)
	if err != nil {
		t.Fatalf("ValidateTenantToken: %v", err)
	}
	if ctx != nil {
		t.Fatal("expected revoked key to no longer validate")
	}
}

func TestCreateTenantKey_RejectsGlobalAdminRole(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(RegisterInput{ID: "acme", Name: "ACME"})

	if _, err := r.CreateTenantKey("acme", RoleGlobalAdmin, ""); err == nil {
		t.Fatal("expected global_admin role to be rejected for tenant keys")
	}
}

func TestValidateTenantToken_LegacyAPIToken(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(RegisterInput{ID: "acme", Name: "ACME", GenerateLegacyToken: true})

	tn, _ := r.Get("acme")
	ctx, err := r.ValidateTenantToken("acme", tn.APIToken)
	if err != nil {
		t.Fatalf("ValidateTenantToken: %v", err)
	}
	if ctx == nil || ctx.Role != RolePublic || ctx.KeyID != "legacy" {
		t.Fatalf("expected legacy public auth context, got %+v", ctx)
	}
}

func TestRotateTenantKey_KeepsOldKeyIntact(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(RegisterInput{ID: "acme", Name: "ACME"})
	first, _ := r.CreateTenantKey("acme", RoleTenantAdmin, "")

	if _, err := r.RotateTenantKey("acme", RoleTenantAdmin); err != nil {
		t.Fatalf("RotateTenantKey: %v", err)
	}

	ctx, err := r.ValidateTenantToken("acme", first.Token)
	if err != nil {
		t.Fatalf("ValidateTenantToken: %v", err)
	}
	if ctx == nil {
		t.Fatal("expected original key to remain valid after rotation")
	}
}
