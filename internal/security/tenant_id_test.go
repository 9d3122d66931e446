package security

import "testing"

func TestValidateTenantID(t *testing.T) {
	cases := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid simple", "acme", false},
		{"valid with hyphen", "acme-corp", false},
		{"valid uppercase normalized", "ACME-Corp", false},
		{"too short", "ab", true},
		{"too long", string(make([]byte, 51)), true},
		{"leading hyphen", "-acme", true},
		{"trailing hyphen", "acme-", true},
		{"double hyphen", "ac--me", true},
		{"path traversal", "../etc", true},
		{"slash", "ac/me", true},
		{"reserved", "admin", true},
		{"reserved normalized", "ADMIN", true},
		{"empty", "", true},
		{"null byte", "ac\x00me", true},
		{"underscore not allowed", "ac_me", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTenantID(tc.id)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateTenantID(%q) error = %v, wantErr %v", tc.id, err, tc.wantErr)
			}
		})
	}
}

func TestNormalizeTenantID(t *testing.T) {
	if got := NormalizeTenantID("  Acme-Corp  "); got != "acme-corp" {
		t.Fatalf("got %q", got)
	}
}
