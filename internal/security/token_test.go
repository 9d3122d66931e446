package security

import "testing"

func TestHMACToken_DeterministicAndVerifiable(t *testing.T) {
	t.Setenv(authPepperEnv, "a-sufficiently-long-pepper-value")
	resetPeppersForTest()
	t.Cleanup(resetPeppersForTest)

	hash, err := HMACToken("tok_abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hash) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(hash))
	}

	again, err := HMACToken("tok_abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != again {
		t.Fatal("HMACToken should be deterministic for the same input and pepper")
	}

	if !ValidateToken("tok_abc123", hash) {
		t.Fatal("ValidateToken should accept a freshly HMAC-hashed token")
	}
	if ValidateToken("tok_wrong", hash) {
		t.Fatal("ValidateToken should reject a non-matching token")
	}
}

func TestValidateToken_LegacySHA256Fallback(t *testing.T) {
	t.Setenv(authPepperEnv, "a-sufficiently-long-pepper-value")
	resetPeppersForTest()
	t.Cleanup(resetPeppersForTest)

	legacyHash := SHA256Token("legacy-token-value")
	if !ValidateToken("legacy-token-value", legacyHash) {
		t.Fatal("ValidateToken should accept a legacy SHA-256 hash")
	}
}

func TestSecureCompare(t *testing.T) {
	if !secureCompare("abc", "abc") {
		t.Fatal("expected equal strings to compare equal")
	}
	if secureCompare("abc", "abd") {
		t.Fatal("expected different strings to compare unequal")
	}
	if secureCompare("abc", "abcd") {
		t.Fatal("expected different-length strings to compare unequal")
	}
}
