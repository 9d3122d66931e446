package security

import (
	"os"
	"testing"
)

func TestGetAuthPepper(t *testing.T) {
	t.Setenv(authPepperEnv, "a-sufficiently-long-pepper-value")
	resetPeppersForTest()

	got, err := GetAuthPepper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a-sufficiently-long-pepper-value" {
		t.Fatalf("got %q", got)
	}
}

func TestGetAuthPepper_MissingFails(t *testing.T) {
	os.Unsetenv(authPepperEnv)
	resetPeppersForTest()

	if _, err := GetAuthPepper(); err == nil {
		t.Fatal("expected error when pepper env var is unset")
	}
	resetPeppersForTest()
}

func TestGetAuthPepper_TooShortFails(t *testing.T) {
	t.Setenv(authPepperEnv, "short")
	resetPeppersForTest()

	if _, err := GetAuthPepper(); err == nil {
		t.Fatal("expected error when pepper is shorter than minimum length")
	}
	resetPeppersForTest()
}
