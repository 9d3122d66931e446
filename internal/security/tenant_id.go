// Package security implements the TenantSecurity component: tenant-id
// validation, safe data-directory resolution, and token hashing primitives.
package security

import (
	"fmt"
	"regexp"
	"strings"
)

// tenantIDPattern matches a normalized tenant id: lowercase alphanumerics and
// single hyphens, 3-50 characters, never starting or ending with a hyphen.
var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,48}[a-z0-9]$`)

// ReservedTenantIDs are names a tenant may never register under, since they
// collide with gateway-owned path or route segments.
var ReservedTenantIDs = map[string]struct{}{
	"admin": {}, "system": {}, "config": {}, "backup": {}, "logs": {},
	"tenants": {}, "api": {}, "public": {}, "private": {}, "internal": {},
	"root": {}, "null": {}, "undefined": {},
}

// forbiddenChars are never allowed in a tenant id, even before normalization.
const forbiddenChars = "/\\~$%\x00\r\n"

// NormalizeTenantID lowercases and trims a candidate tenant id. Validation
// must be re-run against the normalized form.
func NormalizeTenantID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateTenantID reports whether s (after normalization) is an acceptable
// tenant id: 3-50 chars, matches the slug pattern, contains no path or
// injection-sensitive characters, no double hyphen, and isn't reserved.
func ValidateTenantID(s string) error {
	if s == "" {
		return fmt.Errorf("tenant id must not be empty")
	}
	if strings.ContainsAny(s, forbiddenChars) || strings.Contains(s, "..") {
		return fmt.Errorf("tenant id contains forbidden characters")
	}

	norm := NormalizeTenantID(s)
	if len(norm) < 3 || len(norm) > 50 {
		return fmt.Errorf("tenant id must be between 3 and 50 characters")
	}
	if strings.Contains(norm, "--") {
		return fmt.Errorf("tenant id must not contain consecutive hyphens")
	}
	if !tenantIDPattern.MatchString(norm) {
		return fmt.Errorf("tenant id must match %s", tenantIDPattern.String())
	}
	if _, reserved := ReservedTenantIDs[norm]; reserved {
		return fmt.Errorf("tenant id %q is reserved", norm)
	}
	return nil
}
