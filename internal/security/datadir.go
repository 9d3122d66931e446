package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveTenantDataDir constructs and validates the absolute data directory
// for a tenant: <baseDir>/tenants/<normalizedId>. The resolved path must lie
// strictly inside <baseDir>/tenants/. Creating the directory is the caller's
// responsibility — this function only resolves and validates the path.
//
// When paranoid is true, and the tenant directory already exists, the
// physical (symlink-resolved) path is re-checked for containment too, so a
// tenant directory that has been replaced with a symlink pointing outside
// the tenants root is rejected.
func ResolveTenantDataDir(baseDir, tenantID string, paranoid bool) (string, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return "", err
	}
	norm := NormalizeTenantID(tenantID)

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("resolving base dir: %w", err)
	}
	tenantsRoot := filepath.Join(absBase, "tenants")
	candidate := filepath.Join(tenantsRoot, norm)

	if err := requireContained(tenantsRoot, candidate); err != nil {
		return "", err
	}

	if paranoid {
		if _, err := os.Stat(candidate); err == nil {
			physical, err := filepath.EvalSymlinks(candidate)
			if err != nil {
				return "", fmt.Errorf("resolving physical path: %w", err)
			}
			physicalRoot, err := filepath.EvalSymlinks(tenantsRoot)
			if err != nil {
				return "", fmt.Errorf("resolving tenants root: %w", err)
			}
			if err := requireContained(physicalRoot, physical); err != nil {
				return "", fmt.Errorf("symlink escape detected")
			}
		}
	}

	return candidate, nil
}

// requireContained reports an error unless candidate is root itself or a
// strict descendant of root (root + separator + something).
func requireContained(root, candidate string) error {
	if candidate == root {
		return fmt.Errorf("resolved path must not equal the tenants root")
	}
	if !strings.HasPrefix(candidate, root+string(filepath.Separator)) {
		return fmt.Errorf("resolved path escapes the tenants directory")
	}
	return nil
}
