package auth

import "github.com/libervia/gateway/internal/tenant"

// Roles are not hierarchical: public < tenant_admin only within a single
// tenant's scope, and global_admin additionally reaches every tenant's
// tenant_admin-scoped routes. There is no single numeric ordering that
// captures this, so RBAC is expressed as explicit per-route-class checks
// (see Middleware) rather than a roleLevel table.

// IsGlobalAdmin reports whether id authenticated as global_admin.
func IsGlobalAdmin(id *Identity) bool {
	return id != nil && id.Role == tenant.RoleGlobalAdmin
}

// IsTenantAdminFor reports whether id is a tenant_admin scoped to
// tenantID specifically (a tenant_admin key from a different tenant does
// not count).
func IsTenantAdminFor(id *Identity, tenantID string) bool {
	return id != nil && id.Role == tenant.RoleTenantAdmin && id.TenantID == tenantID
}

// IsGlobalOrTenantAdminFor reports whether id may perform tenant_admin
// scoped operations against tenantID: either a global_admin, or a
// tenant_admin of that exact tenant.
func IsGlobalOrTenantAdminFor(id *Identity, tenantID string) bool {
	return IsGlobalAdmin(id) || IsTenantAdminFor(id, tenantID)
}

// IsAtLeastPublicFor reports whether id holds any valid key (public or
// above) scoped to tenantID, or is a global_admin.
func IsAtLeastPublicFor(id *Identity, tenantID string) bool {
	if IsGlobalAdmin(id) {
		return true
	}
	return id != nil && id.TenantID == tenantID &&
		(id.Role == tenant.RolePublic || id.Role == tenant.RoleTenantAdmin)
}
