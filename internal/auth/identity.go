// Package auth implements the gateway's authentication and RBAC policy:
// global-admin token loading and the fixed route-class authorization
// rules of spec §4.6.
package auth

import (
	"context"

	"github.com/libervia/gateway/internal/tenant"
)

// Method describes how the caller was authenticated.
type Method string

const (
	MethodGlobalAdmin Method = "global_admin_key"
	MethodLegacyAdmin Method = "legacy_admin_token"
	MethodTenantKey    Method = "tenant_key"
	MethodLegacyTenant Method = "legacy_tenant_token"
	MethodDevBypass    Method = "dev_bypass"
)

// Identity is the authenticated caller for the current request.
type Identity struct {
	Role     tenant.Role
	TenantID string // empty for a global_admin identity
	KeyID    string
	Method   Method
}

type ctxKey int

const identityCtxKey ctxKey = iota

// NewContext stores id in ctx.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// FromContext extracts the Identity stored by NewContext, or nil.
func FromContext(ctx context.Context) *Identity {
	v, _ := ctx.Value(identityCtxKey).(*Identity)
	return v
}
