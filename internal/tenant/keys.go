package tenant

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/libervia/gateway/internal/security"
)

// CreatedKey is returned from CreateTenantKey; it's the only time the
// plaintext token is ever available.
type CreatedKey struct {
	KeyID     string    `json:"keyId"`
	Role      Role      `json:"role"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateTenantKey issues a new RBAC key for the tenant. role must be
// public or tenant_admin — global_admin keys never live on a tenant.
func (r *Registry) CreateTenantKey(id string, role Role, description string) (*CreatedKey, error) {
	if role != RolePublic && role != RoleTenantAdmin {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	tok, err := generateToken()
	if err != nil {
		return nil, err
	}
	hash, err := security.HMACToken(tok)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	t := r.findLocked(security.NormalizeTenantID(id))
	if t == nil {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	key := AuthKey{
		KeyID:       uuid.NewString(),
		Role:        role,
		TokenHash:   hash,
		Status:      KeyStatusActive,
		CreatedAt:   time.Now(),
		Description: description,
	}
	t.Keys = append(t.Keys, key)
	t.UpdatedAt = time.Now()
	r.mu.Unlock()

	if err := r.persistLocked(); err != nil {
		return nil, err
	}
	return &CreatedKey{KeyID: key.KeyID, Role: key.Role, Token: tok, CreatedAt: key.CreatedAt}, nil
}

// ListTenantKeys returns the tenant's keys with TokenHash redacted.
func (r *Registry) ListTenantKeys(id string) ([]AuthKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t := r.findLocked(security.NormalizeTenantID(id))
	if t == nil {
		return nil, ErrNotFound
	}
	out := make([]AuthKey, len(t.Keys))
	for i, k := range t.Keys {
		k.TokenHash = ""
		out[i] = k
	}
	return out, nil
}

// RevokeTenantKey marks a key revoked. Revoking an already-revoked or
// unknown key is an error (idempotent-fail per spec §8).
func (r *Registry) RevokeTenantKey(id, keyID string) error {
	r.mu.Lock()
	t := r.findLocked(security.NormalizeTenantID(id))
	if t == nil {
		r.mu.Unlock()
		return ErrNotFound
	}
	found := false
	for i := range t.Keys {
		if t.Keys[i].KeyID == keyID {
			found = true
			if t.Keys[i].Status == KeyStatusRevoked {
				r.mu.Unlock()
				return ErrKeyAlreadyRevoked
			}
			t.Keys[i].Status = KeyStatusRevoked
			break
		}
	}
	if !found {
		r.mu.Unlock()
		return ErrKeyNotFound
	}
	t.UpdatedAt = time.Now()
	r.mu.Unlock()
	return r.persistLocked()
}

// RotateTenantKey is shorthand for CreateTenantKey; it never touches the
// tenant's existing keys.
func (r *Registry) RotateTenantKey(id string, role Role) (*CreatedKey, error) {
	return r.CreateTenantKey(id, role, "rotated")
}

// ValidateTenantToken checks tok against the tenant's active keys and, as a
// fallback, its legacy apiToken. On a key match, lastUsedAt is bumped
// asynchronously — the caller never waits on that persist.
func (r *Registry) ValidateTenantToken(id, tok string) (*AuthContext, error) {
	norm := security.NormalizeTenantID(id)

	r.mu.RLock()
	t := r.findLocked(norm)
	if t == nil {
		r.mu.RUnlock()
		return nil, ErrNotFound
	}
	var matchedKeyID string
	var matchedRole Role
	for _, k := range t.Keys {
		if k.Status != KeyStatusActive {
			continue
		}
		if security.ValidateToken(tok, k.TokenHash) {
			matchedKeyID = k.KeyID
			matchedRole = k.Role
			break
		}
	}
	legacyToken := t.APIToken
	r.mu.RUnlock()

	if matchedKeyID != "" {
		r.enqueueLastUsed(norm, matchedKeyID)
		return &AuthContext{Role: matchedRole, TenantID: norm, KeyID: matchedKeyID}, nil
	}

	if legacyToken != "" && secureCompareExported(tok, legacyToken) {
		return &AuthContext{Role: RolePublic, TenantID: norm, KeyID: "legacy"}, nil
	}
	return nil, nil
}

// FindAuthContextByToken iterates every tenant looking for a matching key
// or legacy token. Used when the tenant id isn't yet known at auth time.
func (r *Registry) FindAuthContextByToken(tok string) (*AuthContext, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.cat.Tenants))
	for _, t := range r.cat.Tenants {
		ids = append(ids, t.ID)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		ctx, err := r.ValidateTenantToken(id, tok)
		if err != nil {
			continue
		}
		if ctx != nil {
			return ctx, nil
		}
	}
	return nil, nil
}

// enqueueLastUsed schedules a lastUsedAt bump without blocking the caller.
// Under back-pressure (queue full) the update is dropped — lastUsedAt is
// purely observational, so a drop never affects correctness.
func (r *Registry) enqueueLastUsed(tenantID, keyID string) {
	select {
	case r.lastUsedCh <- lastUsedAtJob{tenantID: tenantID, keyID: keyID, at: time.Now()}:
	default:
		r.logger.Debug("lastUsedAt queue saturated, dropping update", "tenant", tenantID, "key", keyID)
	}
}

// secureCompareExported wraps security's unexported constant-time compare
// for the legacy apiToken path, which the spec ties to secureCompare rather
// than validateToken (the legacy token isn't hashed at all).
func secureCompareExported(a, b string) bool {
	return security.SecureCompareLegacyToken(a, b)
}
