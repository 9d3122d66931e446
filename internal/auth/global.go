package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/libervia/gateway/internal/security"
	"github.com/libervia/gateway/internal/tenant"
)

// GlobalKeyStatus mirrors tenant.KeyStatus for global-admin keys.
type GlobalKeyStatus string

const (
	GlobalKeyActive  GlobalKeyStatus = "active"
	GlobalKeyRevoked GlobalKeyStatus = "revoked"
)

// GlobalKey is one entry in the global-admin config file.
type GlobalKey struct {
	KeyID       string          `json:"keyId"`
	TokenHash   string          `json:"tokenHash"`
	Status      GlobalKeyStatus `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	Description string          `json:"description,omitempty"`
}

type globalConfig struct {
	Keys       []GlobalKey `json:"keys"`
	AdminToken string      `json:"adminToken,omitempty"`
}

// GlobalAdminStore holds the boot-time loaded set of global_admin
// credentials: a list of keyed tokens plus a single legacy plaintext token.
type GlobalAdminStore struct {
	keys       []GlobalKey
	legacyToken string
}

// LoadGlobalAdminStore reads config/global.json at path. A missing file
// yields an empty store (no global_admin credentials configured); callers
// typically also accept a legacy token via environment/flag, set
// separately with WithLegacyToken.
func LoadGlobalAdminStore(path string) (*GlobalAdminStore, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &GlobalAdminStore{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading global admin config: %w", err)
	}

	var cfg globalConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("malformed global admin config: %w", err)
	}
	return &GlobalAdminStore{keys: cfg.Keys, legacyToken: cfg.AdminToken}, nil
}

// WithLegacyToken returns a copy of the store carrying legacyToken as its
// fallback admin token, overriding whatever the config file set.
func (s *GlobalAdminStore) WithLegacyToken(legacyToken string) *GlobalAdminStore {
	return &GlobalAdminStore{keys: s.keys, legacyToken: legacyToken}
}

// Validate checks tok against the keyed global_admin entries (HMAC-first,
// SHA-256 fallback via security.ValidateToken) and, failing that, the
// legacy admin token via constant-time compare. Returns the matching
// Identity, or nil if nothing matched.
func (s *GlobalAdminStore) Validate(tok string) *Identity {
	for _, k := range s.keys {
		if k.Status != GlobalKeyActive {
			continue
		}
		if security.ValidateToken(tok, k.TokenHash) {
			return &Identity{Role: tenant.RoleGlobalAdmin, KeyID: k.KeyID, Method: MethodGlobalAdmin}
		}
	}
	if s.legacyToken != "" && security.SecureCompareLegacyToken(tok, s.legacyToken) {
		return &Identity{Role: tenant.RoleGlobalAdmin, KeyID: "legacy", Method: MethodLegacyAdmin}
	}
	return nil
}
