package tenant

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/libervia/gateway/internal/security"
)

// lastUsedAtQueueSize bounds the background lastUsedAt update queue. Once
// full, further updates are dropped — lastUsedAt is observational, so a
// drop under burst load never affects correctness (spec §9).
const lastUsedAtQueueSize = 256

// lastUsedAtJob is one pending lastUsedAt bump, drained by the background
// worker and folded into the next serialized persist.
type lastUsedAtJob struct {
	tenantID string
	keyID    string
	at       time.Time
}

// Registry is the durable tenant catalog: durable configuration, RBAC keys,
// atomic persistence with a serialized write chain.
type Registry struct {
	baseDir string
	logger  *slog.Logger

	mu  sync.RWMutex
	cat *catalog

	writes *writeQueue

	lastUsedCh   chan lastUsedAtJob
	lastUsedDone chan struct{}
}

// NewRegistry loads (or initializes) the tenant catalog rooted at baseDir
// and starts the background lastUsedAt worker.
func NewRegistry(baseDir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cat, err := loadCatalog(baseDir)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		baseDir:      baseDir,
		logger:       logger,
		cat:          cat,
		writes:       newWriteQueue(),
		lastUsedCh:   make(chan lastUsedAtJob, lastUsedAtQueueSize),
		lastUsedDone: make(chan struct{}),
	}
	go r.drainLastUsed()
	return r, nil
}

// Shutdown drains any remaining lastUsedAt jobs and stops the background
// worker. Part of the gateway's graceful-shutdown sequence.
func (r *Registry) Shutdown() {
	close(r.lastUsedCh)
	<-r.lastUsedDone
}

func (r *Registry) drainLastUsed() {
	defer close(r.lastUsedDone)
	for job := range r.lastUsedCh {
		j := job
		r.writes.submit(func() {
			r.mu.Lock()
			t := r.findLocked(j.tenantID)
			if t == nil {
				r.mu.Unlock()
				return
			}
			for i := range t.Keys {
				if t.Keys[i].KeyID == j.keyID {
					at := j.at
					t.Keys[i].LastUsedAt = &at
					break
				}
			}
			cat := deepCopyCatalog(r.cat)
			r.mu.Unlock()

			if err := saveCatalog(r.baseDir, cat); err != nil {
				r.logger.Warn("lastUsedAt persist failed", "tenant", j.tenantID, "key", j.keyID, "error", err)
			}
		})
	}
}

func (r *Registry) findLocked(id string) *Tenant {
	for _, t := range r.cat.Tenants {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (r *Registry) persistLocked() error {
	return r.writes.run(func() error {
		r.mu.RLock()
		cat := deepCopyCatalog(r.cat)
		r.mu.RUnlock()
		return saveCatalog(r.baseDir, cat)
	})
}

// deepCopyCatalog clones c and every *Tenant (and its Keys slice) it holds,
// so saveCatalog can marshal the copy after the registry lock is released
// without racing concurrent mutations to the live tenants.
func deepCopyCatalog(c *catalog) *catalog {
	out := &catalog{Version: c.Version, UpdatedAt: c.UpdatedAt, Tenants: make([]*Tenant, len(c.Tenants))}
	for i, t := range c.Tenants {
		tc := *t
		tc.Keys = append([]AuthKey(nil), t.Keys...)
		if t.Metadata != nil {
			tc.Metadata = make(map[string]string, len(t.Metadata))
			for k, v := range t.Metadata {
				tc.Metadata[k] = v
			}
		}
		out.Tenants[i] = &tc
	}
	return out
}

// GetBaseDir returns the registry's root directory.
func (r *Registry) GetBaseDir() string {
	return r.baseDir
}

// GetDataDir resolves id's per-tenant data directory, without creating it.
func (r *Registry) GetDataDir(id string) (string, error) {
	return security.ResolveTenantDataDir(r.baseDir, id, false)
}

// Register validates and stores a new tenant, creating its data directory.
func (r *Registry) Register(input RegisterInput) (*Tenant, error) {
	if err := security.ValidateTenantID(input.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTenantID, err)
	}
	norm := security.NormalizeTenantID(input.ID)

	r.mu.Lock()
	if r.findLocked(norm) != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, norm)
	}

	quotas := DefaultQuotas()
	if input.Quotas != nil {
		quotas = *input.Quotas
	}
	features := DefaultFeatures()
	if input.Features != nil {
		features = *input.Features
	}

	now := time.Now()
	t := &Tenant{
		ID:        norm,
		Name:      input.Name,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
		Quotas:    quotas,
		Features:  features,
		Metadata:  input.Metadata,
	}
	if input.GenerateLegacyToken {
		tok, err := generateToken()
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		t.APIToken = tok
	}
	r.cat.Tenants = append(r.cat.Tenants, t)
	r.mu.Unlock()

	dataDir, err := security.ResolveTenantDataDir(r.baseDir, norm, false)
	if err != nil {
		return nil, err
	}
	if err := ensureDir(dataDir); err != nil {
		return nil, fmt.Errorf("creating tenant directory: %w", err)
	}

	if err := r.persistLocked(); err != nil {
		return nil, err
	}
	return t.clone(), nil
}

// Get returns a copy of the tenant with the given id.
func (r *Registry) Get(id string) (*Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t := r.findLocked(security.NormalizeTenantID(id))
	if t == nil {
		return nil, ErrNotFound
	}
	return t.clone(), nil
}

// List returns copies of every tenant, optionally including deleted ones.
func (r *Registry) List(includeDeleted bool) []*Tenant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tenant, 0, len(r.cat.Tenants))
	for _, t := range r.cat.Tenants {
		if !includeDeleted && t.Status == StatusDeleted {
			continue
		}
		out = append(out, t.clone())
	}
	return out
}

// ListActive returns copies of every active tenant.
func (r *Registry) ListActive() []*Tenant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tenant, 0, len(r.cat.Tenants))
	for _, t := range r.cat.Tenants {
		if t.Status == StatusActive {
			out = append(out, t.clone())
		}
	}
	return out
}

// Exists reports whether id names any tenant (any status).
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(security.NormalizeTenantID(id)) != nil
}

// IsActive reports whether id names an active tenant.
func (r *Registry) IsActive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t := r.findLocked(security.NormalizeTenantID(id))
	return t != nil && t.Status == StatusActive
}

// Update merges the given partial fields into the tenant and persists.
func (r *Registry) Update(id string, partial UpdatePartial) (*Tenant, error) {
	r.mu.Lock()
	t := r.findLocked(security.NormalizeTenantID(id))
	if t == nil {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	if partial.Name != nil {
		t.Name = *partial.Name
	}
	if partial.Quotas != nil {
		t.Quotas = *partial.Quotas
	}
	if partial.Features != nil {
		t.Features = *partial.Features
	}
	if partial.Metadata != nil {
		if t.Metadata == nil {
			t.Metadata = map[string]string{}
		}
		for k, v := range partial.Metadata {
			t.Metadata[k] = v
		}
	}
	t.UpdatedAt = time.Now()
	clone := t.clone()
	r.mu.Unlock()

	if err := r.persistLocked(); err != nil {
		return nil, err
	}
	return clone, nil
}

// Suspend transitions an active tenant to suspended.
func (r *Registry) Suspend(id string) error {
	return r.transition(id, StatusActive, StatusSuspended)
}

// Resume transitions a suspended tenant back to active.
func (r *Registry) Resume(id string) error {
	return r.transition(id, StatusSuspended, StatusActive)
}

// Remove soft-deletes a tenant. Data on disk is retained for audit.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	t := r.findLocked(security.NormalizeTenantID(id))
	if t == nil {
		r.mu.Unlock()
		return ErrNotFound
	}
	if t.Status == StatusDeleted {
		r.mu.Unlock()
		return fmt.Errorf("%w: tenant already deleted", ErrInvalidTransition)
	}
	t.Status = StatusDeleted
	t.UpdatedAt = time.Now()
	r.mu.Unlock()
	return r.persistLocked()
}

func (r *Registry) transition(id string, from, to Status) error {
	r.mu.Lock()
	t := r.findLocked(security.NormalizeTenantID(id))
	if t == nil {
		r.mu.Unlock()
		return ErrNotFound
	}
	if t.Status != from {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot go from %s to %s", ErrInvalidTransition, t.Status, to)
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	r.mu.Unlock()
	return r.persistLocked()
}

func ensureDir(path string) error {
	return mkdirAll(path)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(buf), "="), nil
}

// clone returns a deep-enough copy of t for safe return across the
// registry's lock boundary (callers must never observe concurrent mutation
// of a returned Tenant).
func (t *Tenant) clone() *Tenant {
	cp := *t
	if t.Metadata != nil {
		cp.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			cp.Metadata[k] = v
		}
	}
	if t.Keys != nil {
		cp.Keys = make([]AuthKey, len(t.Keys))
		copy(cp.Keys, t.Keys)
	}
	return &cp
}
