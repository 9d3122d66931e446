// Package runtime implements TenantRuntime: the in-memory cache of live
// per-tenant CoreInstances, lazily constructed and safely shared across
// concurrent requests for the same tenant.
package runtime

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/libervia/gateway/internal/core"
	"github.com/libervia/gateway/internal/tenant"
)

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantSuspended = errors.New("tenant suspended")
	ErrTenantDeleted   = errors.New("tenant deleted")
)

// Runtime is the process-wide cache of live CoreInstances.
type Runtime struct {
	registry *tenant.Registry
	factory  AdapterFactory

	mu    sync.RWMutex
	cache map[string]*CoreInstance

	creationMu sync.Mutex
	creating   map[string]*sync.Mutex

	instanceCount atomic.Int64
}

// New constructs a Runtime backed by registry. factory may be nil, meaning
// no tenant ever gets an integration adapter.
func New(registry *tenant.Registry, factory AdapterFactory) *Runtime {
	return &Runtime{
		registry: registry,
		factory:  factory,
		cache:    make(map[string]*CoreInstance),
		creating: make(map[string]*sync.Mutex),
	}
}

// GetOrCreate returns the cached instance for id, touching its activity
// timestamp, or constructs one if absent. Concurrent callers for the same
// id observe exactly one constructed instance: a per-id creation mutex
// ensures only the first caller actually builds it, the rest wait and then
// read the now-cached result.
func (r *Runtime) GetOrCreate(id string) (*CoreInstance, error) {
	if ci := r.get(id); ci != nil {
		ci.touch()
		return ci, nil
	}

	lock := r.creationLockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if ci := r.get(id); ci != nil {
		ci.touch()
		return ci, nil
	}

	t, err := r.registry.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, id)
	}
	switch t.Status {
	case tenant.StatusSuspended:
		return nil, fmt.Errorf("%w: %s", ErrTenantSuspended, id)
	case tenant.StatusDeleted:
		return nil, fmt.Errorf("%w: %s", ErrTenantDeleted, id)
	}

	dataDir, err := r.registry.GetDataDir(id)
	if err != nil {
		return nil, err
	}

	coreAPI, err := core.Open(id, dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening core instance: %w", err)
	}

	var adapter IntegrationAdapter
	if r.factory != nil {
		adapter, err = r.factory(id, dataDir, coreAPI)
		if err != nil {
			return nil, fmt.Errorf("constructing integration adapter: %w", err)
		}
		if adapter != nil {
			if err := adapter.Init(id, dataDir, coreAPI); err != nil {
				return nil, fmt.Errorf("initializing integration adapter: %w", err)
			}
		}
	}

	ci := newCoreInstance(id, dataDir, coreAPI, adapter)

	r.mu.Lock()
	r.cache[id] = ci
	r.mu.Unlock()
	r.instanceCount.Inc()

	return ci, nil
}

func (r *Runtime) get(id string) *CoreInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache[id]
}

// Get returns the cached instance, if any, without constructing one.
func (r *Runtime) Get(id string) (*CoreInstance, bool) {
	ci := r.get(id)
	return ci, ci != nil
}

// IsActive reports whether id has a live cached instance.
func (r *Runtime) IsActive(id string) bool {
	return r.get(id) != nil
}

// ListActive returns the tenant ids with a live cached instance.
func (r *Runtime) ListActive() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.cache))
	for id := range r.cache {
		ids = append(ids, id)
	}
	return ids
}

// GetInstanceCount returns the number of live cached instances.
func (r *Runtime) GetInstanceCount() int64 {
	return r.instanceCount.Load()
}

// Shutdown evicts id's cached instance, calling its adapter's Shutdown if
// present. No-op if the tenant has no live instance.
func (r *Runtime) Shutdown(id string) error {
	r.mu.Lock()
	ci, ok := r.cache[id]
	if ok {
		delete(r.cache, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	r.instanceCount.Dec()

	if ci.Adapter != nil {
		return ci.Adapter.Shutdown()
	}
	return nil
}

// ShutdownAll shuts down every live instance in parallel, returning the
// first error encountered (all instances are still attempted).
func (r *Runtime) ShutdownAll() error {
	ids := r.ListActive()

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = r.Shutdown(id)
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// GetMetrics returns the live instance's metrics, or nil if not cached.
func (r *Runtime) GetMetrics(id string) *core.Metrics {
	ci := r.get(id)
	if ci == nil {
		return nil
	}
	m := ci.Metrics()
	return &m
}

// GetAllMetrics returns metrics for every live instance.
func (r *Runtime) GetAllMetrics() map[string]core.Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]core.Metrics, len(r.cache))
	for id, ci := range r.cache {
		out[id] = ci.Metrics()
	}
	return out
}

// IsHealthy reports whether id's instance is cached and its event log
// chain verifies.
func (r *Runtime) IsHealthy(id string) bool {
	ci := r.get(id)
	if ci == nil {
		return false
	}
	status, err := ci.Core.EventLogStatusReport()
	return err == nil && status.ChainValid
}

func (r *Runtime) creationLockFor(id string) *sync.Mutex {
	r.creationMu.Lock()
	defer r.creationMu.Unlock()
	lock, ok := r.creating[id]
	if !ok {
		lock = &sync.Mutex{}
		r.creating[id] = lock
	}
	return lock
}
