package backup

import (
	"encoding/json"
	"fmt"

	"github.com/libervia/gateway/internal/core"
)

// Provider fetches the raw items for entityType, bridging backup/restore to
// whatever owns the entity's real storage. Different entity types may be
// backed by entirely different subsystems (per-tenant core entity stores,
// the event log, the tenant registry), so this is the only shape
// BackupService and RestoreService depend on.
type Provider interface {
	Fetch(entityType EntityType) ([]json.RawMessage, error)
	Exists(entityType EntityType, id string) (bool, error)
	Append(entityType EntityType, id string, data json.RawMessage) error
	IDOf(entityType EntityType, data json.RawMessage) (string, error)
}

// CoreProvider bridges backup/restore to one tenant's core.Instance: its
// event log and entity stores.
type CoreProvider struct {
	instance *core.Instance
}

// NewCoreProvider wraps inst for backup/restore use.
func NewCoreProvider(inst *core.Instance) *CoreProvider {
	return &CoreProvider{instance: inst}
}

func (p *CoreProvider) Fetch(entityType EntityType) ([]json.RawMessage, error) {
	if entityType == EntityEventLog {
		entries, err := p.instance.EventLog.List()
		if err != nil {
			return nil, err
		}
		out := make([]json.RawMessage, len(entries))
		for i, e := range entries {
			b, err := json.Marshal(e)
			if err != nil {
				return nil, fmt.Errorf("marshaling event log entry: %w", err)
			}
			out[i] = b
		}
		return out, nil
	}

	store, err := p.instance.EntityStoreFor(string(entityType))
	if err != nil {
		return nil, err
	}
	all := store.All()
	out := make([]json.RawMessage, 0, len(all))
	for _, v := range all {
		out = append(out, v)
	}
	return out, nil
}

func (p *CoreProvider) Exists(entityType EntityType, id string) (bool, error) {
	if entityType == EntityEventLog {
		// The event log is append-only at the core layer too; restore
		// treats every entry as new unless it's already the chain's tail,
		// which RestoreService checks separately via continuity.
		return false, nil
	}
	store, err := p.instance.EntityStoreFor(string(entityType))
	if err != nil {
		return false, err
	}
	return store.Exists(id), nil
}

func (p *CoreProvider) Append(entityType EntityType, id string, data json.RawMessage) error {
	if entityType == EntityEventLog {
		// Individual event log entries are appended as part of continuity
		// verification in RestoreService, not through this generic path.
		return nil
	}
	store, err := p.instance.EntityStoreFor(string(entityType))
	if err != nil {
		return err
	}
	_, err = store.Append(id, data)
	return err
}

// idField is the JSON field backup/restore uses to identify an entity
// record for append-only comparison. Every entity type in scope uses "id".
func (p *CoreProvider) IDOf(entityType EntityType, data json.RawMessage) (string, error) {
	var withID struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &withID); err != nil {
		return "", fmt.Errorf("reading entity id: %w", err)
	}
	return withID.ID, nil
}
