// Package backup implements BackupCrypto, BackupMetadata, BackupRepository,
// BackupService, RestoreService, and DRService: the append-only
// backup/restore/DR engine.
package backup

import (
	"encoding/json"
	"time"
)

// EntityType names one of the snapshot-able per-tenant entity kinds.
type EntityType string

const (
	EntityEventLog                 EntityType = "EventLog"
	EntityObservacoesDeConsequencia EntityType = "ObservacoesDeConsequencia"
	EntityAutonomyMandates         EntityType = "AutonomyMandates"
	EntityReviewCases              EntityType = "ReviewCases"
	EntityTenantRegistry           EntityType = "TenantRegistry"
)

// FormatVersion is this gateway's backup format version. Loaders accept
// only a matching major component.
const FormatVersion = "1.0.0"

// Metadata describes a snapshot: its identity, scope, and counts.
type Metadata struct {
	BackupID         string            `json:"backupId"`
	CreatedAt        time.Time         `json:"createdAt"`
	TenantID         string            `json:"tenantId"`
	FormatVersion    string            `json:"formatVersion"`
	IncludedEntities []EntityType      `json:"includedEntities"`
	EntityCounts     map[EntityType]int `json:"entityCounts"`
	LastEventHash    string            `json:"lastEventHash,omitempty"`
	LastEventID      string            `json:"lastEventId,omitempty"`
}

// EntityRecord is one entity type's payload within a snapshot.
type EntityRecord struct {
	EntityType EntityType        `json:"entityType"`
	Data       []json.RawMessage `json:"data"`
	DataHash   string            `json:"dataHash"`
}

// Snapshot is a full backup: metadata, entity payloads, and the integrity
// envelope (contentHash + signature).
type Snapshot struct {
	Metadata    Metadata       `json:"metadata"`
	Entities    []EntityRecord `json:"entities"`
	ContentHash string         `json:"contentHash"`
	Signature   string         `json:"signature"`
}
