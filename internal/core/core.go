// Package core implements the opaque CoreInstance contract: an isolated
// per-tenant handle over an event log and a set of entity stores. The
// decision logic that would actually populate these (situation → protocol
// → decision → contract) is the cognitive core's own concern and explicitly
// out of scope here — this package only keeps the event log and entity
// files in a consistent, isolated, append-only shape for the gateway to
// forward requests to and for backup/restore/audit to read.
package core

import (
	"fmt"
	"time"

	"github.com/libervia/gateway/internal/eventlog"
)

// Instance is one tenant's opaque core handle: its event log plus its
// entity repositories, all rooted at one data directory.
type Instance struct {
	TenantID string
	DataDir  string

	EventLog *eventlog.Log

	situacoes  *EntityStore
	episodios  *EntityStore
	decisoes   *EntityStore
	contratos  *EntityStore
	mandates   *EntityStore
	reviews    *EntityStore
	observacoes *EntityStore
}

// Open constructs a fresh Instance rooted at dataDir, opening the event
// log and every per-entity store. dataDir must already exist (the
// registry creates it at tenant registration).
func Open(tenantID, dataDir string) (*Instance, error) {
	log, err := eventlog.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}

	situacoes, err := OpenEntityStore(dataDir, "situacoes.json")
	if err != nil {
		return nil, fmt.Errorf("opening situacoes store: %w", err)
	}
	episodios, err := OpenEntityStore(dataDir, "episodios.json")
	if err != nil {
		return nil, fmt.Errorf("opening episodios store: %w", err)
	}
	decisoes, err := OpenEntityStore(dataDir, "decisoes.json")
	if err != nil {
		return nil, fmt.Errorf("opening decisoes store: %w", err)
	}
	contratos, err := OpenEntityStore(dataDir, "contratos.json")
	if err != nil {
		return nil, fmt.Errorf("opening contratos store: %w", err)
	}
	mandates, err := OpenEntityStore(dataDir, "autonomy_mandates.json")
	if err != nil {
		return nil, fmt.Errorf("opening autonomy_mandates store: %w", err)
	}
	reviews, err := OpenEntityStore(dataDir, "review_cases.json")
	if err != nil {
		return nil, fmt.Errorf("opening review_cases store: %w", err)
	}
	observacoes, err := OpenEntityStore(dataDir, "observacoes_consequencia.json")
	if err != nil {
		return nil, fmt.Errorf("opening observacoes store: %w", err)
	}

	return &Instance{
		TenantID:    tenantID,
		DataDir:     dataDir,
		EventLog:    log,
		situacoes:   situacoes,
		episodios:   episodios,
		decisoes:    decisoes,
		contratos:   contratos,
		mandates:    mandates,
		reviews:     reviews,
		observacoes: observacoes,
	}, nil
}

// EntityStoreFor returns the named entity store, used by backup/restore
// providers to enumerate and append records generically. entityType
// matches the BackupSnapshot entity type names.
func (i *Instance) EntityStoreFor(entityType string) (*EntityStore, error) {
	switch entityType {
	case "ObservacoesDeConsequencia":
		return i.observacoes, nil
	case "AutonomyMandates":
		return i.mandates, nil
	case "ReviewCases":
		return i.reviews, nil
	case "Episodios":
		return i.episodios, nil
	case "Decisoes":
		return i.decisoes, nil
	case "Situacoes":
		return i.situacoes, nil
	case "Contratos":
		return i.contratos, nil
	default:
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
}

// Metrics is a point-in-time snapshot of an instance's activity, surfaced
// by TenantRuntime.getMetrics/getAllMetrics.
type Metrics struct {
	TenantID      string    `json:"tenantId"`
	EventCount    int       `json:"eventCount"`
	EpisodioCount int       `json:"episodioCount"`
	DecisaoCount  int       `json:"decisaoCount"`
	StartedAt     time.Time `json:"startedAt"`
	LastActivity  time.Time `json:"lastActivity"`
}
