package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/libervia/gateway/internal/eventlog"
)

// Episodio is the minimal shape the gateway needs to know about an
// episodio: enough to open/close it and list it in query endpoints. The
// cognitive core's own state machine (situation → protocol → decision →
// contract) governs everything else about it and is opaque here.
type Episodio struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenantId"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	EncerradoAt *time.Time `json:"encerradoAt,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// CreateDecisaoInput is the request body for CreateDecisao.
type CreateDecisaoInput struct {
	Situacao string          `json:"situacao" validate:"required"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Decisao is the record produced by CreateDecisao and appended to the
// event log and decisoes store.
type Decisao struct {
	ID        string          `json:"id"`
	EpisodioID string         `json:"episodioId"`
	Situacao  string          `json:"situacao"`
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// CreateDecisao opens a new episodio and records a decisao against it,
// appending both to the event log. This does not implement any actual
// decision logic (out of scope) — it records the request as a fact.
func (i *Instance) CreateDecisao(actor string, input CreateDecisaoInput) (*Decisao, error) {
	episodioID := uuid.NewString()
	now := time.Now().UTC()

	ep := Episodio{ID: episodioID, TenantID: i.TenantID, Status: "aberto", CreatedAt: now, Payload: input.Payload}
	epBytes, err := json.Marshal(ep)
	if err != nil {
		return nil, fmt.Errorf("marshaling episodio: %w", err)
	}
	if err := i.episodios.Put(episodioID, epBytes); err != nil {
		return nil, fmt.Errorf("storing episodio: %w", err)
	}

	d := Decisao{ID: uuid.NewString(), EpisodioID: episodioID, Situacao: input.Situacao, CreatedAt: now, Payload: input.Payload}
	dBytes, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshaling decisao: %w", err)
	}
	if err := i.decisoes.Put(d.ID, dBytes); err != nil {
		return nil, fmt.Errorf("storing decisao: %w", err)
	}

	if _, err := i.EventLog.Append("decisao_criada", "decisao", d.ID, actor, dBytes); err != nil {
		return nil, fmt.Errorf("appending decisao event: %w", err)
	}
	return &d, nil
}

// GetEpisodio fetches the episodio with the given id.
func (i *Instance) GetEpisodio(id string) (*Episodio, error) {
	raw, ok := i.episodios.Get(id)
	if !ok {
		return nil, fmt.Errorf("episodio %q not found", id)
	}
	var ep Episodio
	if err := json.Unmarshal(raw, &ep); err != nil {
		return nil, fmt.Errorf("decoding episodio: %w", err)
	}
	return &ep, nil
}

// EncerrarEpisodio ("close episodio") marks an episodio encerrado and
// records the closure in the event log.
func (i *Instance) EncerrarEpisodio(actor, id string) (*Episodio, error) {
	ep, err := i.GetEpisodio(id)
	if err != nil {
		return nil, err
	}
	if ep.Status == "encerrado" {
		return nil, fmt.Errorf("episodio %q already encerrado", id)
	}
	now := time.Now().UTC()
	ep.Status = "encerrado"
	ep.EncerradoAt = &now

	b, err := json.Marshal(ep)
	if err != nil {
		return nil, fmt.Errorf("marshaling episodio: %w", err)
	}
	if err := i.episodios.Put(id, b); err != nil {
		return nil, fmt.Errorf("storing episodio: %w", err)
	}
	if _, err := i.EventLog.Append("episodio_encerrado", "episodio", id, actor, b); err != nil {
		return nil, fmt.Errorf("appending episodio_encerrado event: %w", err)
	}
	return ep, nil
}

// CreateObservacaoInput is the request body for CreateObservacao.
type CreateObservacaoInput struct {
	EpisodioID string          `json:"episodioId" validate:"required"`
	Texto      string          `json:"texto" validate:"required"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Observacao is a recorded observation of consequence, stored under the
// ObservacoesDeConsequencia entity type.
type Observacao struct {
	ID         string          `json:"id"`
	EpisodioID string          `json:"episodioId"`
	Texto      string          `json:"texto"`
	CreatedAt  time.Time       `json:"createdAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// CreateObservacao records a new observation and appends it to the event
// log.
func (i *Instance) CreateObservacao(actor string, input CreateObservacaoInput) (*Observacao, error) {
	o := Observacao{ID: uuid.NewString(), EpisodioID: input.EpisodioID, Texto: input.Texto, CreatedAt: time.Now().UTC(), Payload: input.Payload}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshaling observacao: %w", err)
	}
	if err := i.observacoes.Put(o.ID, b); err != nil {
		return nil, fmt.Errorf("storing observacao: %w", err)
	}
	if _, err := i.EventLog.Append("observacao_criada", "observacao", o.ID, actor, b); err != nil {
		return nil, fmt.Errorf("appending observacao event: %w", err)
	}
	return &o, nil
}

// ListEventosResult is the response shape for GET /api/v1/eventos.
type ListEventosResult struct {
	Eventos []EventoView `json:"eventos"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
}

// EventoView is a trimmed event log entry shape for the public API.
type EventoView struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Evento    string          `json:"evento"`
	Entidade  string          `json:"entidade"`
	EntidadeID string         `json:"entidade_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ListEventos returns up to limit of the most recent event log entries.
func (i *Instance) ListEventos(limit int) (*ListEventosResult, error) {
	if limit <= 0 {
		limit = 50
	}
	entries, err := i.EventLog.List()
	if err != nil {
		return nil, fmt.Errorf("listing event log: %w", err)
	}

	start := 0
	if len(entries) > limit {
		start = len(entries) - limit
	}
	out := make([]EventoView, 0, len(entries)-start)
	for _, e := range entries[start:] {
		out = append(out, EventoView{ID: e.ID, Timestamp: e.Timestamp, Evento: e.Evento, Entidade: e.Entidade, EntidadeID: e.EntidadeID, Payload: e.Payload})
	}
	return &ListEventosResult{Eventos: out, Total: len(entries), Limit: limit}, nil
}

// EventLogStatus is the response shape for GET /api/v1/eventlog/status.
type EventLogStatus struct {
	EntryCount  int    `json:"entryCount"`
	LastEventID string `json:"lastEventId,omitempty"`
	LastHash    string `json:"lastHash,omitempty"`
	ChainValid  bool   `json:"chainValid"`
}

// EventLogStatusReport verifies the chain and reports a summary, without
// mutating anything.
func (i *Instance) EventLogStatusReport() (*EventLogStatus, error) {
	entries, err := i.EventLog.List()
	if err != nil {
		return nil, fmt.Errorf("listing event log: %w", err)
	}
	status := &EventLogStatus{EntryCount: len(entries)}
	if len(entries) > 0 {
		last := entries[len(entries)-1]
		status.LastEventID = last.ID
		status.LastHash = last.CurrentHash
	}
	status.ChainValid = eventlog.VerifyChain(entries) == nil
	return status, nil
}
