package eventlog

import (
	"encoding/json"
	"testing"
)

func TestAppend_ChainsEntries(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	e1, err := l.Append("decisao_criada", "decisao", "d-1", "system", nil)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e1.PreviousHash != ZeroHash {
		t.Fatalf("expected first entry to chain from zero hash, got %s", e1.PreviousHash)
	}

	e2, err := l.Append("decisao_atualizada", "decisao", "d-1", "system", nil)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e2.PreviousHash != e1.CurrentHash {
		t.Fatalf("expected chaining, e2.PreviousHash=%s e1.CurrentHash=%s", e2.PreviousHash, e1.CurrentHash)
	}

	entries, err := l.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if err := VerifyChain(entries); err != nil {
		t.Fatalf("expected valid chain: %v", err)
	}
}

func TestVerifyChain_DetectsTamper(t *testing.T) {
	dir := t.TempDir()
	l, _ := Open(dir)
	l.Append("e1", "x", "1", "system", nil)
	l.Append("e2", "x", "1", "system", nil)

	entries, _ := l.List()
	entries[0].Evento = "tampered"

	if err := VerifyChain(entries); err == nil {
		t.Fatal("expected tampered entry to break chain verification")
	}
}

func TestLastEntry_EmptyLog(t *testing.T) {
	dir := t.TempDir()
	l, _ := Open(dir)

	last, err := l.LastEntry()
	if err != nil {
		t.Fatalf("LastEntry: %v", err)
	}
	if last != nil {
		t.Fatal("expected nil last entry for an empty log")
	}
}

func TestAppend_PersistsPayload(t *testing.T) {
	dir := t.TempDir()
	l, _ := Open(dir)

	payload, _ := json.Marshal(map[string]string{"k": "v"})
	e, err := l.Append("evt", "x", "1", "system", payload)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	l2, _ := Open(dir)
	last, err := l2.LastEntry()
	if err != nil {
		t.Fatalf("LastEntry: %v", err)
	}
	if last == nil || last.ID != e.ID {
		t.Fatalf("expected reopened log to observe previously appended entry")
	}
	var decoded map[string]string
	if err := json.Unmarshal(last.Payload, &decoded); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if decoded["k"] != "v" {
		t.Fatalf("expected payload round-trip, got %v", decoded)
	}
}
