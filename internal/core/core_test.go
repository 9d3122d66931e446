package core

import "testing"

func TestCreateDecisao_AppendsEventAndStores(t *testing.T) {
	dir := t.TempDir()
	inst, err := Open("acme", dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	d, err := inst.CreateDecisao("system", CreateDecisaoInput{Situacao: "nova"})
	if err != nil {
		t.Fatalf("CreateDecisao: %v", err)
	}

	ep, err := inst.GetEpisodio(d.EpisodioID)
	if err != nil {
		t.Fatalf("GetEpisodio: %v", err)
	}
	if ep.Status != "aberto" {
		t.Fatalf("expected new episodio aberto, got %s", ep.Status)
	}

	status, err := inst.EventLogStatusReport()
	if err != nil {
		t.Fatalf("EventLogStatusReport: %v", err)
	}
	if status.EntryCount != 1 || !status.ChainValid {
		t.Fatalf("expected 1 valid chain entry, got %+v", status)
	}
}

func TestEncerrarEpisodio_RejectsDoubleClose(t *testing.T) {
	dir := t.TempDir()
	inst, _ := Open("acme", dir)
	d, _ := inst.CreateDecisao("system", CreateDecisaoInput{Situacao: "x"})

	if _, err := inst.EncerrarEpisodio("system", d.EpisodioID); err != nil {
		t.Fatalf("EncerrarEpisodio: %v", err)
	}
	if _, err := inst.EncerrarEpisodio("system", d.EpisodioID); err == nil {
		t.Fatal("expected double encerrar to fail")
	}
}

func TestListEventos_RespectsLimit(t *testing.T) {
	dir := t.TempDir()
	inst, _ := Open("acme", dir)
	for i := 0; i < 5; i++ {
		inst.CreateDecisao("system", CreateDecisaoInput{Situacao: "x"})
	}

	result, err := inst.ListEventos(3)
	if err != nil {
		t.Fatalf("ListEventos: %v", err)
	}
	if len(result.Eventos) != 3 {
		t.Fatalf("expected 3 eventos returned, got %d", len(result.Eventos))
	}
	if result.Total != 5 {
		t.Fatalf("expected total 5, got %d", result.Total)
	}
}

func TestEntityStoreFor_UnknownType(t *testing.T) {
	dir := t.TempDir()
	inst, _ := Open("acme", dir)
	if _, err := inst.EntityStoreFor("NotARealType"); err == nil {
		t.Fatal("expected unknown entity type to fail")
	}
}
