package httpserver

import "net/http"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealthReady additionally checks that the tenant registry's backing
// store is reachable, since a gateway that can't read its catalog can't
// meaningfully serve any tenant-scoped route.
func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	code := http.StatusOK
	if s.registry.GetBaseDir() == "" {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	Respond(w, code, map[string]string{"status": status})
}

// handlePublicMetrics is the unauthenticated JSON metrics surface (spec
// §6.3's public GET /metrics), distinct from the Prometheus text exposition
// at /internal/metrics which requires global_admin.
func (s *Server) handlePublicMetrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.UpdateRuntimeMetrics()
	Respond(w, http.StatusOK, s.metrics.GenerateSnapshot(""))
}
