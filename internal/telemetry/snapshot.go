package telemetry

import (
	"bytes"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// PrometheusHandler serves the registry's metrics in Prometheus text
// exposition format, for mounting at /internal/metrics.
func (r *Registry) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(r.promReg, promhttp.HandlerOpts{})
}

// GeneratePrometheusText renders the current metrics as Prometheus text
// exposition format, for callers that need the body directly rather than
// an http.Handler (e.g. tests, or embedding in another response).
func (r *Registry) GeneratePrometheusText() (string, error) {
	families, err := r.promReg.Gather()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
