//go:build prometheus

package daemon

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/nixcloud/pankat/internal/metrics"
)

// metricsRegistry is shared between the recorder (which registers pankat's
// collectors on it) and the /metrics HTTP handler (which scrapes it), so
// the two must be the same instance — grounded on
// internal/daemon/http_server_prom.go's promRegistry.
var metricsRegistry = prom.NewRegistry()

func newRecorder() metrics.Recorder {
	return metrics.NewPrometheusRecorder(metricsRegistry)
}

// prometheusOptionalHandler returns the /metrics handler when built with
// the "prometheus" tag, grounded on
// internal/daemon/http_server_prom.go's same-named function.
func prometheusOptionalHandler() http.Handler {
	return metrics.HTTPHandler(metricsRegistry)
}
