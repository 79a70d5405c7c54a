//go:build !prometheus

package daemon

import (
	"net/http"

	"git.home.luguber.info/nixcloud/pankat/internal/metrics"
)

func newRecorder() metrics.Recorder { return metrics.NoopRecorder{} }

// prometheusOptionalHandler fallback when the "prometheus" build tag is not
// set, grounded on internal/daemon/http_server_prom_fallback.go.
func prometheusOptionalHandler() http.Handler { return nil }
