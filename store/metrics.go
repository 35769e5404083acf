package store

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// Operation counters, labeled by backend. Exposed through the default
// metrics set; callers that serve /metrics get them for free via
// metrics.WritePrometheus.

func saveCounter(b Backend) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`datastore_saves_total{backend=%q}`, b))
}

func getCounter(b Backend) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`datastore_gets_total{backend=%q}`, b))
}

func errorCounter(b Backend) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`datastore_errors_total{backend=%q}`, b))
}
