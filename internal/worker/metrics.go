package worker

import "github.com/prometheus/client_golang/prometheus"

// Export results.
const (
	resultExported = "exported"
	resultSkipped  = "skipped"
	resultFailed   = "failed"
	resultDeleted  = "deleted"
)

var exportCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lin",
	Name:      "export_total",
	Help:      "Expenses handled by the export worker, by result.",
}, []string{"result"})

func init() {
	prometheus.MustRegister(exportCounter)
}

func recordExport(result string) {
	exportCounter.WithLabelValues(result).Inc()
}
