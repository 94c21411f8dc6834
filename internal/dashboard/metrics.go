package dashboard

import "github.com/prometheus/client_golang/prometheus"

var widgetRefreshes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "lin",
		Subsystem: "dashboard",
		Name:      "widget_refresh_total",
		Help:      "Widget fetches by widget and result.",
	},
	[]string{"widget", "result"},
)

func init() {
	prometheus.MustRegister(widgetRefreshes)
}

func recordRefresh(widget, result string) {
	widgetRefreshes.WithLabelValues(widget, result).Inc()
}
