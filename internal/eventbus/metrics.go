package eventbus

import "github.com/prometheus/client_golang/prometheus"

var publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lin",
	Subsystem: "eventbus",
	Name:      "published_total",
	Help:      "Number of events published on the in-process bus.",
}, []string{"event", "remote"})

func init() {
	prometheus.MustRegister(publishedCounter)
}

func recordPublished(ev Event) {
	remote := "false"
	if ev.Remote {
		remote = "true"
	}
	publishedCounter.WithLabelValues(ev.Name, remote).Inc()
}
