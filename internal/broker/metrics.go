package broker

import "github.com/prometheus/client_golang/prometheus"

var (
	forwardedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lin",
		Subsystem: "broker",
		Name:      "forwarded_total",
		Help:      "Local bus events handed to the broker, by result.",
	}, []string{"result"})

	relayedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lin",
		Subsystem: "broker",
		Name:      "relayed_total",
		Help:      "Remote events re-published on the local bus.",
	}, []string{"event"})
)

func init() {
	prometheus.MustRegister(forwardedCounter, relayedCounter)
}

func recordForward(result string) {
	forwardedCounter.WithLabelValues(result).Inc()
}

func recordRelay(event string) {
	relayedCounter.WithLabelValues(event).Inc()
}
