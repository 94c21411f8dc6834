package kafka

import "github.com/prometheus/client_golang/prometheus"

var messagesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "lin",
	Subsystem: "kafka",
	Name:      "messages_total",
	Help:      "Kafka records written or consumed, by direction and result.",
}, []string{"direction", "result"})

func init() {
	prometheus.MustRegister(messagesCounter)
}

func recordMessage(direction, result string) {
	messagesCounter.WithLabelValues(direction, result).Inc()
}
