package metrics

import "github.com/prometheus/client_golang/prometheus"

// Keys for protofake metrics.
const (
	Fail = "fail"
	Ok   = "ok"
)

// Collectors for message generation and output sinks.
var (
	GeneratedMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "protofake_generated_messages_total",
		Help: "Cumulative number of generated messages.",
	})
	SinkBytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "protofake_sink_bytes_total",
		Help: "Cumulative number of encoded message bytes handed to an output sink.",
	}, []string{"sink"})
	DeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "protofake_deliveries_total",
		Help: "Cumulative number of completed message deliveries, by status.",
	}, []string{"status"})
	DeliveriesInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "protofake_deliveries_in_flight",
		Help: "Number of submitted messages awaiting delivery acknowledgement.",
	})
	RegistryLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "protofake_registry_lookups_total",
		Help: "Cumulative number of schema registry registrations, by status.",
	}, []string{"status"})
)

// Collectors returns all protofake metric collectors.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		GeneratedMessagesTotal,
		SinkBytesTotal,
		DeliveriesTotal,
		DeliveriesInFlight,
		RegistryLookupsTotal,
	}
}
