package atem

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// deviceMetrics holds the Prometheus metrics published by a Device.
//
// Grounded on vango's middleware.metrics: a promauto.With(registry) factory
// building namespaced counters/gauges, rather than hand-rolled atomics.
type deviceMetrics struct {
	packetsReceived   prometheus.Counter
	packetsSent       prometheus.Counter
	packetsDropped    *prometheus.CounterVec
	commandsApplied   prometheus.Counter
	resendRequests    prometheus.Counter
	gapRequests       prometheus.Counter
	unackedBufferSize prometheus.Gauge
	sessionResets     prometheus.Counter
	connected         prometheus.Gauge
	ackLatency        prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *deviceMetrics {
	factory := promauto.With(reg)
	const namespace = "atem"

	return &deviceMetrics{
		packetsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Total number of UDP packets received from the switcher.",
		}),
		packetsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "Total number of UDP packets sent to the switcher.",
		}),
		packetsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dropped_total",
			Help:      "Total number of packets dropped, by reason (inbound malformed or read error, outbound write error).",
		}, []string{"reason"}),
		commandsApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_applied_total",
			Help:      "Total number of decoded commands applied to the state mirror.",
		}),
		resendRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resend_requests_total",
			Help:      "Total number of RESEND requests honored.",
		}),
		gapRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gap_requests_total",
			Help:      "Total number of gap-filler requests sent for missing packet ids.",
		}),
		unackedBufferSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unacked_buffer_size",
			Help:      "Current number of unacknowledged sent packets held for retransmission.",
		}),
		sessionResets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resets_total",
			Help:      "Total number of liveness-triggered session resets.",
		}),
		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 if the device is in the Active state, 0 otherwise.",
		}),
		ackLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ack_latency_seconds",
			Help:      "Round-trip time between sending an ACK_REQUEST and receiving its ACK_RESPONSE.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}
