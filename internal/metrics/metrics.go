// Package metrics defines all Prometheus metrics for dhcpwire.
// All metrics use the "dhcpwire_" prefix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/athena-dhcpd/dhcpwire/pkg/dhcpv4"
)

const namespace = "dhcpwire"

// --- Codec Metrics ---

var (
	// PacketsDecoded counts successfully decoded packets by message type.
	PacketsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_decoded_total",
		Help:      "Total DHCP packets decoded, by message type.",
	}, []string{"msg_type"})

	// DecodeErrors counts decode failures by error class.
	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decode_errors_total",
		Help:      "Total DHCP decode failures, by error class.",
	}, []string{"class"})

	// PacketsEncoded counts encoded packets by message type.
	PacketsEncoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_encoded_total",
		Help:      "Total DHCP packets encoded, by message type.",
	}, []string{"msg_type"})
)

// --- Responder Metrics ---

var (
	// Transitions counts message role transitions, e.g. "discover_offer".
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total message role transitions, by edge.",
	}, []string{"edge"})

	// RepliesDropped counts requests that produced no reply.
	RepliesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replies_dropped_total",
		Help:      "Total requests dropped without a reply, by reason.",
	}, []string{"reason"})

	// PacketProcessingDuration tracks packet handling latency.
	PacketProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "packet_processing_seconds",
		Help:      "DHCP packet processing duration in seconds.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	}, []string{"msg_type"})
)

// --- Server Info ---

var (
	// ServerInfo is a constant gauge with server metadata.
	ServerInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_info",
		Help:      "Server build and version info.",
	}, []string{"version"})

	// ServerStartTime tracks server start time as a unix timestamp.
	ServerStartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_start_time_seconds",
		Help:      "Server start time as Unix timestamp.",
	})
)

// ObserveDecode records the outcome of decoding one datagram.
func ObserveDecode(p *dhcpv4.Packet, err error) {
	if err != nil {
		DecodeErrors.WithLabelValues(dhcpv4.ErrorClass(err)).Inc()
		return
	}
	PacketsDecoded.WithLabelValues(p.MessageType().String()).Inc()
}
