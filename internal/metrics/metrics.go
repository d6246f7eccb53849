// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values for PacketsTotal.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
)

var (
	// PacketsTotal counts packets received per source and decode result
	PacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yapb_packets_total",
			Help: "Total number of packets received",
		},
		[]string{"source", "result"},
	)

	// BytesTotal counts framed packet bytes per source
	BytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yapb_bytes_total",
			Help: "Total number of packet bytes received",
		},
		[]string{"source"},
	)

	// FrameErrorsTotal counts framing failures by reason
	FrameErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yapb_frame_errors_total",
			Help: "Total number of framing errors",
		},
		[]string{"source", "reason"},
	)

	// ActiveConnections tracks open ingest connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yapb_active_connections",
			Help: "Number of open ingest connections",
		},
	)

	// PacketElements tracks top-level element count distribution
	PacketElements = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yapb_packet_elements",
			Help:    "Number of top-level elements per decoded packet",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1, 2, 4, ..., 2048
		},
	)
)

// ObservePacket records one framed packet.
func ObservePacket(source string, size int, result string) {
	PacketsTotal.WithLabelValues(source, result).Inc()
	BytesTotal.WithLabelValues(source).Add(float64(size))
}

// ObserveFrameError records one framing failure.
func ObserveFrameError(source, reason string) {
	FrameErrorsTotal.WithLabelValues(source, reason).Inc()
}
