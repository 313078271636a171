// Package metrics exposes Prometheus instrumentation for the annotation
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the meeting assistant.
type Metrics struct {
	ChunksProcessed  *prometheus.CounterVec
	ChunksDropped    prometheus.Counter
	ChunkAnnotation  prometheus.Histogram
	ActiveSessions   prometheus.Gauge
	FinalizeDuration prometheus.Histogram
	ConnectedClients prometheus.Gauge
	EventsBroadcast  *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics. A nil registerer uses the
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ChunksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meeting_chunks_processed_total",
			Help: "Total number of audio chunks run through the annotation pipeline",
		}, []string{"status"}),
		ChunksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "meeting_chunks_dropped_total",
			Help: "Total number of audio chunks dropped because the queue was full",
		}),
		ChunkAnnotation: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "meeting_chunk_annotation_duration_seconds",
			Help:    "Time spent annotating one audio chunk",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meeting_active_sessions",
			Help: "Current number of active capture sessions",
		}),
		FinalizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "meeting_finalize_duration_seconds",
			Help:    "Time spent finalizing a session into its meeting summary",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meeting_connected_clients",
			Help: "Current number of connected websocket clients",
		}),
		EventsBroadcast: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meeting_events_broadcast_total",
			Help: "Total number of websocket events broadcast",
		}, []string{"type"}),
	}
}

func (m *Metrics) RecordChunkProcessed(status string, durationSeconds float64) {
	m.ChunksProcessed.WithLabelValues(status).Inc()
	m.ChunkAnnotation.Observe(durationSeconds)
}

func (m *Metrics) RecordChunkDropped() {
	m.ChunksDropped.Inc()
}

func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

func (m *Metrics) RecordFinalize(durationSeconds float64) {
	m.FinalizeDuration.Observe(durationSeconds)
}

func (m *Metrics) SetConnectedClients(count int) {
	m.ConnectedClients.Set(float64(count))
}

func (m *Metrics) RecordEventBroadcast(eventType string) {
	m.EventsBroadcast.WithLabelValues(eventType).Inc()
}
