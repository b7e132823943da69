package benchmark

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Exporter publishes reported records as Prometheus metrics
type Exporter struct {
	registry *prometheus.Registry

	messages      *prometheus.CounterVec
	payloadBytes  *prometheus.CounterVec
	totalBytes    *prometheus.CounterVec
	layerBytes    *prometheus.CounterVec
	messageSize   *prometheus.HistogramVec
	efficiency    *prometheus.GaugeVec
	lastMessageID prometheus.Gauge
}

// NewExporter creates an exporter with its own registry
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matter_bench",
			Name:      "messages_total",
			Help:      "Number of analysed messages by message type.",
		}, []string{"message_type"}),
		payloadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matter_bench",
			Name:      "payload_bytes_total",
			Help:      "Payload bytes by message type.",
		}, []string{"message_type"}),
		totalBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matter_bench",
			Name:      "message_bytes_total",
			Help:      "Total message bytes including overhead by message type.",
		}, []string{"message_type"}),
		layerBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matter_bench",
			Name:      "layer_overhead_bytes_total",
			Help:      "Overhead bytes by OSI layer.",
		}, []string{"layer"}),
		messageSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "matter_bench",
			Name:      "message_size_bytes",
			Help:      "Distribution of total message size.",
			Buckets:   prometheus.LinearBuckets(100, 20, 10),
		}, []string{"message_type"}),
		efficiency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "matter_bench",
			Name:      "efficiency_percent",
			Help:      "Efficiency of the last message of each type.",
		}, []string{"message_type"}),
		lastMessageID: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "matter_bench",
			Name:      "last_message_id",
			Help:      "Message counter of the last analysed message.",
		}),
	}

	e.registry.MustRegister(
		e.messages,
		e.payloadBytes,
		e.totalBytes,
		e.layerBytes,
		e.messageSize,
		e.efficiency,
		e.lastMessageID,
	)
	return e
}

// Observe records one message
func (e *Exporter) Observe(m Metrics) {
	t := string(m.MessageType)
	e.messages.WithLabelValues(t).Inc()
	e.payloadBytes.WithLabelValues(t).Add(float64(m.PayloadSize))
	e.totalBytes.WithLabelValues(t).Add(float64(m.TotalSize))
	e.messageSize.WithLabelValues(t).Observe(float64(m.TotalSize))
	e.efficiency.WithLabelValues(t).Set(float64(m.EfficiencyPercent))
	e.lastMessageID.Set(float64(m.MessageID))

	e.layerBytes.WithLabelValues("transport").Add(float64(m.TransportOverhead))
	e.layerBytes.WithLabelValues("session").Add(float64(m.SessionOverhead))
	e.layerBytes.WithLabelValues("presentation").Add(float64(m.PresentationOverhead))
	e.layerBytes.WithLabelValues("application").Add(float64(m.ApplicationOverhead))
}

// Registry exposes the underlying registry
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus text format
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}()

	log.Info().Str("addr", addr).Msg("Serving Prometheus metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
