package observability

import (
	"context"
	"net/http"

	"ai-agent-portal/backend/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Relay counters, labeled by delivery path outcome
var (
	MessagesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_messages_submitted_total",
		Help: "Chat messages accepted for relay",
	})
	MessagesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_messages_resolved_total",
		Help: "Chat messages resolved, by outcome",
	}, []string{"outcome"}) // answered, failed, not_configured
)

// SetupTracing initializes OpenTelemetry tracing with stdout exporter (for demo; replace with OTLP in prod)
func SetupTracing(serviceName string, log *logger.Logger) func() {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.LogError(err, "Failed to initialize stdouttrace exporter")
		return func() {}
	}
	res, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return func() { _ = provider.Shutdown(context.Background()) }
}

// SetupPrometheusMetrics initializes the Prometheus metrics exporter and
// exposes /metrics on its own listener
func SetupPrometheusMetrics(port string, log *logger.Logger) *metric.MeterProvider {
	exp, err := otelprom.New()
	if err != nil {
		log.LogError(err, "Failed to initialize prometheus exporter")
		return nil
	}
	mp := metric.NewMeterProvider(metric.WithReader(exp))
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			log.LogError(err, "Metrics listener stopped", "port", port)
		}
	}()
	return mp
}
