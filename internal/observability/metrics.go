// Package observability wires the Prometheus collectors together and serves
// them on a separate telemetry listener. Sentry error telemetry lives in the
// errors package.
package observability

import (
	stdlog "log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/proctor-go/internal/errors"
	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Analyzer *metrics.AnalyzerMetrics
	MQTT     *metrics.MQTTMetrics
	HTTP     *metrics.HTTPMetrics
}

// NewMetrics creates a registry with the Go runtime and process collectors
// plus every application collector.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, errors.New(err).Component("observability").Category(errors.CategorySystem).Build()
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, errors.New(err).Component("observability").Category(errors.CategorySystem).Build()
	}

	analyzerMetrics, err := metrics.NewAnalyzerMetrics(registry)
	if err != nil {
		return nil, errors.New(err).Component("observability").Category(errors.CategorySystem).Build()
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, errors.New(err).Component("observability").Category(errors.CategorySystem).Build()
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, errors.New(err).Component("observability").Category(errors.CategorySystem).Build()
	}

	return &Metrics{
		registry: registry,
		Analyzer: analyzerMetrics,
		MQTT:     mqttMetrics,
		HTTP:     httpMetrics,
	}, nil
}

// Registry returns the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ErrorHook returns an errors hook that counts every built error by component and category
func (m *Metrics) ErrorHook() errors.ErrorHook {
	return func(ee *errors.EnhancedError) {
		m.Analyzer.RecordError(ee.GetComponent(), ee.GetCategory())
	}
}

// Handler returns the /metrics handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      stdlog.New(logWriter{}, "", 0),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", m.Handler())
}

// logWriter forwards promhttp's error log to the telemetry logger
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	GetLogger().Error("Metrics handler error", logger.String("message", string(p)))
	return len(p), nil
}
