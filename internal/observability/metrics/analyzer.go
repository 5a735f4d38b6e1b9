package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// AnalyzerMetrics contains the Prometheus metrics for face and audio analysis
type AnalyzerMetrics struct {
	analysesTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	facesDetected    prometheus.Histogram
	audioLevel       prometheus.Histogram
	flagsTotal       *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
}

// NewAnalyzerMetrics creates the analyzer collectors and registers them
func NewAnalyzerMetrics(registry prometheus.Registerer) (*AnalyzerMetrics, error) {
	m := &AnalyzerMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register analyzer metrics: %w", err)
	}
	return m, nil
}

func (m *AnalyzerMetrics) initMetrics() {
	m.analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of analyses by kind and outcome",
		},
		[]string{"kind", "status"}, // kind: face, audio, video, audio_blob; status: success, invalid_input, error
	)

	m.analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time taken by one analysis",
			Buckets:   prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"kind"},
	)

	m.facesDetected = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "faces_detected",
		Help:      "Number of faces detected per analyzed frame",
		Buckets:   []float64{0, 1, 2, 3, 5},
	})

	m.audioLevel = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audio_level",
		Help:      "Audio level per analyzed buffer (mean absolute amplitude x 100)",
		Buckets:   prometheus.LinearBuckets(0, 10, 10),
	})

	m.flagsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_total",
			Help:      "Total number of raised proctoring flags",
		},
		[]string{"kind", "flag"}, // flag: no_face, multiple_faces, looking_away, multiple_speakers, sudden_spike
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by component and category",
		},
		[]string{"component", "category"},
	)
}

// RecordOperation implements Recorder
func (m *AnalyzerMetrics) RecordOperation(kind, status string) {
	m.analysesTotal.WithLabelValues(kind, status).Inc()
}

// RecordDuration implements Recorder
func (m *AnalyzerMetrics) RecordDuration(kind string, seconds float64) {
	m.analysisDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordError implements Recorder
func (m *AnalyzerMetrics) RecordError(component, category string) {
	m.errorsTotal.WithLabelValues(component, category).Inc()
}

// ObserveFaces records the face count of one frame
func (m *AnalyzerMetrics) ObserveFaces(n int) {
	m.facesDetected.Observe(float64(n))
}

// ObserveAudioLevel records the level of one audio buffer
func (m *AnalyzerMetrics) ObserveAudioLevel(level float64) {
	m.audioLevel.Observe(level)
}

// RecordFlags increments the flag counter once per raised flag
func (m *AnalyzerMetrics) RecordFlags(kind string, flags []string) {
	for _, flag := range flags {
		m.flagsTotal.WithLabelValues(kind, flag).Inc()
	}
}

// Describe implements the prometheus.Collector interface.
func (m *AnalyzerMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.analysesTotal.Describe(ch)
	m.analysisDuration.Describe(ch)
	m.facesDetected.Describe(ch)
	m.audioLevel.Describe(ch)
	m.flagsTotal.Describe(ch)
	m.errorsTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *AnalyzerMetrics) Collect(ch chan<- prometheus.Metric) {
	m.analysesTotal.Collect(ch)
	m.analysisDuration.Collect(ch)
	m.facesDetected.Collect(ch)
	m.audioLevel.Collect(ch)
	m.flagsTotal.Collect(ch)
	m.errorsTotal.Collect(ch)
}
