package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyzerMetrics(t *testing.T) (*AnalyzerMetrics, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	m, err := NewAnalyzerMetrics(registry)
	require.NoError(t, err)
	return m, registry
}

func TestAnalyzerMetricsImplementsRecorder(t *testing.T) {
	t.Parallel()

	var _ Recorder = (*AnalyzerMetrics)(nil)
	var _ Recorder = NopRecorder{}
}

func TestAnalyzerMetricsCounters(t *testing.T) {
	t.Parallel()

	m, _ := newAnalyzerMetrics(t)

	m.RecordOperation(KindFace, StatusSuccess)
	m.RecordOperation(KindFace, StatusSuccess)
	m.RecordOperation(KindAudio, StatusInvalidInput)
	m.RecordFlags(KindFace, []string{"multiple_faces", "looking_away"})
	m.RecordFlags(KindFace, []string{"looking_away"})
	m.RecordFlags(KindAudio, nil)
	m.RecordError("vision", "analysis")

	assert.InDelta(t, 2, testutil.ToFloat64(m.analysesTotal.WithLabelValues(KindFace, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.analysesTotal.WithLabelValues(KindAudio, StatusInvalidInput)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.flagsTotal.WithLabelValues(KindFace, "looking_away")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.flagsTotal.WithLabelValues(KindFace, "multiple_faces")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues("vision", "analysis")), 0)
}

func TestAnalyzerMetricsHistograms(t *testing.T) {
	t.Parallel()

	m, registry := newAnalyzerMetrics(t)

	m.RecordDuration(KindAudio, 0.004)
	m.ObserveFaces(2)
	m.ObserveAudioLevel(37.5)

	expected := `
# HELP proctor_faces_detected Number of faces detected per analyzed frame
# TYPE proctor_faces_detected histogram
proctor_faces_detected_bucket{le="0"} 0
proctor_faces_detected_bucket{le="1"} 0
proctor_faces_detected_bucket{le="2"} 1
proctor_faces_detected_bucket{le="3"} 1
proctor_faces_detected_bucket{le="5"} 1
proctor_faces_detected_bucket{le="+Inf"} 1
proctor_faces_detected_sum 2
proctor_faces_detected_count 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "proctor_faces_detected"))

	count, err := testutil.GatherAndCount(registry, "proctor_analysis_duration_seconds", "proctor_audio_level")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAnalyzerMetricsDoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewAnalyzerMetrics(registry)
	require.NoError(t, err)
	_, err = NewAnalyzerMetrics(registry)
	require.Error(t, err)
}
