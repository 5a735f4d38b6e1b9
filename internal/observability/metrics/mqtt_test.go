package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMQTTMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewMQTTMetrics(registry)
	require.NoError(t, err)

	m.UpdateConnectionStatus(true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ConnectionStatus), 0)
	assert.Positive(t, testutil.ToFloat64(m.LastConnectTime))

	m.UpdateConnectionStatus(false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.ConnectionStatus), 0)

	m.IncrementMessagesDelivered(KindFace)
	m.IncrementMessagesDelivered(KindFace)
	m.IncrementErrors()
	m.IncrementReconnectAttempts()
	m.ObserveMessageSize(180)
	m.StartPublishTimer().ObserveDuration()

	assert.InDelta(t, 2, testutil.ToFloat64(m.MessagesDelivered.WithLabelValues(KindFace)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ReconnectAttempts), 0)

	count, err := testutil.GatherAndCount(registry, "proctor_mqtt_publish_latency_seconds", "proctor_mqtt_message_size_bytes")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHTTPMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(registry)
	require.NoError(t, err)

	m.RequestStarted()
	m.RequestStarted()
	assert.InDelta(t, 2, m.InFlight(), 0)
	m.RequestFinished()
	assert.InDelta(t, 1, m.InFlight(), 0)

	m.RecordHTTPRequest("POST", "/analyze-face", 400, 0.01)
	m.RecordHTTPRequestError("POST", "/analyze-face", "invalid_input")
	m.RecordHTTPResponseSize("POST", "/analyze-face", 64)

	assert.InDelta(t, 1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "/analyze-face", "400")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requestErrors.WithLabelValues("POST", "/analyze-face", "invalid_input")), 0)
}
