package metrics

import "time"

// Analysis kinds, used as the "kind" label
const (
	KindFace      = "face"
	KindAudio     = "audio"
	KindVideo     = "video"
	KindAudioBlob = "audio_blob"
)

const (
	namespace     = "proctor"
	subsystemMQTT = "mqtt"
	subsystemHTTP = "http"
)

// Status label values
const (
	StatusSuccess      = "success"
	StatusInvalidInput = "invalid_input"
	StatusError        = "error"
)

// Histogram bucket parameters
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~4s with 12 buckets).
	BucketStart1ms = 0.001
	// BucketStart100B is the starting bucket for byte size histograms.
	BucketStart100B = 100.0
	// BucketStart64B is the starting bucket for MQTT payload histograms.
	BucketStart64B = 64.0

	BucketFactor2  = 2
	BucketFactor10 = 10

	BucketCount6  = 6
	BucketCount10 = 10
	BucketCount12 = 12
)

// ShutdownTimeout is the timeout for graceful shutdown operations.
const ShutdownTimeout = 5 * time.Second
