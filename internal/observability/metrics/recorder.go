// Package metrics provides the Prometheus collectors used by proctor-go.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on concrete collectors so tests can
// pass a nil-safe no-op or a fresh registry.
type Recorder interface {
	// RecordOperation records one analysis of the given kind with its status
	// (success, invalid_input, error).
	RecordOperation(kind, status string)

	// RecordDuration records how long an analysis of the given kind took.
	RecordDuration(kind string, seconds float64)

	// RecordError records an error occurrence by component and category.
	RecordError(component, category string)
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string)     {}
