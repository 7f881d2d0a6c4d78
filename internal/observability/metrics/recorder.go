// Package metrics provides custom Prometheus metrics for nutrilog.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on concrete collectors.
type Recorder interface {
	// RecordOperation records an operation with its status (e.g. "success", "error").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type.
	// The errorType is usually an error category such as "validation" or "database".
	RecordError(operation, errorType string)

	// RecordRows adds n rows of the given kind (RowsUpserted, RowsDegraded).
	RecordRows(kind string, n int)
}

// NopRecorder discards all metrics.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string)     {}
func (NopRecorder) RecordRows(string, int)         {}
