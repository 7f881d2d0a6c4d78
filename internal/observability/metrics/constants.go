// Package metrics provides constants used across metric definitions.
package metrics

// Operation type constants used as metric labels.
const (
	// OpUpload represents a complete file ingest.
	OpUpload = "upload"
	// OpParse represents CSV row extraction.
	OpParse = "parse"
	// OpDerive represents derived metric computation.
	OpDerive = "derive"
	// OpUpsert represents the datastore upsert transaction.
	OpUpsert = "upsert"
)

// Status label values.
const (
	// StatusSuccess marks an operation that completed.
	StatusSuccess = "success"
	// StatusError marks an operation that failed.
	StatusError = "error"
	// StatusRejected marks input refused as invalid.
	StatusRejected = "rejected"
)

// Row kinds counted by RecordRows.
const (
	// RowsUpserted counts rows written to the datastore.
	RowsUpserted = "upserted"
	// RowsDegraded counts rows whose nutrition payload could not be interpreted.
	RowsDegraded = "degraded"
)

// Histogram bucket parameters.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketCount15 defines 15 exponential buckets (1ms to ~16s).
	BucketCount15 = 15
)
