package domain

import "time"

// Metric selects the distance function used to rank chunks.
type Metric string

// Supported similarity metrics.
const (
	// MetricCosine ranks by cosine similarity, best first, and supports a
	// minimum-score threshold. This is the default retrieval metric.
	MetricCosine Metric = "cosine"

	// MetricL2 ranks by Euclidean distance, ascending. No thresholding.
	MetricL2 Metric = "l2"

	// MetricInnerProduct ranks by raw inner product, descending.
	// No thresholding.
	MetricInnerProduct Metric = "inner_product"
)

// Valid reports whether m names a supported metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricCosine, MetricL2, MetricInnerProduct:
		return true
	}
	return false
}

// FlowMode selects which query flow the orchestrator runs. The mode is
// fixed at construction, not chosen per request.
type FlowMode string

// Query flows.
const (
	// FlowPreRetrieval retrieves context up front and sends one prompt.
	FlowPreRetrieval FlowMode = "pre_retrieval"

	// FlowToolCalling lets the model decide whether to search, with at
	// most one tool-execution round per query.
	FlowToolCalling FlowMode = "tool_calling"
)

// Valid reports whether f names a supported flow.
func (f FlowMode) Valid() bool {
	return f == FlowPreRetrieval || f == FlowToolCalling
}

// QueryRecord is an append-only audit entry for one processed query.
// Records are never mutated after creation.
type QueryRecord struct {
	// ID is the unique identifier for the record.
	ID string

	// QueryText is the user's question as received.
	QueryText string

	// ResponseText is the assistant's final reply.
	ResponseText string

	// Embedding is the query's vector, kept for audit and debugging only.
	// Nil when no embedding was computed for the query.
	Embedding []float32

	// CreatedAt is when the record was written.
	CreatedAt time.Time
}
