package eventmodels

// EsdbMetadata is stored in the EventStoreDB metadata slot alongside each
// event and carries the serialized trace context of the operation that
// produced it.
type EsdbMetadata struct {
	SpanContext []byte `json:"span_context"`
}
