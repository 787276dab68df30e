// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Todo management metrics
	IncTodoCreated()
	IncTodoUpdated()
	IncTodoDeleted()
	IncOwnershipDenied(op string) // op: "update" or "delete"

	// Attachment metrics
	IncUploadURLIssued()

	// List cache metrics
	IncListCacheHit()
	IncListCacheMiss()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
