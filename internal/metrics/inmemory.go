package metrics

import "sync/atomic"

// Snapshot captures current in-memory counters.
type Snapshot struct {
	TodosCreated          uint64
	TodosUpdated          uint64
	TodosDeleted          uint64
	UpdateOwnershipDenied uint64
	DeleteOwnershipDenied uint64
	UploadURLsIssued      uint64
	ListCacheHits         uint64
	ListCacheMisses       uint64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	todosCreated          uint64
	todosUpdated          uint64
	todosDeleted          uint64
	updateOwnershipDenied uint64
	deleteOwnershipDenied uint64
	uploadURLsIssued      uint64
	listCacheHits         uint64
	listCacheMisses       uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		TodosCreated:          atomic.LoadUint64(&m.todosCreated),
		TodosUpdated:          atomic.LoadUint64(&m.todosUpdated),
		TodosDeleted:          atomic.LoadUint64(&m.todosDeleted),
		UpdateOwnershipDenied: atomic.LoadUint64(&m.updateOwnershipDenied),
		DeleteOwnershipDenied: atomic.LoadUint64(&m.deleteOwnershipDenied),
		UploadURLsIssued:      atomic.LoadUint64(&m.uploadURLsIssued),
		ListCacheHits:         atomic.LoadUint64(&m.listCacheHits),
		ListCacheMisses:       atomic.LoadUint64(&m.listCacheMisses),
	}
}

// IncTodoCreated increments todo created counter.
func (m *InMemoryRecorder) IncTodoCreated() {
	atomic.AddUint64(&m.todosCreated, 1)
}

// IncTodoUpdated increments todo updated counter.
func (m *InMemoryRecorder) IncTodoUpdated() {
	atomic.AddUint64(&m.todosUpdated, 1)
}

// IncTodoDeleted increments todo deleted counter.
func (m *InMemoryRecorder) IncTodoDeleted() {
	atomic.AddUint64(&m.todosDeleted, 1)
}

// IncOwnershipDenied increments the denial counter for op.
func (m *InMemoryRecorder) IncOwnershipDenied(op string) {
	switch op {
	case "update":
		atomic.AddUint64(&m.updateOwnershipDenied, 1)
	case "delete":
		atomic.AddUint64(&m.deleteOwnershipDenied, 1)
	}
}

// IncUploadURLIssued increments issued upload URL counter.
func (m *InMemoryRecorder) IncUploadURLIssued() {
	atomic.AddUint64(&m.uploadURLsIssued, 1)
}

// IncListCacheHit increments list cache hit counter.
func (m *InMemoryRecorder) IncListCacheHit() {
	atomic.AddUint64(&m.listCacheHits, 1)
}

// IncListCacheMiss increments list cache miss counter.
func (m *InMemoryRecorder) IncListCacheMiss() {
	atomic.AddUint64(&m.listCacheMisses, 1)
}
