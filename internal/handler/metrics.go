package handler

import (
	"fmt"
	"net/http"

	"github.com/todoapp/todo-backend/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "todo_items_created_total %d\n", snap.TodosCreated)
	writeMetric(w, "todo_items_updated_total %d\n", snap.TodosUpdated)
	writeMetric(w, "todo_items_deleted_total %d\n", snap.TodosDeleted)

	writeMetric(w, "todo_ownership_denied_total{op=\"update\"} %d\n", snap.UpdateOwnershipDenied)
	writeMetric(w, "todo_ownership_denied_total{op=\"delete\"} %d\n", snap.DeleteOwnershipDenied)

	writeMetric(w, "todo_upload_urls_issued_total %d\n", snap.UploadURLsIssued)

	writeMetric(w, "todo_list_cache_hits_total %d\n", snap.ListCacheHits)
	writeMetric(w, "todo_list_cache_misses_total %d\n", snap.ListCacheMisses)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
