// Package metrics exposes Prometheus collectors for the import pipeline.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ImportMetrics tracks statement import and confirmation activity.
type ImportMetrics struct {
	BatchesTotal    prometheus.Counter
	RowsImported    prometheus.Counter
	RowsRejected    prometheus.Counter
	RowsAutoMatched prometheus.Counter
	RowsConfirmed   prometheus.Counter
	PendingPurged   prometheus.Counter
	registry        *prometheus.Registry

	mu     sync.Mutex
	server *http.Server
}

// New creates the import metrics on a dedicated registry.
func New() *ImportMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &ImportMetrics{
		registry: reg,
		BatchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "import_batches_total",
			Help: "Number of statement import calls that produced a batch.",
		}),
		RowsImported: factory.NewCounter(prometheus.CounterOpts{
			Name: "import_rows_staged_total",
			Help: "Rows normalized and staged as pending transactions.",
		}),
		RowsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "import_rows_rejected_total",
			Help: "Rows rejected during normalization.",
		}),
		RowsAutoMatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "import_rows_auto_categorized_total",
			Help: "Staged rows categorized automatically by import rules.",
		}),
		RowsConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "import_rows_confirmed_total",
			Help: "Pending rows promoted to ledger transactions.",
		}),
		PendingPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "staging_rows_purged_total",
			Help: "Stale unconfirmed pending rows removed by the cleanup job.",
		}),
	}
}

// Handler returns the scrape endpoint for this registry.
func (m *ImportMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts a metrics HTTP server on the given port and blocks until
// Shutdown is called or the listener fails.
func (m *ImportMetrics) Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	m.mu.Lock()
	m.server = srv
	m.mu.Unlock()

	return srv.ListenAndServe()
}

// Shutdown stops the metrics server if Serve started one.
func (m *ImportMetrics) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	srv := m.server
	m.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
