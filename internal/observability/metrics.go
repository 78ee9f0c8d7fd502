// Package observability exposes the crawl and storage counters.
package observability

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks operational metrics for the scraper. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ListingPages      prometheus.Counter
	ArticlesYielded   prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	ParseFailures     prometheus.Counter
	MetagridMisses    prometheus.Counter
	RecordsWritten    *prometheus.CounterVec
	StoreErrors       *prometheus.CounterVec
	PolitenessWait    prometheus.Histogram

	logger *slog.Logger
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ListingPages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dhscrape_listing_pages_total",
			Help: "Total search listing pages fetched.",
		}),
		ArticlesYielded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dhscrape_articles_yielded_total",
			Help: "Total articles handed to the crawl callback.",
		}),
		DuplicatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dhscrape_duplicates_skipped_total",
			Help: "Total listing rows skipped as already visited.",
		}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dhscrape_parse_failures_total",
			Help: "Total articles whose full parse failed during a crawl.",
		}),
		MetagridMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dhscrape_metagrid_misses_total",
			Help: "Total parsed articles without metagrid links.",
		}),
		RecordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dhscrape_records_written_total",
			Help: "Total records written, labeled by storage backend.",
		}, []string{"backend"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dhscrape_store_errors_total",
			Help: "Total failed batch writes, labeled by storage backend.",
		}, []string{"backend"}),
		PolitenessWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dhscrape_politeness_wait_seconds",
			Help:    "Histogram of time spent waiting between requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		logger: logger.With("component", "metrics"),
	}
	reg.MustRegister(
		m.ListingPages,
		m.ArticlesYielded,
		m.DuplicatesSkipped,
		m.ParseFailures,
		m.MetagridMisses,
		m.RecordsWritten,
		m.StoreErrors,
		m.PolitenessWait,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncListingPages counts a fetched listing page.
func (m *Metrics) IncListingPages() {
	if m != nil {
		m.ListingPages.Inc()
	}
}

// IncArticlesYielded counts an article handed to the caller.
func (m *Metrics) IncArticlesYielded() {
	if m != nil {
		m.ArticlesYielded.Inc()
	}
}

// IncDuplicatesSkipped counts a skipped duplicate.
func (m *Metrics) IncDuplicatesSkipped() {
	if m != nil {
		m.DuplicatesSkipped.Inc()
	}
}

// IncParseFailures counts a failed full parse.
func (m *Metrics) IncParseFailures() {
	if m != nil {
		m.ParseFailures.Inc()
	}
}

// IncMetagridMisses counts an article left without metagrid links.
func (m *Metrics) IncMetagridMisses() {
	if m != nil {
		m.MetagridMisses.Inc()
	}
}

// AddRecordsWritten counts n records written by backend.
func (m *Metrics) AddRecordsWritten(backend string, n int) {
	if m != nil {
		m.RecordsWritten.WithLabelValues(backend).Add(float64(n))
	}
}

// IncStoreErrors counts a failed batch write.
func (m *Metrics) IncStoreErrors(backend string) {
	if m != nil {
		m.StoreErrors.WithLabelValues(backend).Inc()
	}
}

// ObservePolitenessWait records a wait before a request, in seconds.
func (m *Metrics) ObservePolitenessWait(seconds float64) {
	if m != nil {
		m.PolitenessWait.Observe(seconds)
	}
}

// NewMux returns the mux serving metrics on path and a health probe.
func (m *Metrics) NewMux(path string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return mux
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) {
	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, m.NewMux(path)); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
}
