// Package metrics exposes Prometheus counters for extraction runs and the
// HTTP endpoints that serve them.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/trapperkeeper/internal/category"
)

const namespace = "trapperkeeper"

// Collector holds the metrics of one process in its own registry.
type Collector struct {
	registry *prometheus.Registry

	FilesProcessed     *prometheus.CounterVec
	ContentsExtracted  *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ExtractionDuration prometheus.Histogram
	OrganizeDuration   prometheus.Histogram
	WatchedPaths       prometheus.Gauge
}

// New creates a Collector with Go runtime and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Total number of files processed",
		}, []string{"status"}),
		ContentsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contents_extracted_total",
			Help:      "Total number of extracted content records",
		}, []string{"category"}),
		ProcessingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Time to parse and extract one file",
			Buckets:   prometheus.DefBuckets,
		}, []string{"file_type"}),
		ExtractionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent in content extraction",
			Buckets:   prometheus.DefBuckets,
		}),
		OrganizeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "organization_duration_seconds",
			Help:      "Time spent organizing and writing output",
			Buckets:   prometheus.DefBuckets,
		}),
		WatchedPaths: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watched_paths",
			Help:      "Number of paths currently watched",
		}),
	}
	c.registry.MustRegister(
		c.FilesProcessed,
		c.ContentsExtracted,
		c.ProcessingDuration,
		c.ExtractionDuration,
		c.OrganizeDuration,
		c.WatchedPaths,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// RegisterDetector exports the detector's score cache hit and miss counts.
func (c *Collector) RegisterDetector(d *category.Detector) error {
	hits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detector_cache_hits_total",
		Help:      "Category score cache hits",
	}, func() float64 {
		h, _ := d.CacheStats()
		return float64(h)
	})
	misses := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detector_cache_misses_total",
		Help:      "Category score cache misses",
	}, func() float64 {
		_, m := d.CacheStats()
		return float64(m)
	})
	if err := c.registry.Register(hits); err != nil {
		return err
	}
	return c.registry.Register(misses)
}

// FileDone records one processed file.
func (c *Collector) FileDone(fileType string, took time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.FilesProcessed.WithLabelValues(status).Inc()
	c.ProcessingDuration.WithLabelValues(fileType).Observe(took.Seconds())
}

// Extracted counts records per category label.
func (c *Collector) Extracted(cat category.Category, n int) {
	c.ContentsExtracted.WithLabelValues(cat.Label()).Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Router mounts /metrics and /healthz.
func (c *Collector) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", c.Handler())
	return r
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: c.Router(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
