package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/fetch"
)

// namespace prefixes every metric name.
const namespace = "sitecrawl"

// Compile-time interface check.
var _ crawler.Observer = (*Collector)(nil)

// Collector records crawl events as Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	pagesFetched   prometheus.Counter
	fetchFailures  *prometheus.CounterVec
	linksExtracted prometheus.Counter
	revisits       prometheus.Counter
	skipped        *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
}

// NewCollector creates a Collector with its metrics registered on a new
// registry.
func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Number of pages fetched successfully.",
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Number of pages that could not be fetched, by reason.",
		}, []string{"reason"}),
		linksExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_extracted_total",
			Help:      "Number of same-origin links extracted from fetched pages.",
		}),
		revisits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revisits_total",
			Help:      "Number of references to pages that were already recorded.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_total",
			Help:      "Number of URLs dropped without being recorded, by reason.",
		}, []string{"reason"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time taken to fetch a page successfully.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	collectors := []prometheus.Collector{
		c.pagesFetched,
		c.fetchFailures,
		c.linksExtracted,
		c.revisits,
		c.skipped,
		c.fetchDuration,
	}
	for _, col := range collectors {
		if err := c.registry.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return c, nil
}

// PageFetched implements crawler.Observer.
func (c *Collector) PageFetched(_ string, elapsed time.Duration) {
	c.pagesFetched.Inc()
	c.fetchDuration.Observe(elapsed.Seconds())
}

// FetchFailed implements crawler.Observer.
func (c *Collector) FetchFailed(_ string, err error) {
	reason := string(fetch.ReasonOf(err))
	if reason == "" {
		reason = "unknown"
	}
	c.fetchFailures.WithLabelValues(reason).Inc()
}

// LinksExtracted implements crawler.Observer.
func (c *Collector) LinksExtracted(_ string, count int) {
	c.linksExtracted.Add(float64(count))
}

// Revisited implements crawler.Observer.
func (c *Collector) Revisited(string) {
	c.revisits.Inc()
}

// Skipped implements crawler.Observer.
func (c *Collector) Skipped(_ string, reason crawler.SkipReason) {
	c.skipped.WithLabelValues(string(reason)).Inc()
}

// WriteTextfile writes the current metric values to path in the Prometheus
// text format. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
