// Package metrics provides Prometheus metrics for articlecrawl.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutcomeSuccess labels crawls that produced an article. Failed crawls are
// labelled with their crawlerr.Kind name.
const OutcomeSuccess = "success"

var (
	// CrawlTotal counts finished crawls by outcome.
	CrawlTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "articlecrawl",
			Name:      "crawl_total",
			Help:      "Total number of crawl requests by outcome",
		},
		[]string{"outcome"},
	)

	// CrawlDuration measures end-to-end crawl duration.
	CrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "articlecrawl",
			Name:      "crawl_duration_seconds",
			Help:      "Duration of crawl requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// FetchBodyBytes observes the size of fetched bodies.
	FetchBodyBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "articlecrawl",
			Name:      "fetch_body_bytes",
			Help:      "Size of fetched response bodies in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	// ExtractedTextChars observes the length of extracted article text.
	ExtractedTextChars = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "articlecrawl",
			Name:      "extracted_text_chars",
			Help:      "Length of extracted article text in characters",
			Buckets:   []float64{50, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000},
		},
	)
)

// RecordCrawl records a finished crawl.
func RecordCrawl(outcome string, duration float64) {
	CrawlTotal.WithLabelValues(outcome).Inc()
	CrawlDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordFetch records the size of a fetched body.
func RecordFetch(bodyBytes int) {
	FetchBodyBytes.Observe(float64(bodyBytes))
}

// RecordExtraction records the length of extracted text.
func RecordExtraction(textChars int) {
	ExtractedTextChars.Observe(float64(textChars))
}
