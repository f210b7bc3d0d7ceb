// Package metrics exposes Prometheus collectors for the extraction pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the pipeline collectors. Construct with New and register
// once per process.
type Metrics struct {
	DocumentsProcessed    *prometheus.CounterVec
	TransactionsExtracted prometheus.Counter
	RowsDropped           *prometheus.CounterVec
	QualityScore          prometheus.Histogram
	StageDuration         *prometheus.HistogramVec
	OCRFallbacks          prometheus.Counter
}

// New creates the collectors and registers them with reg. Passing
// prometheus.DefaultRegisterer is the usual choice.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statement",
			Name:      "documents_processed_total",
			Help:      "Documents processed by final outcome.",
		}, []string{"outcome"}),
		TransactionsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statement",
			Name:      "transactions_extracted_total",
			Help:      "Transactions that survived parsing and dedup.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statement",
			Name:      "rows_dropped_total",
			Help:      "Reconstructed rows dropped during field parsing, by reason.",
		}, []string{"reason"}),
		QualityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "statement",
			Name:      "quality_score",
			Help:      "Batch confidence score per document.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "statement",
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		OCRFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statement",
			Name:      "ocr_fallbacks_total",
			Help:      "Documents whose text layer was unreadable and went through OCR.",
		}),
	}

	reg.MustRegister(
		m.DocumentsProcessed,
		m.TransactionsExtracted,
		m.RowsDropped,
		m.QualityScore,
		m.StageDuration,
		m.OCRFallbacks,
	)
	return m
}

// Nop returns metrics backed by an isolated registry, for tests and callers
// that do not scrape.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
