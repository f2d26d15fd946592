// Package metrics exposes extraction counters and timings to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"invoiceapi/internal/extract"
)

// Extraction records per-document pipeline outcomes.
type Extraction struct {
	documents  *prometheus.CounterVec
	readErrors prometheus.Counter
	records    prometheus.Counter
	duration   prometheus.Histogram
}

var _ extract.Observer = (*Extraction)(nil)

// NewExtraction registers the extraction collectors on reg.
func NewExtraction(reg prometheus.Registerer) (*Extraction, error) {
	m := &Extraction{
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoice_documents_processed_total",
				Help: "Documents run through extraction, by table method.",
			},
			[]string{"method"},
		),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoice_document_read_errors_total",
			Help: "Documents that could not be read or timed out.",
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoice_records_emitted_total",
			Help: "Invoice records produced, sentinel rows included.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "invoice_extraction_duration_seconds",
			Help:    "Time spent extracting one document.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}

	for _, c := range []prometheus.Collector{m.documents, m.readErrors, m.records, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Extraction) ObserveDocument(method extract.Method, records int, elapsed time.Duration, err error) {
	m.documents.WithLabelValues(string(method)).Inc()
	m.records.Add(float64(records))
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.readErrors.Inc()
	}
}
