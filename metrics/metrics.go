// Package metrics exposes ingestion, retrieval and answer activity as
// prometheus collectors. Each Metrics value registers its collectors on
// the registerer it was built with, so tests can use a private registry.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/poiesic/docent/answer"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/ingestion"
	"github.com/poiesic/docent/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docent"

// Metrics holds every collector.
type Metrics struct {
	Retrievals       prometheus.Counter
	RetrievalLatency prometheus.Histogram
	RetrievedResults prometheus.Histogram
	Filtered         prometheus.Counter

	Documents       prometheus.Counter
	Fragments       prometheus.Counter
	FailedBatches   prometheus.Counter
	IngestErrors    *prometheus.CounterVec
	IngestLatency   prometheus.Histogram
	DeletedFragment prometheus.Counter

	Answers       *prometheus.CounterVec
	AnswerLatency prometheus.Histogram
	AnswerErrors  prometheus.Counter

	Requests *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Retrievals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Total number of similarity searches",
		}),
		RetrievalLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Similarity search latency in seconds, embedding included",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		RetrievedResults: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results",
			Help:      "Fragments returned per search after approval filtering",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 20},
		}),
		Filtered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_filtered_total",
			Help:      "Ranked fragments dropped because their document is not approved",
		}),

		Documents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_documents_total",
			Help:      "Documents ingested successfully",
		}),
		Fragments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_fragments_total",
			Help:      "Fragments written to the index",
		}),
		FailedBatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_batches_total",
			Help:      "Index batches that failed to embed or persist",
		}),
		IngestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_errors_total",
			Help:      "Failed ingestions by reason",
		}, []string{"reason"}),
		IngestLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Document ingestion latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		DeletedFragment: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deleted_fragments_total",
			Help:      "Fragments removed with their documents",
		}),

		Answers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answered questions by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		AnswerLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "Question answering latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		AnswerErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_errors_total",
			Help:      "Questions that failed with an error",
		}),

		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
	}
}

// ObserveRequest counts one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int) {
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// SearchMonitor returns a search.Monitor feeding m.
func (m *Metrics) SearchMonitor() search.Monitor {
	return searchMonitor{m}
}

// IngestionMonitor returns an ingestion.Monitor feeding m.
func (m *Metrics) IngestionMonitor() ingestion.Monitor {
	return ingestionMonitor{m}
}

// AnswerMonitor returns an answer.Monitor feeding m.
func (m *Metrics) AnswerMonitor() answer.Monitor {
	return answerMonitor{m}
}

type searchMonitor struct{ m *Metrics }

func (s searchMonitor) Start(_ string, _ int) {
	s.m.Retrievals.Inc()
}

func (s searchMonitor) AfterEmbedding(_ int) {}

func (s searchMonitor) AfterRanking(_ []*core.SearchResult) {}

func (s searchMonitor) Filtered(_ *core.SearchResult) {
	s.m.Filtered.Inc()
}

func (s searchMonitor) Finish(results []*core.SearchResult, elapsed time.Duration) {
	s.m.RetrievedResults.Observe(float64(len(results)))
	s.m.RetrievalLatency.Observe(elapsed.Seconds())
}

type ingestionMonitor struct{ m *Metrics }

func (i ingestionMonitor) Ingested(_ string, fragments, failedBatches int, elapsed time.Duration) {
	i.m.Documents.Inc()
	i.m.Fragments.Add(float64(fragments))
	i.m.FailedBatches.Add(float64(failedBatches))
	i.m.IngestLatency.Observe(elapsed.Seconds())
}

func (i ingestionMonitor) Failed(_ string, err error) {
	i.m.IngestErrors.WithLabelValues(reason(err)).Inc()
}

func (i ingestionMonitor) Deleted(_ string, fragments int) {
	i.m.DeletedFragment.Add(float64(fragments))
}

type answerMonitor struct{ m *Metrics }

func (a answerMonitor) Answered(strategy string, _ int, degraded bool, elapsed time.Duration) {
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	a.m.Answers.WithLabelValues(strategy, outcome).Inc()
	a.m.AnswerLatency.Observe(elapsed.Seconds())
}

func (a answerMonitor) Failed(_ error) {
	a.m.AnswerErrors.Inc()
}

// reason maps an ingestion error to a low-cardinality label.
func reason(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidDocumentKey):
		return "invalid_key"
	case errors.Is(err, core.ErrExtractionUnavailable):
		return "extraction"
	case errors.Is(err, core.ErrEmptyContent):
		return "empty"
	case errors.Is(err, core.ErrBatchWrite):
		return "batch_write"
	default:
		return "other"
	}
}
