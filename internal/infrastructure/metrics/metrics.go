package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SubmissionMetrics covers the e-invoice submission lifecycle.
type SubmissionMetrics struct {
	TransactionsCreatedTotal prometheus.Counter

	SubmissionsTotal       prometheus.CounterVec
	SubmissionDuration     prometheus.HistogramVec
	RetriesTotal           prometheus.CounterVec
	RetriesExhaustedTotal  prometheus.Counter
	ValidationFailedTotal  prometheus.Counter
	TransactionsByStatus   prometheus.GaugeVec
	SubmissionErrorsTotal  prometheus.CounterVec
}

func NewSubmissionMetrics() *SubmissionMetrics {
	return &SubmissionMetrics{
		TransactionsCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "efactura_transactions_created_total",
				Help: "Total number of e-invoice transactions created",
			},
		),

		SubmissionsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "efactura_submissions_total",
				Help: "Total number of submission attempts by outcome",
			},
			[]string{"outcome"},
		),

		SubmissionDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "efactura_submission_duration_seconds",
				Help:    "Duration of a full submission attempt in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"outcome"},
		),

		RetriesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "efactura_retries_total",
				Help: "Total number of retry attempts by trigger source",
			},
			[]string{"trigger"},
		),

		RetriesExhaustedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "efactura_retries_exhausted_total",
				Help: "Transactions that reached the maximum retry count",
			},
		),

		ValidationFailedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "efactura_validation_failed_total",
				Help: "XML generation or validation failures",
			},
		),

		TransactionsByStatus: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "efactura_transactions_by_status",
				Help: "Number of transactions by lifecycle status",
			},
			[]string{"status"},
		),

		SubmissionErrorsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "efactura_submission_errors_total",
				Help: "Submission errors by failure class",
			},
			[]string{"failure_class"},
		),
	}
}

func (m *SubmissionMetrics) RecordTransactionCreated() {
	m.TransactionsCreatedTotal.Inc()
	m.TransactionsByStatus.WithLabelValues("DRAFT").Inc()
}

func (m *SubmissionMetrics) RecordSubmission(outcome string, durationSeconds float64) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
	m.SubmissionDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

func (m *SubmissionMetrics) RecordRetry(trigger string) {
	m.RetriesTotal.WithLabelValues(trigger).Inc()
}

func (m *SubmissionMetrics) RecordRetryExhausted() {
	m.RetriesExhaustedTotal.Inc()
}

func (m *SubmissionMetrics) RecordValidationFailed() {
	m.ValidationFailedTotal.Inc()
}

func (m *SubmissionMetrics) RecordStatusChange(from, to string) {
	if from != "" {
		m.TransactionsByStatus.WithLabelValues(from).Dec()
	}
	m.TransactionsByStatus.WithLabelValues(to).Inc()
}

func (m *SubmissionMetrics) RecordError(failureClass string) {
	m.SubmissionErrorsTotal.WithLabelValues(failureClass).Inc()
}
