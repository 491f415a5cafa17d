// Package metrics exposes Prometheus instrumentation for handler
// invocations, validation outcomes and the HTTP surface.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tso500ctdna"

// Invocation outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

var (
	initOnce sync.Once

	handlerInvocations *prometheus.CounterVec
	handlerDuration    *prometheus.HistogramVec
	validationResults  *prometheus.CounterVec
	commentsPosted     *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
)

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		handlerInvocations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handler_invocations_total",
				Help:      "Total number of handler invocations by handler and outcome.",
			},
			[]string{"handler", "outcome"},
		)

		handlerDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_duration_seconds",
				Help:      "Duration of handler invocations in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"handler"},
		)

		validationResults = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_results_total",
				Help:      "Total number of validation verdicts by validator and result.",
			},
			[]string{"validator", "result"},
		)

		commentsPosted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comments_posted_total",
				Help:      "Total number of comments posted to workflow runs by author.",
			},
			[]string{"author"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		)

		httpDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		)

		prometheus.MustRegister(
			handlerInvocations,
			handlerDuration,
			validationResults,
			commentsPosted,
			httpRequests,
			httpDuration,
		)
	})
}

// ObserveInvocation records one handler invocation.
func ObserveInvocation(handler, outcome string, d time.Duration) {
	Init()
	handlerInvocations.WithLabelValues(handler, outcome).Inc()
	handlerDuration.WithLabelValues(handler).Observe(d.Seconds())
}

// IncValidation records a validator verdict.
func IncValidation(validator string, valid bool) {
	Init()
	result := "valid"
	if !valid {
		result = "invalid"
	}
	validationResults.WithLabelValues(validator, result).Inc()
}

// IncComment records a comment posted by author.
func IncComment(author string) {
	Init()
	commentsPosted.WithLabelValues(author).Inc()
}

// ObserveHTTP records one HTTP request.
func ObserveHTTP(method, path, status string, d time.Duration) {
	Init()
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// InvocationCount returns the current invocation counter value.
func InvocationCount(handler, outcome string) prometheus.Counter {
	Init()
	return handlerInvocations.WithLabelValues(handler, outcome)
}

// ValidationCount returns the current validation counter.
func ValidationCount(validator string, valid bool) prometheus.Counter {
	Init()
	result := "valid"
	if !valid {
		result = "invalid"
	}
	return validationResults.WithLabelValues(validator, result)
}
