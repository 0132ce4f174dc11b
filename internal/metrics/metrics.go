package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	operationLabel = "operation"
	resultLabel    = "result"
	methodLabel    = "method"
	routeLabel     = "route"
	statusLabel    = "status"
)

type Collector struct {
	Registerer prometheus.Registerer

	SubmissionOperations  *prometheus.CounterVec
	DanglingReferences    prometheus.Counter
	EventPublishFailures  prometheus.Counter
	StagedCleanupFailures prometheus.Counter
	StatusCacheLookups    *prometheus.CounterVec
	RemindersSent         prometheus.Counter
	HTTPRequestDuration   *prometheus.HistogramVec
}

func NewCollector(registerer prometheus.Registerer) *Collector {
	c := &Collector{Registerer: registerer}

	c.SubmissionOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lms",
		Subsystem: "submission",
		Name:      "operations_count",
		Help:      "Number of submission lifecycle operations by outcome",
	}, []string{operationLabel, resultLabel})
	c.Registerer.MustRegister(c.SubmissionOperations)

	c.DanglingReferences = c.createCounter(
		"dangling_references_count",
		"Number of student back-references left pointing to a submission that failed to delete",
	)
	c.EventPublishFailures = c.createCounter(
		"event_publish_failures_count",
		"Number of submission events that could not be published",
	)
	c.StagedCleanupFailures = c.createCounter(
		"staged_cleanup_failures_count",
		"Number of staged attachments that could not be removed",
	)
	c.RemindersSent = c.createCounter(
		"reminders_sent_count",
		"Number of deadline reminders published",
	)

	c.StatusCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lms",
		Subsystem: "submission",
		Name:      "status_cache_lookups_count",
		Help:      "Assignment status cache lookups by result",
	}, []string{resultLabel})
	c.Registerer.MustRegister(c.StatusCacheLookups)

	c.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lms",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{methodLabel, routeLabel, statusLabel})
	c.Registerer.MustRegister(c.HTTPRequestDuration)

	return c
}

func (c *Collector) createCounter(name, help string) prometheus.Counter {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lms",
		Subsystem: "submission",
		Name:      name,
		Help:      help,
	})
	c.Registerer.MustRegister(counter)
	return counter
}

func (c *Collector) ObserveOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.SubmissionOperations.With(prometheus.Labels{
		operationLabel: operation,
		resultLabel:    result,
	}).Inc()
}

func (c *Collector) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.StatusCacheLookups.With(prometheus.Labels{resultLabel: result}).Inc()
}

func (c *Collector) ObserveRequest(method, route, status string, seconds float64) {
	c.HTTPRequestDuration.With(prometheus.Labels{
		methodLabel: method,
		routeLabel:  route,
		statusLabel: status,
	}).Observe(seconds)
}
