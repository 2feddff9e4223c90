// Package metrics wraps the Prometheus collectors exposed by a consumer
// process: messages pushed, popped, acked, retried and no-acked, reaper
// requeues, and the current in-flight gauge. Metrics are a process-wide
// singleton initialized by the embedding binary; the core queue/consumer
// packages never initialize it themselves, only call the Record* functions,
// which are no-ops until Init is called.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// QueueMetrics wraps the Prometheus collectors for one or more task queues,
// all labeled by queue name.
type QueueMetrics struct {
	registry *prometheus.Registry

	pushedTotal   *prometheus.CounterVec
	poppedTotal   *prometheus.CounterVec
	ackedTotal    *prometheus.CounterVec
	retriedTotal  *prometheus.CounterVec
	noAckedTotal  *prometheus.CounterVec
	requeuedTotal *prometheus.CounterVec
	dispatchTotal *prometheus.CounterVec

	inFlight *prometheus.GaugeVec
}

var promMetrics *QueueMetrics

// Init initializes the Prometheus metrics subsystem under the given
// namespace. Calling it more than once replaces the previous registry.
func Init(namespace string) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	qm := &QueueMetrics{
		registry: registry,

		pushedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_pushed_total",
				Help:      "Total number of messages pushed onto a queue",
			},
			[]string{"queue"},
		),

		poppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_popped_total",
				Help:      "Total number of messages popped from a queue",
			},
			[]string{"queue"},
		),

		ackedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_acked_total",
				Help:      "Total number of messages successfully acknowledged",
			},
			[]string{"queue"},
		),

		retriedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_retried_total",
				Help:      "Total number of in-process handler retries",
			},
			[]string{"queue", "callable"},
		),

		noAckedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_no_acked_total",
				Help:      "Total number of messages re-enqueued after exhausting retries",
			},
			[]string{"queue", "callable"},
		),

		requeuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reaper_requeued_total",
				Help:      "Total number of messages requeued by the ack-timeout reaper",
			},
			[]string{"queue"},
		),

		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_total",
				Help:      "Total dispatch outcomes by result",
			},
			[]string{"queue", "result"}, // success, handler_failure, unknown_handler, decode_error
		),

		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "in_flight_messages",
				Help:      "Current number of messages in the ack-pending in-flight set",
			},
			[]string{"queue"},
		),
	}

	registry.MustRegister(
		qm.pushedTotal,
		qm.poppedTotal,
		qm.ackedTotal,
		qm.retriedTotal,
		qm.noAckedTotal,
		qm.requeuedTotal,
		qm.dispatchTotal,
		qm.inFlight,
	)

	promMetrics = qm
}

// RecordPush increments the pushed-message counter for a queue.
func RecordPush(queue string) {
	if promMetrics == nil {
		return
	}
	promMetrics.pushedTotal.WithLabelValues(queue).Inc()
}

// RecordPop increments the popped-message counter for a queue.
func RecordPop(queue string) {
	if promMetrics == nil {
		return
	}
	promMetrics.poppedTotal.WithLabelValues(queue).Inc()
}

// RecordAck increments the acked-message counter for a queue.
func RecordAck(queue string) {
	if promMetrics == nil {
		return
	}
	promMetrics.ackedTotal.WithLabelValues(queue).Inc()
}

// RecordRetry increments the retry counter for a queue/callable pair.
func RecordRetry(queue, callable string) {
	if promMetrics == nil {
		return
	}
	promMetrics.retriedTotal.WithLabelValues(queue, callable).Inc()
}

// RecordNoAck increments the no-ack (retries-exhausted) counter.
func RecordNoAck(queue, callable string) {
	if promMetrics == nil {
		return
	}
	promMetrics.noAckedTotal.WithLabelValues(queue, callable).Inc()
}

// RecordReaperRequeue increments the reaper requeue counter for a queue.
func RecordReaperRequeue(queue string) {
	if promMetrics == nil {
		return
	}
	promMetrics.requeuedTotal.WithLabelValues(queue).Inc()
}

// RecordDispatch records a dispatch outcome for a queue.
func RecordDispatch(queue, result string) {
	if promMetrics == nil {
		return
	}
	promMetrics.dispatchTotal.WithLabelValues(queue, result).Inc()
}

// SetInFlight sets the current in-flight gauge for a queue.
func SetInFlight(queue string, n int) {
	if promMetrics == nil {
		return
	}
	promMetrics.inFlight.WithLabelValues(queue).Set(float64(n))
}

// Handler returns the HTTP handler serving the Prometheus exposition format.
// Returns a 503 handler when Init has not been called.
func Handler() http.Handler {
	if promMetrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("metrics not initialized"))
		})
	}
	return promhttp.HandlerFor(promMetrics.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry, or nil if Init has not been called.
func Registry() *prometheus.Registry {
	if promMetrics == nil {
		return nil
	}
	return promMetrics.registry
}
