// Package metrics records evaluation and store measurements as Prometheus
// metrics. An [Observer] is passed to the evaluator with [lang.WithObserver].
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ardnew/orml/lang"
)

// Namespace prefixes every metric name.
const Namespace = "orml"

// Observer implements [lang.Observer] with Prometheus collectors.
type Observer struct {
	storeCalls    *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	evals         *prometheus.CounterVec
	evalDuration  prometheus.Histogram
}

// New returns an Observer whose collectors are registered with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Observer {
	o := &Observer{
		storeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "store_calls_total",
			Help:      "Number of data access adapter calls by operation and outcome.",
		}, []string{"op", "status"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "store_call_duration_seconds",
			Help:      "Latency of data access adapter calls.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"op"}),
		evals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "evaluations_total",
			Help:      "Number of evaluations by result kind and error class.",
		}, []string{"result", "status"}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Latency of complete evaluations.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(o.storeCalls, o.storeDuration, o.evals, o.evalDuration)
	}

	return o
}

// ObserveStore implements [lang.Observer].
func (o *Observer) ObserveStore(op string, elapsed time.Duration, err error) {
	o.storeCalls.WithLabelValues(op, Status(err)).Inc()
	o.storeDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveEval implements [lang.Observer].
func (o *Observer) ObserveEval(result lang.Kind, elapsed time.Duration, err error) {
	label := result.String()
	if err != nil {
		label = "none"
	}

	o.evals.WithLabelValues(label, Status(err)).Inc()
	o.evalDuration.Observe(elapsed.Seconds())
}

// classes maps error sentinels to status labels, most specific first.
var classes = []struct {
	err   error
	label string
}{
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "deadline"},
	{lang.ErrLex, "lex"},
	{lang.ErrParse, "parse"},
	{lang.ErrName, "name"},
	{lang.ErrEntityResolution, "entity"},
	{lang.ErrArgument, "argument"},
	{lang.ErrType, "type"},
	{lang.ErrIndex, "index"},
	{lang.ErrArithmetic, "arithmetic"},
	{lang.ErrStore, "store"},
}

// Status returns the status label of err: "ok" for nil, the error class for
// language errors, and "error" otherwise.
func Status(err error) string {
	if err == nil {
		return "ok"
	}

	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.label
		}
	}

	return "error"
}

// WriteFile writes all metrics gathered by g to path in the Prometheus text
// format, as read by the node exporter textfile collector.
func WriteFile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
