package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

//Register tries to register or reregister metric to prometheus default registry
func Register(m prometheus.Collector) error {
	err := prometheus.Register(m)
	if err != nil {
		prometheus.Unregister(m)
		err = prometheus.Register(m)
	}
	return err
}

//Pipeline keeps processing metrics
type Pipeline struct {
	Files             *prometheus.CounterVec
	CycleDuration     prometheus.Histogram
	SummarizeAttempts prometheus.Counter
	MarkFailures      prometheus.Counter
}

//NewPipeline creates and registers processing metrics
func NewPipeline(namespace string) (*Pipeline, error) {
	res := &Pipeline{}
	res.Files = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_total",
		Help:      "Processed source files by outcome",
	}, []string{"outcome"})
	res.CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a processing cycle",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})
	res.SummarizeAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "summarize_attempts_total",
		Help:      "Requests sent to the summarization service",
	})
	res.MarkFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mark_failures_total",
		Help:      "Failed attempts to mark source files processed",
	})
	for _, c := range []prometheus.Collector{res.Files, res.CycleDuration, res.SummarizeAttempts, res.MarkFailures} {
		if err := Register(c); err != nil {
			return nil, errors.Wrap(err, "Can't register metric")
		}
	}
	return res, nil
}

//NewHTTPDuration creates and registers http handler duration metric
func NewHTTPDuration(namespace string) (*prometheus.SummaryVec, error) {
	res := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests",
	}, []string{"code", "method"})
	if err := Register(res); err != nil {
		return nil, errors.Wrap(err, "Can't register metric")
	}
	return res, nil
}
