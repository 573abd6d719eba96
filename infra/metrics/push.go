package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/mkrogh/nightcharge/core/metrics"
)

// PushSink pushes run metrics to a Prometheus Pushgateway. A
// run-to-completion job has no scrape surface, so the outcome is pushed
// once at the end of the run.
type PushSink struct {
	url string
	job string
}

// NewPushSink creates a sink targeting the given Pushgateway URL.
func NewPushSink(url, job string) *PushSink {
	if job == "" {
		job = "nightcharge"
	}
	return &PushSink{url: url, job: job}
}

// RecordRunOutcome registers the run's metrics on a fresh registry and
// pushes them grouped by run id.
func (s *PushSink) RecordRunOutcome(out coremetrics.RunOutcome) error {
	reg := prometheus.NewRegistry()
	price := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "charge_tonight_price",
		Help: "Spot price used for tonight's charge decision",
	})
	target := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "charge_target_percent",
		Help: "Charge limit percentage selected for tonight",
	})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "charge_runs_total",
		Help: "Charge decision runs by final reconciliation state",
	}, []string{"final_state"})
	reg.MustRegister(price, target, runs)

	price.Set(out.TonightPrice)
	target.Set(float64(out.TargetPercent))
	runs.WithLabelValues(out.FinalState).Inc()

	return push.New(s.url, s.job).
		Gatherer(reg).
		Grouping("run_id", out.RunID).
		Push()
}
