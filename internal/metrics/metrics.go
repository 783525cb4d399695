// Package metrics records command outcomes and latencies.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder knows how to record command executions.
type Recorder interface {
	ObserveCommand(ctx context.Context, command, outcome string, duration time.Duration)
}

// Noop recorder.
const Noop = noop(0)

type noop int

func (noop) ObserveCommand(context.Context, string, string, time.Duration) {}

// Prometheus is a Recorder backed by prometheus collectors.
type Prometheus struct {
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "task_workflow",
			Name:      "commands_total",
			Help:      "Commands handled, by command and outcome code.",
		}, []string{"command", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "task_workflow",
			Name:      "command_duration_seconds",
			Help:      "Command handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}
	for _, c := range []prometheus.Collector{p.commands, p.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("could not register collector: %w", err)
		}
	}
	return p, nil
}

func (p *Prometheus) ObserveCommand(_ context.Context, command, outcome string, duration time.Duration) {
	p.commands.WithLabelValues(command, outcome).Inc()
	p.duration.WithLabelValues(command).Observe(duration.Seconds())
}

// Handler exposes g in the prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
