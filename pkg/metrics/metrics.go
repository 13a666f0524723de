// Package metrics exports display and eye-state activity as Prometheus
// metrics. A Collector consumes the event bus, so nothing on the animation
// path ever touches a metric directly.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/events"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/eye"
)

const namespace = "eyes"

// Collector owns the eye metrics and the registry they are registered in.
type Collector struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	dropped         prometheus.Counter
	transportErrors prometheus.Counter
	transitions     *prometheus.CounterVec
	wakes           prometheus.Counter
	forceClosed     prometheus.Gauge
	state           *prometheus.GaugeVec
}

// New creates a Collector with its own registry, which also carries the Go
// runtime and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "display",
				Name:      "commands_total",
				Help:      "Commands written to the screen by kind",
			},
			[]string{"kind"},
		),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "display",
			Name:      "commands_dropped_total",
			Help:      "Commands discarded because the transport queue was full",
		}),
		transportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "display",
			Name:      "transport_errors_total",
			Help:      "Failed writes to the screen transport",
		}),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "eye",
				Name:      "state_changes_total",
				Help:      "Requested eye state changes by target state",
			},
			[]string{"state"},
		),
		wakes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eye",
			Name:      "wakes_total",
			Help:      "Wake flourishes triggered",
		}),
		forceClosed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "eye",
			Name:      "force_closed",
			Help:      "1 while the eye is force-closed",
		}),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "eye",
				Name:      "state",
				Help:      "1 for the last requested eye state, 0 otherwise",
			},
			[]string{"state"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.commands, c.dropped, c.transportErrors,
		c.transitions, c.wakes, c.forceClosed, c.state,
	)
	c.setState(eye.Open)

	return c
}

// Registry returns the registry to expose over HTTP.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Run consumes events from sub until ctx is cancelled or the subscription is
// removed.
func (c *Collector) Run(ctx context.Context, sub *events.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.Done():
			return nil
		case e := <-sub.C:
			c.Observe(e)
		}
	}
}

// Observe updates the metrics for one event.
func (c *Collector) Observe(e events.Event) {
	switch e.Kind {
	case events.FrameSent:
		c.commands.WithLabelValues("frame").Inc()
	case events.SubtitleSent:
		c.commands.WithLabelValues("subtitle").Inc()
	case events.CommandSent:
		c.commands.WithLabelValues("raw").Inc()
	case events.CommandDropped:
		c.dropped.Inc()
	case events.TransportError:
		c.transportErrors.Inc()
	case events.WakeTriggered:
		c.wakes.Inc()
	case events.StateChanged:
		if s, ok := e.Data.(eye.State); ok {
			c.transitions.WithLabelValues(s.String()).Inc()
			c.setState(s)
		}
	case events.ForceChanged:
		closed, _ := e.Data.(bool)
		if closed {
			c.forceClosed.Set(1)
			return
		}
		c.forceClosed.Set(0)
		c.setState(eye.Open)
	}
}

func (c *Collector) setState(current eye.State) {
	for _, s := range eye.States() {
		v := 0.0
		if s == current {
			v = 1
		}
		c.state.WithLabelValues(s.String()).Set(v)
	}
}
