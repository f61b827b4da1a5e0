// Package metrics records build and node outcomes as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zishang520/engine.io/v2/events"
	"go.uber.org/multierr"

	"github.com/specialistvlad/treeforge/internal/builder"
	"github.com/specialistvlad/treeforge/internal/builderror"
	"github.com/specialistvlad/treeforge/internal/nodewrapper"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeCanceled = "canceled"
)

// Emitter is the part of a builder the collector listens to.
type Emitter interface {
	On(evt events.EventName, listeners ...events.Listener) error
}

// Collector holds the metrics of one application instance. It uses its own
// registry so several instances can live in one process.
type Collector struct {
	registry *prometheus.Registry

	BuildsTotal       *prometheus.CounterVec
	BuildDuration     prometheus.Histogram
	BuildsInProgress  prometheus.Gauge
	NodeBuildsTotal   *prometheus.CounterVec
	NodeSelfDuration  *prometheus.HistogramVec
	NodeTotalDuration *prometheus.HistogramVec
}

// New creates a collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "treeforge_builds_total",
				Help: "Total number of builds, by outcome",
			},
			[]string{"outcome"},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "treeforge_build_duration_seconds",
				Help:    "Wall time of complete builds",
				Buckets: prometheus.DefBuckets,
			},
		),
		BuildsInProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "treeforge_builds_in_progress",
				Help: "Number of builds currently running",
			},
		),
		NodeBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "treeforge_node_builds_total",
				Help: "Total number of node builds, by node name and outcome",
			},
			[]string{"node", "outcome"},
		),
		NodeSelfDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "treeforge_node_self_seconds",
				Help:    "Time spent in a node's own build callback",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		NodeTotalDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "treeforge_node_total_seconds",
				Help:    "Time of a node including its distinct inputs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node"},
		),
	}
	c.registry.MustRegister(
		c.BuildsTotal,
		c.BuildDuration,
		c.BuildsInProgress,
		c.NodeBuildsTotal,
		c.NodeSelfDuration,
		c.NodeTotalDuration,
	)
	return c
}

// Registry returns the registry the metrics live in.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Observe subscribes the collector to the events of a builder.
func (c *Collector) Observe(e Emitter) error {
	return multierr.Combine(
		e.On(builder.EventBeginBuild, c.onBeginBuild),
		e.On(builder.EventEndBuild, c.onEndBuild),
		e.On(builder.EventEndNode, c.onEndNode),
	)
}

func (c *Collector) onBeginBuild(...any) {
	c.BuildsInProgress.Inc()
}

func (c *Collector) onEndBuild(args ...any) {
	c.BuildsInProgress.Dec()
	if len(args) == 0 {
		return
	}
	ev, ok := args[0].(*builder.BuildEvent)
	if !ok {
		return
	}
	c.BuildsTotal.WithLabelValues(outcome(ev.Err)).Inc()
	c.BuildDuration.Observe(ev.Duration.Seconds())
}

func (c *Collector) onEndNode(args ...any) {
	if len(args) == 0 {
		return
	}
	w, ok := args[0].(*nodewrapper.Wrapper)
	if !ok {
		return
	}
	var err error
	if len(args) > 1 {
		err, _ = args[1].(error)
	}

	name := w.Name()
	c.NodeBuildsTotal.WithLabelValues(name, outcome(err)).Inc()
	if err != nil {
		return
	}
	if st := w.BuildState(); st != nil {
		c.NodeSelfDuration.WithLabelValues(name).Observe(st.SelfTime / 1000)
		c.NodeTotalDuration.WithLabelValues(name).Observe(st.TotalTime / 1000)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case builderror.IsSilent(err):
		return OutcomeCanceled
	default:
		return OutcomeFailure
	}
}
