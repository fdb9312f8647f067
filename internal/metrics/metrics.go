// Package metrics exposes compiler and HTTP activity as Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/graphgate/internal/ir"
)

// Collector holds the graphgate metrics. It satisfies compiler.Metrics.
type Collector struct {
	compileTotal    *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec
	guardHits       *prometheus.CounterVec
	graphVertices   prometheus.Histogram
	graphEdges      prometheus.Histogram
	requestTotal    *prometheus.CounterVec
}

// New creates the collector and registers its metrics with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		compileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphgate_compile_total",
				Help: "Total number of compilations by root shape and outcome",
			},
			[]string{"root", "outcome"},
		),
		compileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graphgate_compile_duration_seconds",
				Help:    "Time spent building query graphs",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"root"},
		),
		guardHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphgate_cycle_guard_hits_total",
				Help: "Expansions stopped by the cycle guard",
			},
			[]string{"shape", "field"},
		),
		graphVertices: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "graphgate_graph_vertices",
			Help:    "Vertices per compiled query graph",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		graphEdges: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "graphgate_graph_edges",
			Help:    "Edges per compiled query graph",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11),
		}),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphgate_http_requests_total",
				Help: "Compile requests served over HTTP by backend and status",
			},
			[]string{"backend", "status"},
		),
	}

	for _, m := range []prometheus.Collector{
		c.compileTotal, c.compileDuration, c.guardHits,
		c.graphVertices, c.graphEdges, c.requestTotal,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Outcome returns the label for a compile result: "ok", the lower-cased
// error kind, or "internal" for untyped errors.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch kind, _ := ir.KindOf(err); kind {
	case ir.KindSchema:
		return "schema_error"
	case ir.KindUnsupportedOperation:
		return "unsupported_operation"
	case ir.KindTypeMismatch:
		return "type_mismatch"
	case ir.KindConstraintViolation:
		return "constraint_violation"
	default:
		return "internal"
	}
}

// ObserveCompile records one compilation.
func (c *Collector) ObserveCompile(root string, d time.Duration, err error) {
	c.compileTotal.WithLabelValues(root, Outcome(err)).Inc()
	c.compileDuration.WithLabelValues(root).Observe(d.Seconds())
}

// ObserveGuardHit records an expansion stopped by the cycle guard.
func (c *Collector) ObserveGuardHit(shape, field string) {
	c.guardHits.WithLabelValues(shape, field).Inc()
}

// ObserveGraph records the size of a compiled graph.
func (c *Collector) ObserveGraph(vertices, edges int) {
	c.graphVertices.Observe(float64(vertices))
	c.graphEdges.Observe(float64(edges))
}

// ObserveRequest records one HTTP compile request.
func (c *Collector) ObserveRequest(backend string, status int) {
	c.requestTotal.WithLabelValues(backend, strconv.Itoa(status)).Inc()
}
