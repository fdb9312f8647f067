package compiler

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxEdges bounds the size of one query graph.
const DefaultMaxEdges = 1000

// Metrics receives compile observations. Implemented by metrics.Collector.
type Metrics interface {
	ObserveCompile(root string, d time.Duration, err error)
	ObserveGuardHit(shape, field string)
	ObserveGraph(vertices, edges int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCompile(string, time.Duration, error) {}
func (noopMetrics) ObserveGuardHit(string, string)              {}
func (noopMetrics) ObserveGraph(int, int)                       {}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Compiler) { c.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Compiler) { c.metrics = m }
}

// WithGuardScope sets the cycle guard scope (default GuardCompile).
func WithGuardScope(s GuardScope) Option {
	return func(c *Compiler) { c.scope = s }
}

// WithIDGenerator sets the compile id generator (default UUIDv7Generator).
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Compiler) { c.ids = g }
}

// WithClock sets the time source used to measure compile duration.
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) { c.now = now }
}

// WithMaxEdges bounds the number of edges in one graph. Zero disables the limit.
func WithMaxEdges(n int) Option {
	return func(c *Compiler) { c.maxEdges = n }
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
