// Package metrics provides atomic counter/gauge and latency-sampler
// primitives, and a default raknet.MetricsSink that counts the two events
// the handshake core emits using Counter.
package metrics

import "sync/atomic"

// Counter is an atomic monotonic counter.
type Counter struct {
	value atomic.Int64
}

func (c *Counter) Add(n int64) { c.value.Add(n) }
func (c *Counter) Load() int64 { return c.value.Load() }

// Gauge is an atomic up/down counter.
type Gauge struct {
	value atomic.Int64
}

func (g *Gauge) Inc()          { g.value.Add(1) }
func (g *Gauge) Dec()          { g.value.Add(-1) }
func (g *Gauge) Set(v int64)   { g.value.Store(v) }
func (g *Gauge) Load() int64   { return g.value.Load() }
