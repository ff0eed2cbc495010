// Package annotations provides a low-overhead event system for tracing what
// the graph engine does: transaction outcomes, index lifecycle, and the
// index-vs-scan choice made on every filtered adjacency read.
package annotations

import (
	"sync"
	"time"
)

// Event name constants following hierarchical naming pattern
const (
	// Transaction lifecycle
	TxCommitted  = "tx/committed"
	TxRolledBack = "tx/rolled-back"

	// Index lifecycle
	IndexCreated    = "index/created"
	IndexDropped    = "index/dropped"
	IndexBackfilled = "index/backfilled"

	// Adjacency reads
	NeighborsIndexed = "neighbors/index"
	NeighborsScanned = "neighbors/scan"

	// Full-kind queries
	QueryIndexed = "query/index"
	QueryScanned = "query/scan"

	// Traversal terminals
	TraversalComplete = "traversal/completed"
)

// Event is one timed engine occurrence
type Event struct {
	Name    string // one of the constants above
	Start   time.Time
	End     time.Time
	Latency time.Duration
	Data    map[string]interface{}
}

// Handler receives events as they happen
type Handler func(event Event)

// Collector forwards events to a handler and, for recorders, keeps them.
// A nil collector, or one with neither, drops everything.
type Collector struct {
	handler Handler

	mu     sync.Mutex
	retain bool
	events []Event
}

// NewCollector forwards to handler without retaining events
func NewCollector(handler Handler) *Collector {
	return &Collector{handler: handler}
}

// NewRecorder retains every event so tests can inspect them afterwards
func NewRecorder() *Collector {
	return &Collector{retain: true}
}

// Enabled reports whether Add does anything. Callers check it before
// building event payloads.
func (c *Collector) Enabled() bool {
	return c != nil && (c.handler != nil || c.retain)
}

// Add records event. Safe for concurrent use; the handler runs unlocked.
func (c *Collector) Add(event Event) {
	if !c.Enabled() {
		return
	}
	if c.retain {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
	}
	if c.handler != nil {
		c.handler(event)
	}
}

// AddTiming records an event spanning start to now
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.Enabled() {
		return
	}
	now := time.Now()
	c.Add(Event{Name: name, Start: start, End: now, Latency: now.Sub(start), Data: data})
}

// Events returns a copy of the retained events
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Named returns the retained events called name
func (c *Collector) Named(name string) []Event {
	var out []Event
	for _, e := range c.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops the retained events
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}
