// Package pipestats holds the process-wide, lock-free counter set the
// statistics pipeline stage updates and exposes, plus its Prometheus
// export.
package pipestats

import (
	"sync/atomic"
	"time"
)

// Counters is a lock-free counter set shared across every connection's
// pipeline. Every field is updated with atomic read-modify-write
// operations; there are no locks.
type Counters struct {
	startedAt time.Time

	requestStarts      atomic.Int64
	responseStarts     atomic.Int64
	connectionsOpened  atomic.Int64
	connectionsClosed  atomic.Int64
	requestTimeouts    atomic.Int64
	idleTimeouts       atomic.Int64
	maxOpenConnections atomic.Int64
	maxOpenRequests    atomic.Int64
}

// New returns a Counters set with its uptime clock started now.
func New() *Counters {
	return &Counters{startedAt: time.Now()}
}

// Snapshot is a consistent-enough read of the counter set at an instant;
// individual fields are read with relaxed ordering, per the eventual-max
// semantics of maxOpen*.
type Snapshot struct {
	Uptime             time.Duration
	TotalRequests      int64
	OpenRequests       int64
	MaxOpenRequests    int64
	TotalConnections   int64
	OpenConnections    int64
	MaxOpenConnections int64
	RequestTimeouts    int64
	IdleTimeouts       int64
}

func (c *Counters) Snapshot() Snapshot {
	requests := c.requestStarts.Load()
	responses := c.responseStarts.Load()
	opened := c.connectionsOpened.Load()
	closed := c.connectionsClosed.Load()
	return Snapshot{
		Uptime:             time.Since(c.startedAt),
		TotalRequests:      requests,
		OpenRequests:       requests - responses,
		MaxOpenRequests:    c.maxOpenRequests.Load(),
		TotalConnections:   opened,
		OpenConnections:    opened - closed,
		MaxOpenConnections: c.maxOpenConnections.Load(),
		RequestTimeouts:    c.requestTimeouts.Load(),
		IdleTimeouts:       c.idleTimeouts.Load(),
	}
}

// Clear resets every counter to zero and restarts the uptime clock. It
// is the only operation that ever decreases a counter.
func (c *Counters) Clear() {
	c.requestStarts.Store(0)
	c.responseStarts.Store(0)
	c.connectionsOpened.Store(0)
	c.connectionsClosed.Store(0)
	c.requestTimeouts.Store(0)
	c.idleTimeouts.Store(0)
	c.maxOpenConnections.Store(0)
	c.maxOpenRequests.Store(0)
	c.startedAt = time.Now()
}

// OnRequestStart records an inbound RequestStart/ResponseStart event
// seen by the framing stage.
func (c *Counters) OnRequestStart() {
	n := c.requestStarts.Add(1)
	responses := c.responseStarts.Load()
	adjustMax(&c.maxOpenRequests, n-responses)
}

// OnResponseStart records an outbound response-part command whose
// payload is a message start.
func (c *Counters) OnResponseStart() {
	c.responseStarts.Add(1)
}

// OnConnectionOpened records pipeline construction, once per connection.
func (c *Counters) OnConnectionOpened() {
	n := c.connectionsOpened.Add(1)
	closed := c.connectionsClosed.Load()
	adjustMax(&c.maxOpenConnections, n-closed)
}

// OnConnectionClosed records a Closed event, optionally due to an idle
// timeout.
func (c *Counters) OnConnectionClosed(idleTimeout bool) {
	c.connectionsClosed.Add(1)
	if idleTimeout {
		c.idleTimeouts.Add(1)
	}
}

// OnRequestTimeout records a Tell command carrying a RequestTimeout
// message.
func (c *Counters) OnRequestTimeout() {
	c.requestTimeouts.Add(1)
}

// adjustMax installs candidate into target if it is strictly greater,
// retrying on a lost compare-and-swap race. Because it reads target and
// the counters it derives candidate from as two separate atomic loads,
// there is a window in which the recorded maximum can be strictly less
// than a momentary peak; maxOpen* is eventually-max, not exact.
func adjustMax(target *atomic.Int64, candidate int64) {
	for {
		cur := target.Load()
		if candidate <= cur {
			return
		}
		if target.CompareAndSwap(cur, candidate) {
			return
		}
	}
}
