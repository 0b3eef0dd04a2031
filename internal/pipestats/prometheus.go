package pipestats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestStartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spray",
		Subsystem: "pipeline",
		Name:      "request_starts_total",
		Help:      "Total number of inbound RequestStart/ResponseStart events observed.",
	})

	responseStartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spray",
		Subsystem: "pipeline",
		Name:      "response_starts_total",
		Help:      "Total number of outbound response-start commands dispatched.",
	})

	connectionsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spray",
		Subsystem: "pipeline",
		Name:      "connections_opened_total",
		Help:      "Total number of connection pipelines constructed.",
	})

	connectionsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spray",
		Subsystem: "pipeline",
		Name:      "connections_closed_total",
		Help:      "Total number of Closed events observed.",
	})

	requestTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spray",
		Subsystem: "pipeline",
		Name:      "request_timeouts_total",
		Help:      "Total number of request timeouts raised.",
	})

	idleTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spray",
		Subsystem: "pipeline",
		Name:      "idle_timeouts_total",
		Help:      "Total number of connections closed for idleness.",
	})

	openConnectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "spray",
		Subsystem: "pipeline",
		Name:      "open_connections",
		Help:      "Current number of open connections.",
	})

	openRequestsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "spray",
		Subsystem: "pipeline",
		Name:      "open_requests",
		Help:      "Current number of requests awaiting a response.",
	})

	maxOpenConnectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "spray",
		Subsystem: "pipeline",
		Name:      "max_open_connections",
		Help:      "Eventually-max observed number of simultaneously open connections.",
	})

	maxOpenRequestsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "spray",
		Subsystem: "pipeline",
		Name:      "max_open_requests",
		Help:      "Eventually-max observed number of simultaneously open requests.",
	})
)

// PrometheusPublisher pushes Snapshots into the package's Prometheus
// collectors. Counters are exported as deltas against the last published
// snapshot since a Counters.Clear() call can legitimately decrease the
// source values, which a Prometheus counter must never do.
type PrometheusPublisher struct {
	last Snapshot
}

func (p *PrometheusPublisher) Publish(s Snapshot) {
	responses := s.TotalRequests - s.OpenRequests
	closedConns := s.TotalConnections - s.OpenConnections
	lastResponses := p.last.TotalRequests - p.last.OpenRequests
	lastClosedConns := p.last.TotalConnections - p.last.OpenConnections

	addDelta(requestStartsTotal, p.last.TotalRequests, s.TotalRequests)
	addDelta(responseStartsTotal, lastResponses, responses)
	addDelta(connectionsOpenedTotal, p.last.TotalConnections, s.TotalConnections)
	addDelta(connectionsClosedTotal, lastClosedConns, closedConns)
	addDelta(requestTimeoutsTotal, p.last.RequestTimeouts, s.RequestTimeouts)
	addDelta(idleTimeoutsTotal, p.last.IdleTimeouts, s.IdleTimeouts)

	openRequestsGauge.Set(float64(s.OpenRequests))
	openConnectionsGauge.Set(float64(s.OpenConnections))
	maxOpenConnectionsGauge.Set(float64(s.MaxOpenConnections))
	maxOpenRequestsGauge.Set(float64(s.MaxOpenRequests))

	p.last = s
}

func addDelta(c prometheus.Counter, last, current int64) {
	if d := current - last; d > 0 {
		c.Add(float64(d))
	}
}
