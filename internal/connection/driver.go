// Package connection drives one socket's worth of HTTP traffic through
// the pipeline stages in internal/pipeline. It owns the in-flight
// request queue needed to pair pipelined responses with the requests
// that triggered them, and the timers behind idle/request timeouts.
package connection

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/alexrom/spray/internal/httpmsg"
	"github.com/alexrom/spray/internal/pipeline"
	"github.com/alexrom/spray/internal/pipestats"
)

// Config bundles the knobs a Driver needs beyond the parser Settings.
type Config struct {
	Settings       httpmsg.Settings
	RequestTimeout time.Duration // 0 disables
	IdleTimeout    time.Duration // 0 disables
	ConfirmSends   bool
}

// Driver is the per-connection state the spec calls the connection
// driver: the current parser instance (owned by its framing stage), the
// in-flight request FIFO, timer bookkeeping, and the close reason. One
// Driver is processed by exactly one actor-like goroutine; nothing here
// is safe for concurrent use from multiple goroutines except where noted.
type Driver struct {
	cfg    Config
	logger *zap.Logger

	framing  *pipeline.FramingStage
	timeout  *pipeline.RequestTimeoutStage
	stats    *pipeline.StatisticsStage
	stages   []pipeline.Stage

	lastActivity time.Time

	readStopped bool
	awaitingAck bool // chunked-response streaming: waiting for SendCompleted

	closed     atomic.Bool
	closeReason pipeline.CloseReason

	emit func(pipeline.Event) // upward sink, e.g. to the socket adapter
	send func(pipeline.Command) // downward sink, e.g. to the socket adapter
}

// New builds a Driver for a server-side connection (parses requests,
// renders responses). counters is typically shared across every
// connection in the process.
func New(cfg Config, counters *pipestats.Counters, logger *zap.Logger, emit func(pipeline.Event), send func(pipeline.Command)) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	framing := pipeline.NewFramingStage(httpmsg.KindRequest, cfg.Settings, logger)
	timeoutStage := pipeline.NewRequestTimeoutStage(cfg.RequestTimeout)
	statsStage := pipeline.NewStatisticsStage(counters)

	return &Driver{
		cfg:          cfg,
		logger:       logger,
		framing:      framing,
		timeout:      timeoutStage,
		stats:        statsStage,
		stages:       []pipeline.Stage{timeoutStage, statsStage},
		lastActivity: time.Now(),
		emit:         emit,
		send:         send,
	}
}

// HandleRead feeds inbound socket bytes through the framing stage and
// the remaining stages, dispatching every resulting event upward.
func (d *Driver) HandleRead(data []byte) {
	if d.closed.Load() {
		return
	}
	d.lastActivity = time.Now()
	for _, ev := range d.framing.Feed(data) {
		d.propagateEvent(ev)
	}
}

func (d *Driver) propagateEvent(ev pipeline.Event) {
	events := []pipeline.Event{ev}
	for _, stage := range d.stages {
		var next []pipeline.Event
		for _, e := range events {
			next = append(next, stage.OnEvent(e)...)
		}
		events = next
	}
	for _, e := range events {
		if pf, ok := e.(pipeline.ParseFailed); ok {
			d.logger.Warn("parse failed, closing connection",
				zap.Int("status", pf.Err.Status), zap.String("message", pf.Err.Message))
			d.emit(e)
			d.Close(pipeline.ReasonIoError)
			return
		}
		d.emit(e)
	}
}

// HandleSend drives an outbound response part through the command side
// of the stages before handing it to send. Chunked response streaming
// must call SendAcked after each chunk write completes before sending
// the next one; HandleSend enforces that by refusing further chunk
// commands while awaitingAck is set.
func (d *Driver) HandleSend(part httpmsg.Part) {
	if d.closed.Load() {
		return
	}
	if _, isChunk := part.(*httpmsg.Chunk); isChunk {
		if d.awaitingAck {
			d.logger.DPanic("sent a chunk before the previous one was acknowledged")
			return
		}
		d.awaitingAck = true
	}

	d.dispatchCommands([]pipeline.Command{pipeline.SendPart{Part: part}})
}

// dispatchCommands runs cmds through every stage's OnCommand in order,
// then hands whatever survives to send. A Tell is consumed here rather
// than forwarded to the socket adapter: it exists purely to let one
// stage's Tick notify another stage (e.g. timeout notifying statistics).
func (d *Driver) dispatchCommands(cmds []pipeline.Command) {
	for _, stage := range d.stages {
		var next []pipeline.Command
		for _, c := range cmds {
			next = append(next, stage.OnCommand(c)...)
		}
		cmds = next
	}
	for _, c := range cmds {
		if t, ok := c.(pipeline.Tell); ok {
			d.logger.Debug("tell", zap.String("target", t.Target))
			continue
		}
		d.send(c)
	}
}

// SendAcked is the SendCompleted handshake: it releases the next queued
// chunk for transmission.
func (d *Driver) SendAcked() {
	d.awaitingAck = false
}

// Tick is driven by the connection's timer. It checks both idle and
// request timeouts and closes the connection if either fires.
func (d *Driver) Tick(now time.Time) {
	if d.closed.Load() {
		return
	}
	if d.cfg.IdleTimeout > 0 && now.Sub(d.lastActivity) >= d.cfg.IdleTimeout {
		d.Close(pipeline.ReasonIdleTimeout)
		return
	}
	events, cmds := d.timeout.Tick()
	for _, ev := range events {
		d.emit(ev)
	}
	d.dispatchCommands(cmds)
	if len(events) > 0 {
		d.Close(pipeline.ReasonRequestTimeout)
	}
}

// StopReading and ResumeReading translate into socket-level read
// backpressure; the driver only tracks the flag so repeated calls are
// idempotent from the application's point of view.
func (d *Driver) StopReading() {
	if d.readStopped {
		return
	}
	d.readStopped = true
	d.send(pipeline.StopReading{})
}

func (d *Driver) ResumeReading() {
	if !d.readStopped {
		return
	}
	d.readStopped = false
	d.send(pipeline.ResumeReading{})
}

// Close tears the connection down for the given reason. It is
// idempotent: a second call is a no-op. ConfirmedClose implies the
// caller already flushed pending writes; every other reason closes
// immediately.
func (d *Driver) Close(reason pipeline.CloseReason) {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	d.closeReason = reason
	closedEv := pipeline.Closed{Reason: reason}
	for _, ev := range d.framing.Closed() {
		d.propagateEvent(ev)
	}
	d.propagateEvent(closedEv)
	d.send(pipeline.Close{Reason: reason})
}

// CloseReason reports why the connection was closed; only meaningful
// once the connection has in fact closed.
func (d *Driver) CloseReason() pipeline.CloseReason {
	return d.closeReason
}
