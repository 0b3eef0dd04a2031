// Package server wires a net.Listener to the connection driver: it is
// the socket event loop the core's spec treats as an external
// collaborator, built here just enough to exercise the whole pipeline
// end to end. It is not a conformant HTTP response renderer; the status
// line / header bytes it writes back are a placeholder for whatever
// application sits above the core.
package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/alexrom/spray/internal/connection"
	"github.com/alexrom/spray/internal/httpmsg"
	"github.com/alexrom/spray/internal/pipeline"
	"github.com/alexrom/spray/internal/pipestats"
)

// Config holds the knobs a Server needs on top of a connection.Config.
type Config struct {
	ListenAddr     string
	MaxConnections int64 // 0 = unlimited
	ReadBufferSize int
	TickInterval   time.Duration // how often Driver.Tick runs per connection
	Connection     connection.Config
}

// DefaultConfig matches the defaults in the configuration table: no
// request timeout, no idle timeout, unbounded connections.
func DefaultConfig(addr string) Config {
	return Config{
		ListenAddr:     addr,
		MaxConnections: 0,
		ReadBufferSize: 4096,
		TickInterval:   250 * time.Millisecond,
		Connection: connection.Config{
			Settings: httpmsg.DefaultSettings(),
		},
	}
}

// Server accepts connections and drives one connection.Driver per
// socket. Every connection shares a single Counters instance, matching
// the spec's requirement that only statistics cross connection
// boundaries.
type Server struct {
	cfg      Config
	logger   *zap.Logger
	counters *pipestats.Counters
	sem      *semaphore.Weighted

	ln net.Listener
}

// New constructs a Server; logger may be nil (defaults to a no-op
// logger) and counters may be nil (a fresh Counters is created).
func New(cfg Config, counters *pipestats.Counters, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if counters == nil {
		counters = pipestats.New()
	}
	var sem *semaphore.Weighted
	if cfg.MaxConnections > 0 {
		sem = semaphore.NewWeighted(cfg.MaxConnections)
	}
	return &Server{cfg: cfg, logger: logger, counters: counters, sem: sem}
}

// Counters exposes the shared counter set, e.g. for wiring a
// PrometheusPublisher or a /stats endpoint.
func (s *Server) Counters() *pipestats.Counters {
	return s.counters
}

// ListenAndServe blocks accepting connections until ctx is cancelled or
// the listener fails. Each accepted connection is handled on its own
// goroutine, optionally bounded by cfg.MaxConnections.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		if s.sem != nil {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				conn.Close()
				continue
			}
		}
		go func() {
			if s.sem != nil {
				defer s.sem.Release(1)
			}
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn runs entirely on the goroutine it is called from: reads,
// ticks, and writes are all serialized here, matching the Driver's
// single-actor-per-connection contract. There is no second goroutine
// touching this connection's Driver.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	logger := s.logger.With(zap.String("conn", id), zap.String("peer", conn.RemoteAddr().String()))
	defer conn.Close()

	w := bufio.NewWriter(conn)
	var readingStopped bool
	done := false

	var d *connection.Driver
	d = connection.New(s.cfg.Connection, s.counters, logger,
		func(ev pipeline.Event) {
			if _, ok := ev.(pipeline.MessageStart); ok {
				writePlaceholderResponse(w)
				d.HandleSend(&httpmsg.ResponseStart{Protocol: httpmsg.HTTP11, Status: 200, Reason: "OK", Framing: httpmsg.FramingNone})
			}
		},
		func(cmd pipeline.Command) {
			switch cmd.(type) {
			case pipeline.StopReading:
				readingStopped = true
			case pipeline.ResumeReading:
				readingStopped = false
			case pipeline.Close:
				done = true
			}
		})

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if cap(buf.B) < s.cfg.ReadBufferSize {
		buf.B = make([]byte, s.cfg.ReadBufferSize)
	} else {
		buf.B = buf.B[:s.cfg.ReadBufferSize]
	}

	for !done {
		if ctx.Err() != nil {
			d.Close(pipeline.ReasonIoError)
			return
		}
		if readingStopped {
			d.Tick(time.Now())
			time.Sleep(time.Millisecond)
			continue
		}
		conn.SetReadDeadline(time.Now().Add(s.cfg.TickInterval))
		n, err := conn.Read(buf.B)
		if n > 0 {
			d.HandleRead(buf.B[:n])
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				d.Tick(time.Now())
				continue
			}
			if err == io.EOF {
				d.Close(pipeline.ReasonPeerClosed)
			} else {
				d.Close(pipeline.ReasonIoError)
			}
			return
		}
	}
}

// writePlaceholderResponse stands in for the external renderer: enough
// bytes to let a client observe a reply, nothing more.
func writePlaceholderResponse(w *bufio.Writer) {
	w.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 0\r\nConnection: keep-alive\r\n\r\n")
	w.Flush()
}
