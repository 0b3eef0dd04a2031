package pipeline

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/alexrom/spray/internal/httpmsg"
)

// FramingStage owns the current httpmsg.Parser for one connection. On
// inbound byte buffers it feeds the parser until either the buffer is
// exhausted or a terminal parser state is reached, emitting the
// corresponding part(s) upward and installing a new parser for any
// leftover bytes (pipelining: several messages may arrive in one read).
type FramingStage struct {
	kind     httpmsg.Kind
	settings httpmsg.Settings
	logger   *zap.Logger

	parser *httpmsg.Parser
}

// NewFramingStage builds a framing stage for one connection. kind
// selects whether it parses requests or responses off the wire; logger
// may be nil, in which case logging is a no-op.
func NewFramingStage(kind httpmsg.Kind, settings httpmsg.Settings, logger *zap.Logger) *FramingStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FramingStage{
		kind:     kind,
		settings: settings,
		logger:   logger,
		parser:   newParser(kind, settings),
	}
}

func newParser(kind httpmsg.Kind, settings httpmsg.Settings) *httpmsg.Parser {
	if kind == httpmsg.KindRequest {
		return httpmsg.NewRequestParser(settings)
	}
	return httpmsg.NewResponseParser(settings)
}

func (s *FramingStage) OnCommand(cmd Command) []Command {
	b, ok := cmd.(Bytes)
	if !ok {
		return []Command{cmd}
	}
	// Bytes commands are consumed entirely by this stage; they never
	// propagate further down (there is nothing below the framing stage
	// on the inbound side).
	_ = s.feed(b.Data)
	return nil
}

// Feed drives the parser with inbound bytes and returns the events it
// produced. It is the entry point the connection driver calls directly
// on socket reads; OnCommand exists so FramingStage also satisfies Stage
// for composition with the other stages via a shared pipeline.
func (s *FramingStage) Feed(data []byte) []Event {
	return s.feed(data)
}

func (s *FramingStage) feed(data []byte) []Event {
	var events []Event
	for len(data) > 0 {
		parts, err := s.parser.Feed(data)
		events = append(events, partsToEvents(parts)...)

		if err == nil {
			return events
		}

		done, ok := err.(*httpmsg.DoneError)
		if !ok {
			pe := httpmsg.AsParseError(err)
			s.logger.Debug("parse failed", zap.Error(errors.WithStack(err)), zap.Int("status", pe.Status))
			events = append(events, ParseFailed{Err: pe})
			return events
		}

		data = data[done.Consumed:]
		s.parser = newParser(s.kind, s.settings)
	}
	return events
}

func partsToEvents(parts []httpmsg.Part) []Event {
	events := make([]Event, 0, len(parts))
	for _, part := range parts {
		switch part.(type) {
		case *httpmsg.RequestStart, *httpmsg.ResponseStart:
			events = append(events, MessageStart{Part: part})
		default:
			events = append(events, BodyPart{Part: part})
		}
	}
	return events
}

// Closed notifies a to-close-framed parser that the connection closed,
// flushing its final Complete event if one is pending.
func (s *FramingStage) Closed() []Event {
	parts, _ := s.parser.Closed()
	return partsToEvents(parts)
}

func (s *FramingStage) OnEvent(ev Event) []Event {
	return []Event{ev}
}
