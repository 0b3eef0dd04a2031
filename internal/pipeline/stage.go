// Package pipeline implements the per-connection command/event stages
// that sit between the raw socket and the parser: framing (drives the
// httpmsg parser), request timeouts, and statistics accounting. Stages
// compose sequentially; construction order fixes traversal order.
package pipeline

import "github.com/alexrom/spray/internal/httpmsg"

// Event flows upward from the socket toward the application: a parsed
// message part, a request timeout, or a connection close.
type Event interface {
	isEvent()
}

// MessageStart wraps whichever of httpmsg.RequestStart / ResponseStart
// the framing stage just produced.
type MessageStart struct {
	Part httpmsg.Part
}

// BodyPart wraps a Chunk, ChunkedEnd or Complete emitted mid-message.
type BodyPart struct {
	Part httpmsg.Part
}

// ParseFailed carries a terminal parser error upward.
type ParseFailed struct {
	Err *httpmsg.ParseError
}

// RequestTimeoutEvent is raised by the request-timeout stage when a
// request has been open longer than the configured timeout without a
// response.
type RequestTimeoutEvent struct{}

// Closed is raised by the connection driver when the socket goes away.
type Closed struct {
	Reason CloseReason
}

func (MessageStart) isEvent()        {}
func (BodyPart) isEvent()            {}
func (ParseFailed) isEvent()         {}
func (RequestTimeoutEvent) isEvent() {}
func (Closed) isEvent()              {}

// CloseReason explains why a connection went away.
type CloseReason uint8

const (
	ReasonIdleTimeout CloseReason = iota
	ReasonRequestTimeout
	ReasonPeerClosed
	ReasonConfirmedClose
	ReasonIoError
)

func (r CloseReason) String() string {
	switch r {
	case ReasonIdleTimeout:
		return "idle-timeout"
	case ReasonRequestTimeout:
		return "request-timeout"
	case ReasonPeerClosed:
		return "peer-closed"
	case ReasonConfirmedClose:
		return "confirmed-close"
	case ReasonIoError:
		return "io-error"
	default:
		return "unknown"
	}
}

// Command flows downward from the application toward the socket.
type Command interface {
	isCommand()
}

// Bytes is an inbound read from the socket, handed to the framing stage.
type Bytes struct {
	Data []byte
}

// SendPart is an outbound response part to be rendered and written.
type SendPart struct {
	Part httpmsg.Part
}

// StopReading / ResumeReading implement read-side backpressure.
type StopReading struct{}
type ResumeReading struct{}

// Tell names a message to deliver out of band, used by the
// request-timeout stage to notify a configured receiver.
type Tell struct {
	Target  string
	Message interface{}
}

// Close requests the connection be torn down for the given reason.
type Close struct {
	Reason CloseReason
}

func (Bytes) isCommand()         {}
func (SendPart) isCommand()      {}
func (StopReading) isCommand()   {}
func (ResumeReading) isCommand() {}
func (Tell) isCommand()          {}
func (Close) isCommand()         {}

// Stage is a bidirectional transformer over the command and event
// streams of one connection. OnCommand sees commands flowing down before
// they reach the socket; OnEvent sees events flowing up before they
// reach the application. A stage returns the (possibly transformed or
// expanded) sequence that should continue propagating.
type Stage interface {
	OnCommand(cmd Command) []Command
	OnEvent(ev Event) []Event
}
