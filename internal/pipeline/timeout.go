package pipeline

import "time"

// RequestTimeoutStage tracks, per in-flight request, the wall-clock
// moment it began. If the clock passes start+timeout before a response
// is dispatched for it, it raises a RequestTimeoutEvent. Server-only: a
// client-side pipeline never builds one.
type RequestTimeoutStage struct {
	timeout time.Duration
	now     func() time.Time

	pending []time.Time // FIFO, oldest (front) dispatched first
}

// NewRequestTimeoutStage builds a stage with the given timeout. A zero
// timeout disables the stage entirely (Tick never raises an event).
func NewRequestTimeoutStage(timeout time.Duration) *RequestTimeoutStage {
	return &RequestTimeoutStage{timeout: timeout, now: time.Now}
}

// OnEvent only needs to recognize MessageStart: this stage is wired to a
// connection's inbound (request) framing stage, so every MessageStart it
// sees is a RequestStart by construction.
func (s *RequestTimeoutStage) OnEvent(ev Event) []Event {
	if _, ok := ev.(MessageStart); ok && s.timeout > 0 {
		s.pending = append(s.pending, s.now())
	}
	return []Event{ev}
}

func (s *RequestTimeoutStage) OnCommand(cmd Command) []Command {
	if _, ok := cmd.(SendPart); ok && len(s.pending) > 0 {
		s.pending = s.pending[1:]
	}
	return []Command{cmd}
}

// Tick is driven by the connection driver's timer; it returns a
// RequestTimeoutEvent (plus a Tell command the driver should also
// dispatch) for the oldest in-flight request if it has overstayed the
// configured timeout. It only ever reports one timeout per call: the
// driver is expected to call Tick on every timer wakeup.
func (s *RequestTimeoutStage) Tick() ([]Event, []Command) {
	if s.timeout <= 0 || len(s.pending) == 0 {
		return nil, nil
	}
	if s.now().Sub(s.pending[0]) < s.timeout {
		return nil, nil
	}
	s.pending = s.pending[1:]
	return []Event{RequestTimeoutEvent{}},
		[]Command{Tell{Target: "statistics", Message: RequestTimeoutEvent{}}}
}
