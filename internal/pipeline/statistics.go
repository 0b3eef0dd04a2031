package pipeline

import (
	"github.com/alexrom/spray/internal/httpmsg"
	"github.com/alexrom/spray/internal/pipestats"
)

// StatisticsStage observes the event and command streams and updates the
// shared, process-wide Counters. It is the only stage whose state
// crosses connection boundaries.
type StatisticsStage struct {
	counters *pipestats.Counters
}

// NewStatisticsStage wires a stage to a shared Counters instance. One
// Counters is typically shared by every connection's pipeline in a
// process; construct it once and pass it to every StatisticsStage.
func NewStatisticsStage(counters *pipestats.Counters) *StatisticsStage {
	s := &StatisticsStage{counters: counters}
	s.counters.OnConnectionOpened()
	return s
}

func (s *StatisticsStage) OnEvent(ev Event) []Event {
	switch e := ev.(type) {
	case MessageStart:
		s.counters.OnRequestStart()
	case Closed:
		s.counters.OnConnectionClosed(e.Reason == ReasonIdleTimeout)
	}
	return []Event{ev}
}

func (s *StatisticsStage) OnCommand(cmd Command) []Command {
	switch c := cmd.(type) {
	case SendPart:
		switch c.Part.(type) {
		case *httpmsg.RequestStart, *httpmsg.ResponseStart:
			s.counters.OnResponseStart()
		}
	case Tell:
		if _, ok := c.Message.(RequestTimeoutEvent); ok {
			s.counters.OnRequestTimeout()
		}
	}
	return []Command{cmd}
}
