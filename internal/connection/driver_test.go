package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexrom/spray/internal/httpmsg"
	"github.com/alexrom/spray/internal/pipeline"
	"github.com/alexrom/spray/internal/pipestats"
)

func newTestDriver(cfg Config) (*Driver, *[]pipeline.Event, *[]pipeline.Command) {
	var events []pipeline.Event
	var commands []pipeline.Command
	d := New(cfg, pipestats.New(), nil,
		func(ev pipeline.Event) { events = append(events, ev) },
		func(cmd pipeline.Command) { commands = append(commands, cmd) })
	return d, &events, &commands
}

func TestDriverEmitsMessageStartOnFullRequest(t *testing.T) {
	d, events, _ := newTestDriver(Config{Settings: httpmsg.DefaultSettings()})
	d.HandleRead([]byte("GET /x HTTP/1.1\r\nHost: h\r\n\r\n"))

	require.Len(t, *events, 2, "request start then the empty-body Complete")
	ms, ok := (*events)[0].(pipeline.MessageStart)
	require.True(t, ok)
	require.Equal(t, "/x", ms.Part.(*httpmsg.RequestStart).RequestTarget)
}

func TestDriverClosesOnParseFailure(t *testing.T) {
	d, events, commands := newTestDriver(Config{Settings: httpmsg.DefaultSettings()})
	d.HandleRead([]byte("BADMETHOD / HTTP/1.1\r\n\r\n"))

	var sawFailed, sawClose bool
	for _, ev := range *events {
		if _, ok := ev.(pipeline.ParseFailed); ok {
			sawFailed = true
		}
	}
	for _, c := range *commands {
		if cl, ok := c.(pipeline.Close); ok {
			sawClose = true
			require.Equal(t, pipeline.ReasonIoError, cl.Reason)
		}
	}
	require.True(t, sawFailed)
	require.True(t, sawClose)
}

func TestDriverCloseIsIdempotent(t *testing.T) {
	d, _, commands := newTestDriver(Config{Settings: httpmsg.DefaultSettings()})
	d.Close(pipeline.ReasonPeerClosed)
	d.Close(pipeline.ReasonIdleTimeout)

	var closes int
	for _, c := range *commands {
		if _, ok := c.(pipeline.Close); ok {
			closes++
		}
	}
	require.Equal(t, 1, closes)
	require.Equal(t, pipeline.ReasonPeerClosed, d.CloseReason())
}

func TestDriverIdleTimeoutTick(t *testing.T) {
	d, _, commands := newTestDriver(Config{Settings: httpmsg.DefaultSettings(), IdleTimeout: time.Millisecond})
	d.lastActivity = time.Now().Add(-time.Hour)
	d.Tick(time.Now())

	var sawClose bool
	for _, c := range *commands {
		if cl, ok := c.(pipeline.Close); ok {
			sawClose = true
			require.Equal(t, pipeline.ReasonIdleTimeout, cl.Reason)
		}
	}
	require.True(t, sawClose)
}

func TestDriverStopResumeReadingIdempotent(t *testing.T) {
	d, _, commands := newTestDriver(Config{Settings: httpmsg.DefaultSettings()})
	d.StopReading()
	d.StopReading()
	d.ResumeReading()
	d.ResumeReading()

	var stops, resumes int
	for _, c := range *commands {
		switch c.(type) {
		case pipeline.StopReading:
			stops++
		case pipeline.ResumeReading:
			resumes++
		}
	}
	require.Equal(t, 1, stops)
	require.Equal(t, 1, resumes)
}
