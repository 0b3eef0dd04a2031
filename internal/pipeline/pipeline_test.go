package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexrom/spray/internal/httpmsg"
)

func TestFramingStageSplitsPipelinedRequests(t *testing.T) {
	fs := NewFramingStage(httpmsg.KindRequest, httpmsg.DefaultSettings(), nil)
	events := fs.Feed([]byte(
		"GET /a HTTP/1.1\r\nHost: h\r\n\r\n" +
			"GET /b HTTP/1.1\r\nHost: h\r\n\r\n"))

	var starts []*httpmsg.RequestStart
	for _, ev := range events {
		if ms, ok := ev.(MessageStart); ok {
			starts = append(starts, ms.Part.(*httpmsg.RequestStart))
		}
	}
	require.Len(t, starts, 2)
	require.Equal(t, "/a", starts[0].RequestTarget)
	require.Equal(t, "/b", starts[1].RequestTarget)
}

func TestFramingStageEmitsParseFailed(t *testing.T) {
	fs := NewFramingStage(httpmsg.KindResponse, httpmsg.DefaultSettings(), nil)
	events := fs.Feed([]byte("HTTP/1.9 200 OK\r\n"))
	require.Len(t, events, 1)
	pf, ok := events[0].(ParseFailed)
	require.True(t, ok)
	require.Equal(t, 505, pf.Err.Status)
}

func TestRequestTimeoutStageDisabledByZeroTimeout(t *testing.T) {
	rt := NewRequestTimeoutStage(0)
	rt.OnEvent(MessageStart{})
	evs, _ := rt.Tick()
	require.Empty(t, evs, "zero timeout disables the stage")
}
