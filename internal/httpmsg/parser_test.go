package httpmsg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, p *Parser, chunks ...string) ([]Part, error) {
	t.Helper()
	var all []Part
	for _, c := range chunks {
		parts, err := p.Feed([]byte(c))
		all = append(all, parts...)
		if err != nil {
			if _, ok := err.(*DoneError); ok {
				return all, nil
			}
			return all, err
		}
	}
	return all, nil
}

func TestSimpleGET(t *testing.T) {
	p := NewRequestParser(DefaultSettings())
	parts, err := feedAll(t, p, "GET / HTTP/1.1\r\nHost: a\r\n\r\n")
	require.NoError(t, err)
	require.Len(t, parts, 2)

	start := parts[0].(*RequestStart)
	require.Equal(t, MGet, start.Method)
	require.Equal(t, "/", start.RequestTarget)
	require.Equal(t, HTTP11, start.Protocol)
	require.Equal(t, []Header{{Name: "host", Value: "a"}}, start.Headers)
	require.Equal(t, FramingNone, start.Framing)

	require.Equal(t, []byte(nil), parts[1].(*Complete).Body)
}

func TestResponseWithoutFramingHTTP10ClosesBody(t *testing.T) {
	p := NewResponseParser(DefaultSettings())
	parts, err := feedAll(t, p, "HTTP/1.0 404 Not Found\r\nHost: api.example.com\r\n\r\nFoobs")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	start := parts[0].(*ResponseStart)
	require.Equal(t, 404, start.Status)
	require.Equal(t, "Not Found", start.Reason)
	require.Equal(t, FramingToClose, start.Framing)

	closed, err := p.Closed()
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, []byte("Foobs"), closed[0].(*Complete).Body)
}

func TestResponseRequiringLengthUnder11(t *testing.T) {
	p := NewResponseParser(DefaultSettings())
	_, err := feedAll(t, p, "HTTP/1.1 200 OK\r\n\r\n")
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	require.Equal(t, 411, pe.Status)
}

func TestChunkedResponseStart(t *testing.T) {
	p := NewResponseParser(DefaultSettings())
	parts, err := feedAll(t, p,
		"HTTP/1.1 200 OK\r\nUser-Agent: curl/7.19.7\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	start := parts[0].(*ResponseStart)
	require.Equal(t, FramingChunked, start.Framing)
	require.Equal(t, []Header{
		{Name: "user-agent", Value: "curl/7.19.7"},
		{Name: "transfer-encoding", Value: "chunked"},
	}, start.Headers)

	chunk := parts[1].(*Chunk)
	require.Equal(t, []byte("abc"), chunk.Data)
}

func TestMultiLineHeaderFolding(t *testing.T) {
	p := NewResponseParser(DefaultSettings())
	parts, err := feedAll(t, p,
		"HTTP/1.0 200 OK\r\nUser-Agent: curl/7.19.7\r\n abc\r\n    xyz\r\nAccept\r\n : */*  \r\n\r\n")
	require.NoError(t, err)
	start := parts[0].(*ResponseStart)
	require.Equal(t, []Header{
		{Name: "user-agent", Value: "curl/7.19.7 abc xyz"},
		{Name: "accept", Value: "*/*"},
	}, start.Headers)
}

func TestVersionRejection(t *testing.T) {
	p := NewResponseParser(DefaultSettings())
	_, err := feedAll(t, p, "HTTP/1.2 200 OK\r\n")
	require.Error(t, err)
	pe := err.(*ParseError)
	require.Equal(t, 505, pe.Status)
}

func TestInvalidContentLength(t *testing.T) {
	p := NewResponseParser(DefaultSettings())
	_, err := feedAll(t, p, "HTTP/1.1 200 OK\r\nContent-Length: 1.5\r\n\r\nabc")
	require.Error(t, err)
	pe := err.(*ParseError)
	require.Equal(t, 400, pe.Status)
}

func TestHeaderNameCharRejection(t *testing.T) {
	p := NewResponseParser(DefaultSettings())
	_, err := feedAll(t, p, "HTTP/1.1 200 OK\r\nUser@Agent: x\r\n")
	require.Error(t, err)
	pe := err.(*ParseError)
	require.Equal(t, 400, pe.Status)
}

func TestFragmentationInvariance(t *testing.T) {
	msg := "POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\n\r\nhello"
	whole := NewRequestParser(DefaultSettings())
	wholeParts, err := feedAll(t, whole, msg)
	require.NoError(t, err)

	frag := NewRequestParser(DefaultSettings())
	var fragParts []Part
	for i := 0; i < len(msg); i++ {
		parts, err := frag.Feed([]byte{msg[i]})
		fragParts = append(fragParts, parts...)
		if err != nil {
			_, ok := err.(*DoneError)
			require.True(t, ok)
			break
		}
	}
	require.Equal(t, wholeParts, fragParts)
}

func TestCaseInsensitiveHeaderNames(t *testing.T) {
	p := NewRequestParser(DefaultSettings())
	parts, err := feedAll(t, p, "GET / HTTP/1.1\r\nHOST: a\r\nX-Foo: 1\r\n\r\n")
	require.NoError(t, err)
	start := parts[0].(*RequestStart)
	require.Equal(t, "host", start.Headers[0].Name)
	require.Equal(t, "x-foo", start.Headers[1].Name)
}

func TestFramingPriorityChunkedOverContentLength(t *testing.T) {
	p := NewResponseParser(DefaultSettings())
	parts, err := feedAll(t, p,
		"HTTP/1.1 200 OK\r\nContent-Length: 100\r\nTransfer-Encoding: chunked\r\n\r\n0\r\n\r\n")
	require.NoError(t, err)
	start := parts[0].(*ResponseStart)
	require.Equal(t, FramingChunked, start.Framing)
}

func TestStatus204HasNoBodyRegardlessOfFraming(t *testing.T) {
	p := NewResponseParser(DefaultSettings())
	parts, err := feedAll(t, p, "HTTP/1.1 204 No Content\r\nContent-Length: 50\r\n\r\n")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.Equal(t, FramingNone, parts[0].(*ResponseStart).Framing)
	require.Equal(t, []byte(nil), parts[1].(*Complete).Body)
}

func TestEmptyHeaderValueIsNotAnError(t *testing.T) {
	p := NewRequestParser(DefaultSettings())
	parts, err := feedAll(t, p, "GET / HTTP/1.1\r\nHost: a\r\nAccept: \r\n\r\n")
	require.NoError(t, err)
	start := parts[0].(*RequestStart)
	require.Equal(t, "", start.Headers[1].Value)
}

func TestExactlyAtHeaderNameLimitSucceeds(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxHeaderNameLen = 4
	p := NewRequestParser(settings)
	parts, err := feedAll(t, p, "GET / HTTP/1.1\r\nHost: a\r\nabcd: 1\r\n\r\n")
	require.NoError(t, err)
	start := parts[0].(*RequestStart)
	require.Equal(t, "abcd", start.Headers[1].Name)
}

func TestOneByteOverHeaderNameLimitFails(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxHeaderNameLen = 4
	p := NewRequestParser(settings)
	_, err := feedAll(t, p, "GET / HTTP/1.1\r\nHost: a\r\nabcde: 1\r\n\r\n")
	require.Error(t, err)
}

func TestChunkZeroImmediatelyEndsWithEmptyTrailer(t *testing.T) {
	p := NewResponseParser(DefaultSettings())
	parts, err := feedAll(t, p,
		"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n0\r\n\r\n")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	end := parts[1].(*ChunkedEnd)
	require.Empty(t, end.Trailer)
}

func TestContentLengthZeroYieldsCompleteEmptyBody(t *testing.T) {
	p := NewRequestParser(DefaultSettings())
	parts, err := feedAll(t, p, "POST / HTTP/1.1\r\nHost: a\r\nContent-Length: 0\r\n\r\n")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.Equal(t, FramingNone, parts[0].(*RequestStart).Framing)
	require.Equal(t, []byte(nil), parts[1].(*Complete).Body)
}

func TestChunkedTrailerKeptOnlyWhenAnnounced(t *testing.T) {
	p := NewResponseParser(DefaultSettings())
	parts, err := feedAll(t, p,
		"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nTrailer: X-Checksum\r\n\r\n"+
			"3\r\nabc\r\n0\r\nX-Checksum: deadbeef\r\nX-Other: ignored\r\n\r\n")
	require.NoError(t, err)
	require.Len(t, parts, 3)
	end := parts[2].(*ChunkedEnd)
	require.Equal(t, []Header{{Name: "x-checksum", Value: "deadbeef"}}, end.Trailer)
}

func TestMissingHostOn11Request(t *testing.T) {
	p := NewRequestParser(DefaultSettings())
	_, err := feedAll(t, p, "GET / HTTP/1.1\r\n\r\n")
	require.Error(t, err)
	pe := err.(*ParseError)
	require.Equal(t, 400, pe.Status)
}

func TestFixedLengthBodyOverLimitIs413(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxContentLength = 4
	p := NewRequestParser(settings)
	_, err := feedAll(t, p, "POST / HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\n\r\nhello")
	require.Error(t, err)
	pe := err.(*ParseError)
	require.Equal(t, 413, pe.Status)
}
