package httpmsg

// Settings bounds every accumulator and body size the parser will admit.
// A Settings value is immutable once constructed and may be shared freely
// across parser instances and connections; nothing in the parser mutates
// it.
type Settings struct {
	MaxURILen         int // request-target length
	MaxReasonLen      int // response reason-phrase length
	MaxHeaderNameLen  int // single header name
	MaxHeaderValueLen int // single header value, post-folding
	MaxHeaderCount    int // headers per message
	MaxContentLength  int64
	MaxChunkExtLen    int // total chunk-extension text per chunk
	MaxChunkSize      int64
}

// DefaultSettings returns the limits listed in the configuration table,
// suitable for a server accepting requests from untrusted peers.
func DefaultSettings() Settings {
	return Settings{
		MaxURILen:         2048,
		MaxReasonLen:      64,
		MaxHeaderNameLen:  64,
		MaxHeaderValueLen: 8192,
		MaxHeaderCount:    64,
		MaxContentLength:  8 * 1024 * 1024,
		MaxChunkExtLen:    256,
		MaxChunkSize:      1024 * 1024,
	}
}
