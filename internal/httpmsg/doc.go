// Package httpmsg implements an incremental HTTP/1.x message parser. A
// Parser is a tagged-union state machine: Feed consumes whatever bytes
// are available and returns immediately once they run out, leaving the
// partially-parsed message alive inside the Parser value for the next
// Feed call to resume. There is no buffering of the raw input across
// calls; only the pieces of the message the parser has committed to so
// far (the current header name, an in-progress chunk) are retained, and
// each of those is bounded by a Settings limit.
//
// A Parser reaches a terminal state exactly once: a fully parsed
// message (Complete, or ChunkedEnd for a chunked body) or a
// *ParseError. Discard it at that point; NewRequestParser /
// NewResponseParser build a fresh one for the next message on a
// connection.
package httpmsg
