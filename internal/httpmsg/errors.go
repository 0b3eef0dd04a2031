package httpmsg

import (
	"errors"
	"fmt"
)

// errBadInt marks a Content-Length value that is not a plain decimal
// non-negative integer; callers always rewrap it into a *ParseError.
var errBadInt = errors.New("httpmsg: not a decimal integer")

// ParseError is the terminal state a parser reaches when a message
// violates the grammar or one of the invariants in the header or framing
// sections of RFC 2616/7230. It carries both a human readable reason and
// the HTTP status a server should report to the peer for it.
type ParseError struct {
	Status  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func newParseError(status int, format string, args ...interface{}) *ParseError {
	return &ParseError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// AsParseError normalizes err into a *ParseError, defaulting to 400 Bad
// Request for any error that was not already a parser terminal state.
// Callers outside this package (the framing stage) use this instead of
// a type assertion so a future non-ParseError failure mode still maps
// to a sane status rather than panicking.
func AsParseError(err error) *ParseError {
	if err == nil {
		return nil
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	return newParseError(400, err.Error())
}
