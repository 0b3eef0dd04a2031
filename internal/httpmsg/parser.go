package httpmsg

// Kind selects whether a Parser reads request-lines or status-lines;
// everything else (headers, body framing) is shared.
type Kind uint8

const (
	KindRequest Kind = iota
	KindResponse
)

// pstate is the top-level parser state.
type pstate uint8

const (
	stFirstLine pstate = iota
	stHeaders
	stBodyFixed
	stBodyToClose
	stBodyChunked        // parsing a chunk-size/extensions line
	stBodyChunkedData    // accumulating chunk payload bytes
	stBodyChunkedCRLF    // consuming the CRLF that follows chunk data
	stBodyChunkedTrailer // parsing trailer headers after the last chunk
	stDone
	stError
)

// Part is implemented by every value a Parser can emit: *RequestStart,
// *ResponseStart, *Chunk, *ChunkedEnd and *Complete.
type Part interface {
	isPart()
}

func (*RequestStart) isPart()  {}
func (*ResponseStart) isPart() {}
func (*Chunk) isPart()         {}
func (*ChunkedEnd) isPart()    {}
func (*Complete) isPart()      {}

// Parser is a single HTTP/1.x message parser. It is created fresh for
// every message on a connection (see the framing stage in
// internal/pipeline) and consumes octets through Feed until it reaches a
// terminal state: a fully parsed message (Complete or a chunked body
// through ChunkedEnd) or a *ParseError. A Parser must not be reused
// across messages; it does not reset itself since the framing stage that
// owns it is the one that knows when a new message begins.
type Parser struct {
	kind   Kind
	limits Settings

	state  pstate
	state0 flState // first-line sub-state
	hstate hState  // header sub-state

	acc accumulator

	// first line
	method    Method
	methodRaw string
	target    string
	protocol  Protocol
	status    int
	reason    string
	verMajor  int
	verMinor  int
	verLitPos int

	// headers
	headers      []Header
	nameAcc      accumulator
	valueAcc     accumulator
	pendingHdr   bool
	hostCount    int
	clCount      int
	hasCL        bool
	contentLen   int64
	hasTE        bool
	teLastCoding string
	connClose    bool
	connSeen     bool
	trailerNames map[string]bool

	framing       Framing
	bodyBuf       []byte
	bodyRemaining int64

	chunk         chunkState
	trailerMode   bool
	trailerNow    []Header
	finalChunkExt []ChunkExtension

	err error
}

// NewRequestParser creates a parser for a request message (client->server
// direction).
func NewRequestParser(s Settings) *Parser {
	return &Parser{kind: KindRequest, limits: s, state: stFirstLine, state0: flMethod, hstate: hName}
}

// NewResponseParser creates a parser for a response message
// (server->client direction).
func NewResponseParser(s Settings) *Parser {
	return &Parser{kind: KindResponse, limits: s, state: stFirstLine, state0: flRplVerH, hstate: hName}
}

// Done reports whether the parser has reached a terminal state (either a
// fully parsed message or an error) and should be discarded.
func (p *Parser) Done() bool {
	return p.state == stDone || p.state == stError
}

// Feed advances the parser with additional input bytes, returning every
// Part produced while consuming them. Once Feed returns a non-nil error
// the parser is terminal: discard it and install a new one for the next
// message.
func (p *Parser) Feed(data []byte) ([]Part, error) {
	if p.err != nil {
		return nil, p.err
	}
	var parts []Part
	for i := 0; i < len(data); i++ {
		c := data[i]
		np, err := p.feedByte(c)
		if len(np) > 0 {
			parts = append(parts, np...)
		}
		if err != nil {
			p.err = err
			p.state = stError
			return parts, err
		}
		if p.state == stDone {
			// remaining bytes, if any, belong to the next message; the
			// caller (framing stage) is responsible for re-feeding them
			// into a freshly created parser.
			return parts, errMessageDone(i + 1)
		}
	}
	return parts, nil
}

// DoneError is returned by Feed once a message reaches a terminal,
// non-error state partway through the supplied bytes. Consumed tells the
// caller how many of the fed bytes belonged to this message; any
// remainder belongs to the next one and must be fed to a freshly
// constructed Parser.
type DoneError struct {
	Consumed int
}

func (e *DoneError) Error() string { return "httpmsg: message complete" }

func errMessageDone(consumed int) error {
	return &DoneError{Consumed: consumed}
}

func (p *Parser) feedByte(c byte) ([]Part, error) {
	switch p.state {
	case stFirstLine:
		if err := p.feedFirstLine(c); err != nil {
			return nil, err
		}
		return nil, nil
	case stHeaders:
		return p.feedHeaderByte(c)
	case stBodyFixed, stBodyToClose:
		return p.feedFixedOrCloseBody(c)
	case stBodyChunked, stBodyChunkedData, stBodyChunkedCRLF, stBodyChunkedTrailer:
		return p.feedChunkedBody(c)
	default:
		return nil, newParseError(500, "internal parser bug: feed after terminal state")
	}
}

// Closed notifies a to-close-framed parser that the connection was
// closed, which is the only way its body ever terminates. It returns the
// final Complete part (with whatever body bytes were accumulated).
func (p *Parser) Closed() ([]Part, error) {
	if p.state != stBodyToClose {
		return nil, nil
	}
	p.state = stDone
	return []Part{&Complete{Body: p.bodyBuf}}, nil
}
