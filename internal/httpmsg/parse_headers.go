package httpmsg

import (
	"strconv"
)

// hState is the header-section sub-state. hName also plays the role of
// "examine the first byte of a new line" right after a header value's
// LF: a pending header is only finalized once hName sees something other
// than leading LWS, which is what makes fold continuations possible
// without a dedicated lookahead state.
type hState uint8

const (
	hName hState = iota
	hValue
	hFold
)

// feedHeaderByte dispatches one octet while p.state == stHeaders.
func (p *Parser) feedHeaderByte(c byte) ([]Part, error) {
	switch p.hstate {
	case hName:
		return p.feedHeaderName(c)
	case hValue:
		return nil, p.feedHeaderValueByte(c)
	case hFold:
		if c == ' ' || c == '\t' {
			return nil, nil
		}
		p.hstate = hValue
		return nil, p.feedHeaderValueByte(c)
	}
	return nil, newParseError(500, "internal parser bug: bad header state")
}

func (p *Parser) feedHeaderName(c byte) ([]Part, error) {
	empty := p.nameAcc.Len() == 0

	if c == '\r' {
		// tolerated anywhere in this state: a bare/repeated CR waiting
		// for LF, or a name interrupted by CRLF before its colon (a
		// continuation line may still carry the colon, see below).
		return nil, nil
	}

	if c == '\n' {
		if !empty {
			// the colon has not appeared yet; wait for it on a
			// subsequent line.
			return nil, nil
		}
		if err := p.commitPendingHeader(); err != nil {
			return nil, err
		}
		if p.trailerMode {
			return p.finishTrailers()
		}
		return p.finishHeaders()
	}

	if c == ' ' || c == '\t' {
		if !empty {
			// leading whitespace before a colon that arrives later.
			return nil, nil
		}
		if !p.pendingHdr {
			return nil, newParseError(400, "unexpected whitespace before any header")
		}
		if err := p.valueAcc.writeByte(p.limits.MaxHeaderValueLen, ' ', "header value"); err != nil {
			return nil, err
		}
		p.hstate = hFold
		return nil, nil
	}

	if c == ':' {
		if empty {
			return nil, newParseError(400, "invalid character ':', expected TOKEN CHAR, LWS or COLON")
		}
		if err := p.commitPendingHeader(); err != nil {
			return nil, err
		}
		p.valueAcc.Reset()
		p.hstate = hValue
		return nil, nil
	}

	if !isTokenChar(c) {
		return nil, newParseError(400, "invalid character %q, expected TOKEN CHAR, LWS or COLON", c)
	}

	if empty {
		// starting a new header name finalizes whatever was pending.
		if err := p.commitPendingHeader(); err != nil {
			return nil, err
		}
	}
	if err := p.nameAcc.writeByte(p.limits.MaxHeaderNameLen, lowerByte(c), "header name"); err != nil {
		return nil, &ParseError{Status: 400, Message: "header name " + truncated(p.nameAcc.Bytes(), 50) + " exceeds the configured limit"}
	}
	return nil, nil
}

func (p *Parser) feedHeaderValueByte(c byte) error {
	if c == '\r' {
		return nil
	}
	if c == '\n' {
		p.pendingHdr = true
		p.hstate = hName
		return nil
	}
	if isCTL(c) && c != '\t' {
		return newParseError(400, "control character in header value")
	}
	if err := p.valueAcc.writeByte(p.limits.MaxHeaderValueLen, c, "header value"); err != nil {
		return newParseError(400, "HTTP header value exceeds the configured limit of %d characters (header %q)",
			p.limits.MaxHeaderValueLen, p.nameAcc.String())
	}
	return nil
}

// commitPendingHeader finalizes the header currently held in
// nameAcc/valueAcc, if any, appending it to p.headers and updating the
// bookkeeping consulted by the framing decision.
func (p *Parser) commitPendingHeader() error {
	if !p.pendingHdr {
		return nil
	}
	p.pendingHdr = false

	name := p.nameAcc.String()
	value := string(trimOWS(p.valueAcc.Bytes()))
	p.nameAcc.Reset()
	p.valueAcc.Reset()

	if p.trailerMode {
		// Only trailer fields announced in advance by a Trailer header
		// are surfaced; anything else is parsed (so framing stays
		// correct) and discarded, per RFC 7230 section 4.1.2.
		if p.trailerNames[name] {
			p.trailerNow = append(p.trailerNow, Header{Name: name, Value: value})
		}
		return nil
	}

	if len(p.headers) >= p.limits.MaxHeaderCount {
		return newParseError(400, "header count exceeds the configured limit of %d", p.limits.MaxHeaderCount)
	}
	p.headers = append(p.headers, Header{Name: name, Value: value})

	switch classifyHeader([]byte(name)) {
	case hdrHost:
		p.hostCount++
	case hdrContentLength:
		p.clCount++
		if p.clCount > 1 {
			return newParseError(400, "duplicate Content-Length header")
		}
		n, err := parseContentLength(value)
		if err != nil {
			return newParseError(400, "invalid Content-Length header value: %s", value)
		}
		p.hasCL = true
		p.contentLen = n
	case hdrTransferEncoding:
		p.hasTE = true
		p.teLastCoding = lastCoding(value)
	case hdrConnection:
		p.connSeen = true
		if containsToken(value, "close") {
			p.connClose = true
		}
	case hdrTrailer:
		for _, tok := range splitTokenList(value) {
			if p.trailerNames == nil {
				p.trailerNames = make(map[string]bool)
			}
			p.trailerNames[string(lowerASCII([]byte(tok)))] = true
		}
	}
	return nil
}

func parseContentLength(v string) (int64, error) {
	v = string(trimOWS([]byte(v)))
	if v == "" {
		return 0, errBadInt
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return 0, errBadInt
		}
	}
	return strconv.ParseInt(v, 10, 64)
}

// lastCoding returns the last comma-separated token of a
// Transfer-Encoding value, lowercased, which is the only one that
// matters for the chunked-vs-identity decision.
func lastCoding(v string) string {
	toks := splitTokenList(v)
	if len(toks) == 0 {
		return ""
	}
	return string(lowerASCII([]byte(toks[len(toks)-1])))
}

func splitTokenList(v string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			tok := string(trimOWS([]byte(v[start:i])))
			if tok != "" {
				out = append(out, tok)
			}
			start = i + 1
		}
	}
	return out
}

func containsToken(v, tok string) bool {
	for _, t := range splitTokenList(v) {
		if len(t) == len(tok) {
			match := true
			for i := 0; i < len(t); i++ {
				if lowerByte(t[i]) != lowerByte(tok[i]) {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

func lowerASCII(s []byte) []byte {
	out := make([]byte, len(s))
	for i, c := range s {
		out[i] = lowerByte(c)
	}
	return out
}

// finishHeaders applies the header-complete framing decision (priority
// order: 1xx/204/304, chunked, content-length, request-default,
// connection-close/HTTP-1.0, else 411) and emits the message start part.
func (p *Parser) finishHeaders() ([]Part, error) {
	if p.kind == KindRequest && p.protocol == HTTP11 && p.hostCount == 0 {
		return nil, newParseError(400, "HTTP/1.1 request missing Host header")
	}
	if p.hostCount > 1 {
		return nil, newParseError(400, "duplicate Host header")
	}

	switch {
	case p.kind == KindResponse && (p.status/100 == 1 || p.status == 204 || p.status == 304):
		p.framing = FramingNone
	case p.hasTE && p.teLastCoding != "identity" && p.teLastCoding != "":
		p.framing = FramingChunked
	case p.hasCL:
		if p.contentLen == 0 {
			p.framing = FramingNone
		} else {
			p.framing = FramingFixedLength
		}
	case p.kind == KindRequest:
		p.framing = FramingNone
	case p.connClose || (!p.connSeen && p.protocol == HTTP10):
		p.framing = FramingToClose
	default:
		return nil, newParseError(411, "Content-Length header or chunked transfer encoding required")
	}

	start := p.buildStartPart()

	switch p.framing {
	case FramingNone:
		p.state = stDone
		return []Part{start, &Complete{Body: nil}}, nil
	case FramingFixedLength:
		p.bodyRemaining = p.contentLen
		if p.bodyRemaining > p.limits.MaxContentLength {
			return []Part{start}, newParseError(413, "entity body of %d bytes exceeds the configured limit of %d", p.bodyRemaining, p.limits.MaxContentLength)
		}
		p.bodyBuf = make([]byte, 0, p.bodyRemaining)
		p.state = stBodyFixed
		return []Part{start}, nil
	case FramingChunked:
		p.state = stBodyChunked
		p.chunk = chunkState{}
		return []Part{start}, nil
	case FramingToClose:
		p.bodyBuf = nil
		p.state = stBodyToClose
		return []Part{start}, nil
	}
	return nil, newParseError(500, "internal parser bug: unresolved framing")
}

func (p *Parser) buildStartPart() Part {
	if p.kind == KindRequest {
		return &RequestStart{
			Method:        p.method,
			MethodRaw:     p.methodRaw,
			RequestTarget: p.target,
			Protocol:      p.protocol,
			Headers:       p.headers,
			Framing:       p.framing,
			ContentLength: p.contentLen,
		}
	}
	return &ResponseStart{
		Protocol:      p.protocol,
		Status:        p.status,
		Reason:        p.reason,
		Headers:       p.headers,
		Framing:       p.framing,
		ContentLength: p.contentLen,
	}
}
