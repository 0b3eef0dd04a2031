package httpmsg

// flState is the internal state of the first-line (request-line or
// status-line) scanner, shared by request and response parsers; only one
// branch of it is reachable depending on parser.kind.
type flState uint8

const (
	flMethod flState = iota
	flTarget
	flReqVerH
	flReqVerMaj
	flReqVerDot
	flReqVerMin
	flAfterCR
	flRplVerH
	flRplVerMaj
	flRplVerDot
	flRplVerMin
	flRplSP1
	flStatus
	flReason
)

// feedFirstLine consumes one octet of a request-line or status-line. It is
// called from the top-level Feed loop while p.state == stFirstLine.
func (p *Parser) feedFirstLine(c byte) error {
	switch p.state0 {
	// ---- shared: request-line ----
	case flMethod:
		if c == ' ' {
			if p.acc.Len() == 0 {
				return newParseError(400, "empty method")
			}
			p.method = resolveMethod(p.acc.Bytes())
			p.methodRaw = p.acc.String()
			p.acc.Reset()
			p.state0 = flTarget
			return nil
		}
		if !isTokenChar(c) {
			return newParseError(400, "invalid method token character %q", c)
		}
		return p.acc.writeByte(p.limits.MaxHeaderNameLen, c, "method")
	case flTarget:
		if c == ' ' {
			if p.acc.Len() == 0 {
				return newParseError(400, "missing request-target")
			}
			p.target = p.acc.String()
			p.acc.Reset()
			p.state0 = flReqVerH
			p.verLitPos = 0
			return nil
		}
		if c == '\r' || c == '\n' {
			return newParseError(400, "malformed request-line")
		}
		return p.acc.writeByte(p.limits.MaxURILen, c, "request-target")
	case flReqVerH:
		return p.matchVersionLiteral(c, flReqVerMaj)
	case flReqVerMaj:
		return p.matchVersionDigit(c, &p.verMajor, flReqVerDot, "HTTP version major")
	case flReqVerDot:
		if c != '.' {
			return newParseError(505, "HTTP Version not supported")
		}
		p.state0 = flReqVerMin
		return nil
	case flReqVerMin:
		if err := p.matchVersionDigit(c, &p.verMinor, 0, "HTTP version minor"); err != nil {
			return err
		}
		if err := p.validateVersion(); err != nil {
			return err
		}
		p.state0 = flAfterCR
		return nil
	case flAfterCR:
		if c == '\r' {
			// tolerate a repeated/bare CR, keep waiting for LF
			return nil
		}
		if c == '\n' {
			return p.finishFirstLine()
		}
		return newParseError(400, "malformed request-line")

	// ---- response: status-line ----
	case flRplVerH:
		return p.matchVersionLiteral(c, flRplVerMaj)
	case flRplVerMaj:
		return p.matchVersionDigit(c, &p.verMajor, flRplVerDot, "HTTP version major")
	case flRplVerDot:
		if c != '.' {
			return newParseError(505, "HTTP Version not supported")
		}
		p.state0 = flRplVerMin
		return nil
	case flRplVerMin:
		if err := p.matchVersionDigit(c, &p.verMinor, 0, "HTTP version minor"); err != nil {
			return err
		}
		if err := p.validateVersion(); err != nil {
			return err
		}
		p.state0 = flRplSP1
		return nil
	case flRplSP1:
		if c != ' ' {
			return newParseError(400, "expected SP after HTTP version")
		}
		p.state0 = flStatus
		p.acc.Reset()
		return nil
	case flStatus:
		if c >= '0' && c <= '9' {
			if p.acc.Len() >= 3 {
				return newParseError(400, "illegal response status code")
			}
			_ = p.acc.writeByte(3, c, "status")
			return nil
		}
		if c == ' ' || c == '\r' || c == '\n' {
			if p.acc.Len() != 3 {
				return newParseError(400, "illegal response status code")
			}
			b := p.acc.Bytes()
			if b[0] < '1' || b[0] > '5' {
				return newParseError(400, "illegal response status code")
			}
			status := int(b[0]-'0')*100 + int(b[1]-'0')*10 + int(b[2]-'0')
			if status < 100 || status > 599 {
				return newParseError(400, "illegal response status code")
			}
			p.status = status
			p.acc.Reset()
			if c == ' ' {
				p.state0 = flReason
				return nil
			}
			p.reason = ""
			if c == '\r' {
				p.state0 = flAfterCR
				return nil
			}
			return p.finishFirstLine()
		}
		return newParseError(400, "illegal response status code")
	case flReason:
		if c == '\r' {
			p.reason = p.acc.String()
			p.acc.Reset()
			p.state0 = flAfterCR
			return nil
		}
		if c == '\n' {
			p.reason = p.acc.String()
			p.acc.Reset()
			return p.finishFirstLine()
		}
		return p.acc.writeByte(p.limits.MaxReasonLen, c, "reason phrase")
	}
	return newParseError(500, "internal parser bug: bad first-line state")
}

var httpVersionLiteral = []byte("HTTP/")

// matchVersionLiteral matches the literal "HTTP/" one byte at a time,
// tracked by p.verLitPos, then transitions to majState.
func (p *Parser) matchVersionLiteral(c byte, majState flState) error {
	if c != httpVersionLiteral[p.verLitPos] {
		return newParseError(400, "expected HTTP/ version prefix")
	}
	p.verLitPos++
	if p.verLitPos == len(httpVersionLiteral) {
		p.state0 = majState
		p.verMajor, p.verMinor = 0, 0
	}
	return nil
}

// matchVersionDigit parses a single decimal digit into *digit. The
// versions this parser accepts (1.0, 1.1) only ever need one digit per
// component.
func (p *Parser) matchVersionDigit(c byte, digit *int, nextState flState, what string) error {
	if c < '0' || c > '9' {
		return newParseError(505, "HTTP Version not supported")
	}
	*digit = int(c - '0')
	if nextState != 0 {
		p.state0 = nextState
	}
	return nil
}

func (p *Parser) validateVersion() error {
	if p.verMajor != 1 || (p.verMinor != 0 && p.verMinor != 1) {
		return newParseError(505, "HTTP Version not supported")
	}
	if p.verMinor == 0 {
		p.protocol = HTTP10
	} else {
		p.protocol = HTTP11
	}
	return nil
}

// finishFirstLine transitions into the header section once the first
// line has been fully parsed.
func (p *Parser) finishFirstLine() error {
	p.state = stHeaders
	p.hstate = hName
	return nil
}
