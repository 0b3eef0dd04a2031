package httpmsg

// feedFixedOrCloseBody accumulates body octets for FramingFixedLength
// and FramingToClose messages. Both deliver a single Complete once
// finished; the former knows its length in advance, the latter only
// learns it ends when the connection driver calls Closed.
func (p *Parser) feedFixedOrCloseBody(c byte) ([]Part, error) {
	if p.state == stBodyToClose {
		if int64(len(p.bodyBuf)) >= p.limits.MaxContentLength {
			return nil, newParseError(413, "entity body exceeds the configured limit of %d bytes", p.limits.MaxContentLength)
		}
		p.bodyBuf = append(p.bodyBuf, c)
		return nil, nil
	}

	p.bodyBuf = append(p.bodyBuf, c)
	p.bodyRemaining--
	if p.bodyRemaining > 0 {
		return nil, nil
	}
	p.state = stDone
	return []Part{&Complete{Body: p.bodyBuf}}, nil
}
