package httpmsg

// chunkLineState is the sub-state of the chunk-size/extensions line that
// precedes every chunk's data (and the zero-size line that precedes the
// trailer).
type chunkLineState uint8

const (
	csSize chunkLineState = iota
	csExtName
	csExtEq
	csExtValue
	csExtValueQuoted
	csExtValueQuotedEsc
	csAfterQuotedValue
	csCR
)

const maxChunkSizeHexDigits = 8

// chunkState holds everything needed to parse one chunk-size line plus
// the chunk data that follows it. It is reset at the start of every
// chunk.
type chunkState struct {
	line chunkLineState

	size       int64
	digitCount int

	extName    accumulator
	extValue   accumulator
	extensions []ChunkExtension
	extLen     int // total extension text consumed so far this line

	dataRemaining int64
	data          []byte
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

func (p *Parser) feedChunkedBody(c byte) ([]Part, error) {
	switch p.state {
	case stBodyChunked:
		return p.feedChunkLine(c)
	case stBodyChunkedData:
		return p.feedChunkData(c)
	case stBodyChunkedCRLF:
		return nil, p.feedChunkTrailingCRLF(c)
	case stBodyChunkedTrailer:
		return p.feedTrailerByte(c)
	}
	return nil, newParseError(500, "internal parser bug: bad chunk state")
}

func (p *Parser) chunkExtBudget(n int) error {
	if p.chunk.extLen+n > p.limits.MaxChunkExtLen {
		return newParseError(400, "chunk extensions exceed the configured limit of %d characters", p.limits.MaxChunkExtLen)
	}
	p.chunk.extLen += n
	return nil
}

func (p *Parser) finalizeExtension() {
	ck := &p.chunk
	if ck.extName.Len() == 0 {
		return
	}
	ck.extensions = append(ck.extensions, ChunkExtension{
		Name:  ck.extName.String(),
		Value: ck.extValue.String(),
	})
	ck.extName.Reset()
	ck.extValue.Reset()
}

func (p *Parser) feedChunkLine(c byte) ([]Part, error) {
	ck := &p.chunk
	switch ck.line {
	case csSize:
		if v, ok := hexVal(c); ok {
			ck.digitCount++
			if ck.digitCount > maxChunkSizeHexDigits {
				return nil, newParseError(400, "chunk size exceeds %d hex digits", maxChunkSizeHexDigits)
			}
			ck.size = ck.size*16 + int64(v)
			return nil, nil
		}
		if c == ';' {
			ck.line = csExtName
			return nil, nil
		}
		if c == '\r' {
			ck.line = csCR
			return nil, nil
		}
		if c == '\n' {
			return p.startChunk()
		}
		return nil, newParseError(400, "malformed chunk size")
	case csExtName:
		if c == '=' {
			ck.line = csExtEq
			return nil, nil
		}
		if c == ';' {
			p.finalizeExtension()
			return nil, nil
		}
		if c == '\r' {
			p.finalizeExtension()
			ck.line = csCR
			return nil, nil
		}
		if !isTokenChar(c) {
			return nil, newParseError(400, "invalid character in chunk extension name")
		}
		if err := p.chunkExtBudget(1); err != nil {
			return nil, err
		}
		_ = ck.extName.writeByte(p.limits.MaxChunkExtLen, c, "chunk extension")
		return nil, nil
	case csExtEq:
		if c == '"' {
			ck.line = csExtValueQuoted
			return nil, nil
		}
		ck.line = csExtValue
		return p.feedChunkLine(c)
	case csExtValue:
		if c == ';' {
			p.finalizeExtension()
			ck.line = csExtName
			return nil, nil
		}
		if c == '\r' {
			p.finalizeExtension()
			ck.line = csCR
			return nil, nil
		}
		if err := p.chunkExtBudget(1); err != nil {
			return nil, err
		}
		_ = ck.extValue.writeByte(p.limits.MaxChunkExtLen, c, "chunk extension")
		return nil, nil
	case csExtValueQuoted:
		if c == '\\' {
			ck.line = csExtValueQuotedEsc
			return nil, nil
		}
		if c == '"' {
			p.finalizeExtension()
			ck.line = csAfterQuotedValue
			return nil, nil
		}
		if err := p.chunkExtBudget(1); err != nil {
			return nil, err
		}
		_ = ck.extValue.writeByte(p.limits.MaxChunkExtLen, c, "chunk extension")
		return nil, nil
	case csExtValueQuotedEsc:
		if err := p.chunkExtBudget(1); err != nil {
			return nil, err
		}
		_ = ck.extValue.writeByte(p.limits.MaxChunkExtLen, c, "chunk extension")
		ck.line = csExtValueQuoted
		return nil, nil
	case csAfterQuotedValue:
		if c == ';' {
			ck.line = csExtName
			return nil, nil
		}
		if c == '\r' {
			ck.line = csCR
			return nil, nil
		}
		return nil, newParseError(400, "malformed chunk extension")
	case csCR:
		if c != '\n' {
			return nil, newParseError(400, "malformed chunk line, expected LF after CR")
		}
		return p.startChunk()
	}
	return nil, newParseError(500, "internal parser bug: bad chunk line state")
}

// startChunk is reached once a chunk-size line (plus any extensions)
// ends in CRLF. A size of zero begins the trailer instead of chunk data.
func (p *Parser) startChunk() ([]Part, error) {
	ck := &p.chunk
	if ck.size == 0 {
		p.finalChunkExt = ck.extensions
		p.trailerMode = true
		p.hstate = hName
		p.state = stBodyChunkedTrailer
		p.trailerNow = nil
		return nil, nil
	}
	if ck.size > p.limits.MaxChunkSize {
		return nil, newParseError(400, "chunk size %d exceeds the configured limit of %d", ck.size, p.limits.MaxChunkSize)
	}
	ck.dataRemaining = ck.size
	ck.data = make([]byte, 0, ck.size)
	p.state = stBodyChunkedData
	return nil, nil
}

func (p *Parser) feedChunkData(c byte) ([]Part, error) {
	ck := &p.chunk
	ck.data = append(ck.data, c)
	ck.dataRemaining--
	if ck.dataRemaining > 0 {
		return nil, nil
	}
	chunk := &Chunk{Data: ck.data, Extensions: ck.extensions}
	*ck = chunkState{}
	p.state = stBodyChunkedCRLF
	return []Part{chunk}, nil
}

func (p *Parser) feedChunkTrailingCRLF(c byte) error {
	switch c {
	case '\r':
		return nil
	case '\n':
		p.state = stBodyChunked
		return nil
	default:
		return newParseError(400, "malformed chunk data terminator, expected CRLF")
	}
}

// feedTrailerByte reuses the main header name/value/fold machinery
// (p.hstate, p.nameAcc, p.valueAcc) since main headers are already
// committed by the time the trailer section starts.
func (p *Parser) feedTrailerByte(c byte) ([]Part, error) {
	return p.feedHeaderByte(c)
}

// finishTrailers is invoked by the shared header machinery once the
// trailer section's terminating blank line is seen.
func (p *Parser) finishTrailers() ([]Part, error) {
	p.trailerMode = false
	p.state = stDone
	return []Part{&ChunkedEnd{Extensions: p.finalChunkExt, Trailer: p.trailerNow}}, nil
}
