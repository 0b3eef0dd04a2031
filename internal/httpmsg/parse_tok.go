package httpmsg

import (
	"github.com/intuitivelabs/bytescase"
)

// isTokenChar reports whether c is a valid HTTP token character: visible
// ASCII minus the RFC 2616 separators and minus SP/HT.
func isTokenChar(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']',
		'?', '=', '{', '}', ' ', '\t':
		return false
	}
	return c > 31 && c < 127
}

// isCTL reports whether c is a control character (0-31 or 127). HT is
// matched too; callers that allow it as whitespace exclude it themselves.
func isCTL(c byte) bool {
	return c < 32 || c == 127
}

// lowerByte folds 'A'..'Z' to 'a'..'z' and passes everything else through.
func lowerByte(c byte) byte {
	return bytescase.ByteToLower(c)
}

// trimOWS trims optional whitespace (SP/HT) from both ends of s.
func trimOWS(s []byte) []byte {
	start := 0
	for start < len(s) && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	end := len(s)
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
