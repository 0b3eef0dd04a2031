package httpmsg

import (
	"github.com/intuitivelabs/bytescase"
)

// hdrType classifies a handful of headers the framing decision (and the
// invariant checks around it) must inspect without re-scanning the whole
// header list by name each time. Every other header collapses into
// hdrOther but is still preserved verbatim in wire order on the message.
type hdrType uint8

const (
	hdrOther hdrType = iota
	hdrContentLength
	hdrTransferEncoding
	hdrConnection
	hdrHost
	hdrTrailer
)

type hdrName2Type struct {
	n []byte
	t hdrType
}

var knownHeaders = []hdrName2Type{
	{[]byte("content-length"), hdrContentLength},
	{[]byte("transfer-encoding"), hdrTransferEncoding},
	{[]byte("connection"), hdrConnection},
	{[]byte("host"), hdrHost},
	{[]byte("trailer"), hdrTrailer},
}

const (
	hnBitsLen   uint = 2
	hnBitsFChar uint = 5
)

var hdrNameLookup [1 << (hnBitsLen + hnBitsFChar)][]hdrName2Type

func hashHdrName(n []byte) int {
	const (
		mC = (1 << hnBitsFChar) - 1
		mL = (1 << hnBitsLen) - 1
	)
	return (int(bytescase.ByteToLower(n[0])) & mC) |
		((len(n) & mL) << hnBitsFChar)
}

func init() {
	for _, h := range knownHeaders {
		i := hashHdrName(h.n)
		hdrNameLookup[i] = append(hdrNameLookup[i], h)
	}
}

// classifyHeader returns the hdrType for a lowercased header name.
func classifyHeader(name []byte) hdrType {
	if len(name) == 0 {
		return hdrOther
	}
	i := hashHdrName(name)
	for _, h := range hdrNameLookup[i] {
		if bytescase.CmpEq(name, h.n) {
			return h.t
		}
	}
	return hdrOther
}
