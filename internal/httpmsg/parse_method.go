package httpmsg

import (
	"github.com/intuitivelabs/bytescase"
)

// Method is the numeric form of a request method. Standard verbs get a
// dedicated constant so hot-path dispatch (body framing, statistics) can
// switch on an integer; anything else is MOther and the literal token is
// kept on RequestStart.MethodRaw.
type Method uint8

// Method constants, in the order the source grammar lists them.
const (
	MUndef Method = iota
	MGet
	MHead
	MPost
	MPut
	MDelete
	MConnect
	MOptions
	MTrace
	MPatch
	MOther // extension token, see the MethodRaw field that carries it
)

var methodName = [...][]byte{
	MUndef:   []byte(""),
	MGet:     []byte("GET"),
	MHead:    []byte("HEAD"),
	MPost:    []byte("POST"),
	MPut:     []byte("PUT"),
	MDelete:  []byte("DELETE"),
	MConnect: []byte("CONNECT"),
	MOptions: []byte("OPTIONS"),
	MTrace:   []byte("TRACE"),
	MPatch:   []byte("PATCH"),
	MOther:   []byte("OTHER"),
}

func (m Method) String() string {
	if int(m) >= len(methodName) {
		return "OTHER"
	}
	return string(methodName[m])
}

// bucket width for the 9 known verbs. A bucket may hold more than one
// verb (HEAD and POST share one); resolveMethod compares every entry.
const (
	mthBitsLen   uint = 2
	mthBitsFChar uint = 3
)

type mth2Type struct {
	n []byte
	t Method
}

var methodLookup [1 << (mthBitsLen + mthBitsFChar)][]mth2Type

func hashMethodName(n []byte) int {
	const (
		mC = (1 << mthBitsFChar) - 1
		mL = (1 << mthBitsLen) - 1
	)
	return (int(bytescase.ByteToLower(n[0])) & mC) |
		((len(n) & mL) << mthBitsFChar)
}

func init() {
	for i := MGet; i < MOther; i++ {
		h := hashMethodName(methodName[i])
		methodLookup[h] = append(methodLookup[h], mth2Type{methodName[i], i})
	}
}

// resolveMethod maps a method token to its numeric constant, returning
// MOther for any verb outside the fixed set (extension tokens are legal
// per the request-line grammar).
func resolveMethod(tok []byte) Method {
	if len(tok) == 0 {
		return MUndef
	}
	h := hashMethodName(tok)
	for _, m := range methodLookup[h] {
		if bytescase.CmpEq(tok, m.n) {
			return m.t
		}
	}
	return MOther
}
