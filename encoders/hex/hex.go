// Package hex is an append-style hexadecimal codec over the SIMD accelerated
// templexxx/xhex implementation.
package hex

import (
	"github.com/templexxx/xhex"

	"bramble.dev/utils/errorf"
)

// Enc encodes a byte slice to a lowercase hex string.
func Enc(b []byte) (s string) { return string(EncAppend(nil, b)) }

// EncAppend appends the hex encoding of src to dst.
func EncAppend(dst, src []byte) (b []byte) {
	l := len(dst)
	dst = append(dst, make([]byte, len(src)*2)...)
	xhex.Encode(dst[l:], src)
	return dst
}

// Dec decodes a hex string into a new byte slice.
func Dec(s string) (b []byte, err error) { return DecAppend(nil, []byte(s)) }

// DecAppend appends the decoded bytes of hex text src to dst.
func DecAppend(dst, src []byte) (b []byte, err error) {
	if len(src)%2 != 0 {
		err = errorf.D("odd length hex: %d", len(src))
		return
	}
	b = dst
	l := len(b)
	b = append(b, make([]byte, len(src)/2)...)
	if err = xhex.Decode(b[l:], src); err != nil {
		b = dst
		return
	}
	return
}
