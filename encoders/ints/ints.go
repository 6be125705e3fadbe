// Package ints is an append-style ASCII base 10 codec for unsigned integers,
// used everywhere a number appears in the nostr wire format.
package ints

import (
	"bramble.dev/utils/errorf"
)

// T carries an unsigned integer through the codec.
type T struct {
	N uint64
}

// New creates an ints.T from any unsigned-representable integer.
func New[V uint64 | uint32 | uint16 | uint | int64 | int32 | int16 | int](n V) *T {
	return &T{N: uint64(n)}
}

// Uint16 returns the value truncated to 16 bits.
func (n *T) Uint16() uint16 { return uint16(n.N) }

// Uint64 returns the value.
func (n *T) Uint64() uint64 { return n.N }

// Int returns the value as an int.
func (n *T) Int() int { return int(n.N) }

// Marshal appends the ASCII decimal representation to dst.
func (n *T) Marshal(dst []byte) (b []byte) {
	b = dst
	if n.N == 0 {
		b = append(b, '0')
		return
	}
	var tmp [20]byte
	i := len(tmp)
	for v := n.N; v > 0; v /= 10 {
		i--
		tmp[i] = byte('0' + v%10)
	}
	b = append(b, tmp[i:]...)
	return
}

// Unmarshal reads an ASCII decimal number from the front of b, returning the
// remainder after it.
func (n *T) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	var got bool
	n.N = 0
	for len(r) > 0 && r[0] >= '0' && r[0] <= '9' {
		n.N = n.N*10 + uint64(r[0]-'0')
		r = r[1:]
		got = true
	}
	if !got {
		err = errorf.D("no number found at '%s'", b)
	}
	return
}
