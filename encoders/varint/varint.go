// Package varint is a base 128 variable length integer codec for the binary
// event encoding stored in the database.
package varint

import (
	"io"

	"bramble.dev/utils/errorf"
)

// Encode writes n to w as a varint.
func Encode(w io.Writer, n uint64) {
	var tmp [10]byte
	i := 0
	for n >= 0x80 {
		tmp[i] = byte(n) | 0x80
		n >>= 7
		i++
	}
	tmp[i] = byte(n)
	_, _ = w.Write(tmp[:i+1])
}

// Decode reads a varint from r.
func Decode(r io.Reader) (n uint64, err error) {
	var one [1]byte
	var shift uint
	for {
		if _, err = io.ReadFull(r, one[:]); err != nil {
			return
		}
		b := one[0]
		n |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return
		}
		shift += 7
		if shift > 63 {
			err = errorf.E("varint overflow")
			return
		}
	}
}
