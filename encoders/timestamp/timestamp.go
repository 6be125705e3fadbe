// Package timestamp is the created_at field of nostr events: unix seconds
// with an ASCII codec. Methods are nil-safe so optional filter fields can be
// used without guards.
package timestamp

import (
	"time"

	"bramble.dev/encoders/ints"
)

// T is a unix timestamp in seconds.
type T struct {
	V int64
}

// New creates a timestamp from any integer type.
func New[V int64 | int | uint64 | uint32 | int32](v V) *T { return &T{V: int64(v)} }

// Now returns the current time as a timestamp.
func Now() *T { return &T{V: time.Now().Unix()} }

// FromUnix creates a timestamp from an int64 unix time.
func FromUnix(i int64) *T { return &T{V: i} }

// FromTime creates a timestamp from a time.Time.
func FromTime(t time.Time) *T { return &T{V: t.Unix()} }

// I64 returns the timestamp as int64, 0 for nil.
func (t *T) I64() (i int64) {
	if t == nil {
		return
	}
	return t.V
}

// U64 returns the timestamp as uint64, 0 for nil.
func (t *T) U64() (u uint64) {
	if t == nil {
		return
	}
	return uint64(t.V)
}

// Int returns the timestamp as int, 0 for nil.
func (t *T) Int() (i int) {
	if t == nil {
		return
	}
	return int(t.V)
}

// Time returns the timestamp as a time.Time.
func (t *T) Time() time.Time { return time.Unix(t.I64(), 0) }

// Marshal appends the ASCII decimal form to dst.
func (t *T) Marshal(dst []byte) (b []byte) {
	return ints.New(uint64(t.I64())).Marshal(dst)
}

// Unmarshal reads an ASCII decimal timestamp from the front of b.
func (t *T) Unmarshal(b []byte) (r []byte, err error) {
	n := ints.New(0)
	if r, err = n.Unmarshal(b); err != nil {
		return
	}
	t.V = int64(n.N)
	return
}
