// Package atomic adds a Bytes type to the set provided by go.uber.org/atomic,
// for connection state that is read from other goroutines than the one that
// writes it.
package atomic

import (
	"go.uber.org/atomic"
)

// Re-exports so callers only import one atomic package.
type (
	Bool   = atomic.Bool
	String = atomic.String
	Int64  = atomic.Int64
)

// Bytes is an atomically replaceable byte slice. The stored slice must not be
// mutated after Store.
type Bytes struct {
	v atomic.Value
}

// Store replaces the slice.
func (b *Bytes) Store(p []byte) { b.v.Store(p) }

// Load returns the current slice, nil if never stored.
func (b *Bytes) Load() (p []byte) {
	if v := b.v.Load(); v != nil {
		p = v.([]byte)
	}
	return
}
