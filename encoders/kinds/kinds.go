// Package kinds is a list of kind.T with a JSON array codec, used in the
// kinds field of filters.
package kinds

import (
	"bramble.dev/encoders/kind"
	"bramble.dev/utils/errorf"
)

// T is a sortable list of kinds.
type T struct {
	K []*kind.T
}

// New creates a kinds.T from a list of kinds.
func New(k ...*kind.T) *T { return &T{K: k} }

// NewWithCap creates an empty kinds.T with capacity.
func NewWithCap(c int) *T { return &T{K: make([]*kind.T, 0, c)} }

// Len returns the number of kinds, 0 for nil.
func (ks *T) Len() (l int) {
	if ks == nil {
		return
	}
	return len(ks.K)
}

// Contains reports whether k is in the list.
func (ks *T) Contains(k *kind.T) bool {
	for _, v := range ks.K {
		if v.Equal(k) {
			return true
		}
	}
	return false
}

// Append adds a kind to the list.
func (ks *T) Append(k *kind.T) { ks.K = append(ks.K, k) }

func (ks *T) Less(i, j int) bool { return ks.K[i].K < ks.K[j].K }
func (ks *T) Swap(i, j int)      { ks.K[i], ks.K[j] = ks.K[j], ks.K[i] }

// Marshal appends a JSON array of kind numbers to dst.
func (ks *T) Marshal(dst []byte) (b []byte) {
	b = dst
	b = append(b, '[')
	for i, k := range ks.K {
		if i > 0 {
			b = append(b, ',')
		}
		b = k.Marshal(b)
	}
	b = append(b, ']')
	return
}

// Unmarshal reads a JSON array of kind numbers from the front of b.
func (ks *T) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	for len(r) > 0 && (r[0] == ' ' || r[0] == '\t' || r[0] == '\n' || r[0] == '\r') {
		r = r[1:]
	}
	if len(r) == 0 || r[0] != '[' {
		err = errorf.D("expected kinds array at '%s'", b)
		return
	}
	r = r[1:]
	for {
		for len(r) > 0 && (r[0] == ' ' || r[0] == '\t' || r[0] == '\n' || r[0] == '\r' || r[0] == ',') {
			r = r[1:]
		}
		if len(r) == 0 {
			err = errorf.D("unterminated kinds array")
			return
		}
		if r[0] == ']' {
			r = r[1:]
			return
		}
		k := kind.New(0)
		if r, err = k.Unmarshal(r); err != nil {
			return
		}
		ks.K = append(ks.K, k)
	}
}
