// Package tags is the ordered list of tags on an event, with the lookups the
// relay needs: first value by name, all values by name, existence, and the
// intersection test used to match `#x` filter entries.
package tags

import (
	"bytes"

	"bramble.dev/encoders/tag"
	"bramble.dev/utils/errorf"
)

// T is a list of tags.
type T struct {
	t []*tag.T
}

// New creates a tags.T from a list of tags.
func New(tgs ...*tag.T) *T { return &T{t: tgs} }

// NewWithCap creates an empty tags.T with capacity.
func NewWithCap[V int | uint64](c V) *T { return &T{t: make([]*tag.T, 0, int(c))} }

// Len returns the number of tags, 0 for nil.
func (ts *T) Len() (l int) {
	if ts == nil {
		return
	}
	return len(ts.t)
}

// AppendTags adds tags to the list, returning it for chaining.
func (ts *T) AppendTags(tgs ...*tag.T) *T {
	ts.t = append(ts.t, tgs...)
	return ts
}

// ToSliceOfTags returns the underlying list.
func (ts *T) ToSliceOfTags() (tgs []*tag.T) {
	if ts == nil {
		return
	}
	return ts.t
}

// GetFirst returns the first tag whose name equals name, nil if none.
func (ts *T) GetFirst(name []byte) (t *tag.T) {
	for _, v := range ts.ToSliceOfTags() {
		if bytes.Equal(v.Key(), name) {
			return v
		}
	}
	return
}

// GetValue returns the value of the first tag named name, nil if none.
func (ts *T) GetValue(name []byte) (v []byte) {
	if t := ts.GetFirst(name); t != nil {
		v = t.Value()
	}
	return
}

// GetAll returns every tag whose name equals name.
func (ts *T) GetAll(name []byte) (out []*tag.T) {
	for _, v := range ts.ToSliceOfTags() {
		if bytes.Equal(v.Key(), name) {
			out = append(out, v)
		}
	}
	return
}

// GetValues returns the values of every tag named name.
func (ts *T) GetValues(name []byte) (vals [][]byte) {
	for _, v := range ts.GetAll(name) {
		if v.Len() > 1 {
			vals = append(vals, v.Value())
		}
	}
	return
}

// ContainsName reports whether any tag has the given name.
func (ts *T) ContainsName(name []byte) bool { return ts.GetFirst(name) != nil }

// ContainsAny reports whether any tag named name has a value in values.
func (ts *T) ContainsAny(name []byte, values *tag.T) bool {
	for _, v := range ts.ToSliceOfTags() {
		if !bytes.Equal(v.Key(), name) {
			continue
		}
		if values.Contains(v.Value()) {
			return true
		}
	}
	return false
}

// Intersects checks event tags against a set of filter tag entries. Each
// filter entry is a tag whose key is `#x` and whose remaining fields are the
// accepted values for tag name x; every entry must be satisfied (the entries
// AND together, the values within one entry OR together).
func (ts *T) Intersects(filterTags *T) bool {
	for _, ft := range filterTags.ToSliceOfTags() {
		key := ft.Key()
		if len(key) != 2 || key[0] != '#' {
			continue
		}
		name := key[1:]
		values := tag.FromBytesSlice(ft.ToSliceOfBytes()[1:]...)
		if !ts.ContainsAny(name, values) {
			return false
		}
	}
	return true
}

// ToStringsSlice renders the tags as a slice of string slices.
func (ts *T) ToStringsSlice() (s [][]string) {
	s = make([][]string, 0, ts.Len())
	for _, v := range ts.ToSliceOfTags() {
		s = append(s, v.ToStringSlice())
	}
	return
}

// Clone deep-copies the tags.
func (ts *T) Clone() (c *T) {
	c = NewWithCap(ts.Len())
	for _, v := range ts.ToSliceOfTags() {
		c.t = append(c.t, v.Clone())
	}
	return
}

// Marshal appends the tags as a JSON array of arrays to dst.
func (ts *T) Marshal(dst []byte) (b []byte) {
	b = dst
	b = append(b, '[')
	for i, v := range ts.ToSliceOfTags() {
		if i > 0 {
			b = append(b, ',')
		}
		b = v.Marshal(b)
	}
	b = append(b, ']')
	return
}

// Unmarshal reads a JSON array of string arrays from the front of b.
func (ts *T) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	for len(r) > 0 && (r[0] == ' ' || r[0] == '\t' || r[0] == '\n' || r[0] == '\r') {
		r = r[1:]
	}
	if len(r) == 0 || r[0] != '[' {
		err = errorf.D("expected tags array at '%s'", b)
		return
	}
	r = r[1:]
	for {
		for len(r) > 0 && (r[0] == ' ' || r[0] == '\t' || r[0] == '\n' || r[0] == '\r' || r[0] == ',') {
			r = r[1:]
		}
		if len(r) == 0 {
			err = errorf.D("unterminated tags array")
			return
		}
		if r[0] == ']' {
			r = r[1:]
			return
		}
		t := tag.NewWithCap(3)
		if r, err = t.Unmarshal(r); err != nil {
			return
		}
		ts.t = append(ts.t, t)
	}
}
