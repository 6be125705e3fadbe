// Package tag is one nostr tag: an ordered list of byte fields where the
// first is the tag name and the second, when present, is its value. The same
// type doubles as the ids/authors lists of filters, where every field is a
// value.
package tag

import (
	"bytes"

	"bramble.dev/encoders/text"
)

// T is a single tag.
type T struct {
	field [][]byte
}

// New creates a tag from strings or byte slices.
func New[V string | []byte](fields ...V) (t *T) {
	t = &T{field: make([][]byte, 0, len(fields))}
	for _, f := range fields {
		t.field = append(t.field, []byte(f))
	}
	return
}

// NewWithCap creates an empty tag with capacity.
func NewWithCap(c int) *T { return &T{field: make([][]byte, 0, c)} }

// FromBytesSlice creates a tag from a slice of byte slices.
func FromBytesSlice(fields ...[]byte) *T { return &T{field: fields} }

// Len returns the number of fields, 0 for nil.
func (t *T) Len() (l int) {
	if t == nil {
		return
	}
	return len(t.field)
}

// B returns field i as bytes, nil when out of range.
func (t *T) B(i int) (b []byte) {
	if t == nil || i >= len(t.field) {
		return
	}
	return t.field[i]
}

// S returns field i as a string.
func (t *T) S(i int) string { return string(t.B(i)) }

// Key returns the first field, the tag name.
func (t *T) Key() []byte { return t.B(0) }

// Value returns the second field, the tag value.
func (t *T) Value() []byte { return t.B(1) }

// Append adds fields to the tag, returning it for chaining.
func (t *T) Append(fields ...[]byte) *T {
	t.field = append(t.field, fields...)
	return t
}

// ToSliceOfBytes returns the raw fields.
func (t *T) ToSliceOfBytes() (b [][]byte) {
	if t == nil {
		return
	}
	return t.field
}

// ToStringSlice returns the fields as strings.
func (t *T) ToStringSlice() (s []string) {
	if t == nil {
		return
	}
	s = make([]string, 0, len(t.field))
	for _, f := range t.field {
		s = append(s, string(f))
	}
	return
}

// Contains reports whether any field equals b exactly.
func (t *T) Contains(b []byte) bool {
	if t == nil {
		return false
	}
	for _, f := range t.field {
		if bytes.Equal(f, b) {
			return true
		}
	}
	return false
}

// ContainsPrefix reports whether any field is a prefix of b (or equals it).
// Filters allow id and author prefixes.
func (t *T) ContainsPrefix(b []byte) bool {
	if t == nil {
		return false
	}
	for _, f := range t.field {
		if len(f) > 0 && bytes.HasPrefix(b, f) {
			return true
		}
	}
	return false
}

// Equal reports whether two tags have identical fields.
func (t *T) Equal(other *T) bool {
	if t.Len() != other.Len() {
		return false
	}
	for i := range t.field {
		if !bytes.Equal(t.field[i], other.field[i]) {
			return false
		}
	}
	return true
}

// Clone copies the tag and its fields.
func (t *T) Clone() (c *T) {
	c = NewWithCap(t.Len())
	for _, f := range t.ToSliceOfBytes() {
		b := make([]byte, len(f))
		copy(b, f)
		c.field = append(c.field, b)
	}
	return
}

// sort.Interface over the fields, for canonicalizing filter id/author lists.
func (t *T) Less(i, j int) bool { return bytes.Compare(t.field[i], t.field[j]) < 0 }
func (t *T) Swap(i, j int)      { t.field[i], t.field[j] = t.field[j], t.field[i] }

// Marshal appends the tag as a JSON array of escaped strings to dst.
func (t *T) Marshal(dst []byte) (b []byte) {
	return text.MarshalStringArray(dst, t.ToSliceOfBytes())
}

// Unmarshal reads a JSON array of strings from the front of b into the tag.
func (t *T) Unmarshal(b []byte) (r []byte, err error) {
	var vals [][]byte
	if vals, r, err = text.UnmarshalStringArray(b); err != nil {
		return
	}
	t.field = vals
	return
}
