// Package filters is a list of filter.F that a REQ carries. A list matches
// an event if any member does.
package filters

import (
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/filter"
	"bramble.dev/utils/chk"
)

// T is a disjunction of filters.
type T struct {
	F []*filter.F
}

// New creates a filter list from the given filters.
func New(f ...*filter.F) *T { return &T{F: f} }

func (ff *T) Len() (l int) {
	if ff == nil {
		return
	}
	return len(ff.F)
}

// Match reports whether any filter in the list matches the event.
func (ff *T) Match(ev *event.E) bool {
	for _, f := range ff.F {
		if f.Matches(ev) {
			return true
		}
	}
	return false
}

// Marshal appends the filters as a comma separated sequence of JSON objects
// (no enclosing brackets, the envelope provides those).
func (ff *T) Marshal(dst []byte) (b []byte) {
	b = dst
	for i, f := range ff.F {
		if i > 0 {
			b = append(b, ',')
		}
		b = f.Marshal(b)
	}
	return
}

// Unmarshal reads successive filter objects until something that is not a
// filter opener appears, returning the remainder.
func (ff *T) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	for len(r) > 0 {
		switch r[0] {
		case ',', ' ', '\t', '\n', '\r':
			r = r[1:]
		case '{':
			f := filter.New()
			if r, err = f.Unmarshal(r); chk.E(err) {
				return
			}
			ff.F = append(ff.F, f)
		default:
			return
		}
	}
	return
}
