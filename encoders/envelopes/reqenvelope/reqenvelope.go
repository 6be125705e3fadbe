// Package reqenvelope is the client's subscription request:
// ["REQ","<subscription>",<filter>,...].
package reqenvelope

import (
	"io"

	"bramble.dev/encoders/envelopes"
	"bramble.dev/encoders/filters"
	"bramble.dev/encoders/text"
	"bramble.dev/interfaces/codec"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/errorf"
)

// L is the label of this envelope.
const L = "REQ"

// MaxSubscriptionLength is the longest subscription id accepted.
const MaxSubscriptionLength = 64

type T struct {
	Subscription []byte
	Filters      *filters.T
}

var _ codec.Envelope = (*T)(nil)

func New() *T { return &T{Filters: filters.New()} }

func NewFrom[V string | []byte](sub V, ff *filters.T) *T {
	return &T{Subscription: []byte(sub), Filters: ff}
}

func (en *T) Label() string { return L }

func (en *T) Write(w io.Writer) (err error) {
	_, err = w.Write(en.Marshal(nil))
	return
}

func (en *T) Marshal(dst []byte) (b []byte) {
	b = envelopes.Marshal(
		dst, L, func(bst []byte) (o []byte) {
			o = bst
			o = append(o, '"')
			o = text.NostrEscape(o, en.Subscription)
			o = append(o, '"', ',')
			o = en.Filters.Marshal(o)
			return
		},
	)
	return
}

func (en *T) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	if en.Subscription, r, err = text.UnmarshalQuoted(r); chk.E(err) {
		return
	}
	if len(en.Subscription) == 0 ||
		len(en.Subscription) > MaxSubscriptionLength {
		err = errorf.E(
			"subscription id must be between 1 and %d characters, got %d",
			MaxSubscriptionLength, len(en.Subscription),
		)
		return
	}
	if r, err = en.Filters.Unmarshal(r); chk.E(err) {
		return
	}
	for len(r) > 0 {
		if r[0] == ']' {
			r = r[1:]
			return
		}
		r = r[1:]
	}
	return
}

// Parse reads a REQ payload (after the label).
func Parse(b []byte) (en *T, rem []byte, err error) {
	en = New()
	rem, err = en.Unmarshal(b)
	return
}
