// Package eoseenvelope is the relay signalling the end of stored results on
// a subscription: ["EOSE","<subscription>"].
package eoseenvelope

import (
	"io"

	"bramble.dev/encoders/envelopes"
	"bramble.dev/encoders/text"
	"bramble.dev/interfaces/codec"
	"bramble.dev/utils/chk"
)

// L is the label of this envelope.
const L = "EOSE"

type T struct {
	Subscription []byte
}

var _ codec.Envelope = (*T)(nil)

func New() *T { return &T{} }

func NewFrom[V string | []byte](sub V) *T { return &T{Subscription: []byte(sub)} }

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
			o = append(o, '"')
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
	for len(r) > 0 {
		if r[0] == ']' {
			r = r[1:]
			return
		}
		r = r[1:]
	}
	return
}

// Parse reads an EOSE payload (after the label).
func Parse(b []byte) (en *T, rem []byte, err error) {
	en = New()
	rem, err = en.Unmarshal(b)
	return
}
