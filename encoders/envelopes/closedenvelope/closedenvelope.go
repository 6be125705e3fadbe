// Package closedenvelope is the relay ending a subscription from its side:
// ["CLOSED","<subscription>","<reason>"].
package closedenvelope

import (
	"io"

	"bramble.dev/encoders/envelopes"
	"bramble.dev/encoders/text"
	"bramble.dev/interfaces/codec"
	"bramble.dev/utils/chk"
)

// L is the label of this envelope.
const L = "CLOSED"

type T struct {
	Subscription []byte
	Reason       []byte
}

var _ codec.Envelope = (*T)(nil)

func New() *T { return &T{} }

func NewFrom[V string | []byte](sub V, reason []byte) *T {
	return &T{Subscription: []byte(sub), Reason: reason}
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
			o = append(o, '"', ',', '"')
			o = text.NostrEscape(o, en.Reason)
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
	for len(r) > 0 && (r[0] == ',' || r[0] == ' ') {
		r = r[1:]
	}
	if len(r) > 0 && r[0] == '"' {
		if en.Reason, r, err = text.UnmarshalQuoted(r); chk.E(err) {
			return
		}
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

// Parse reads a CLOSED payload (after the label).
func Parse(b []byte) (en *T, rem []byte, err error) {
	en = New()
	rem, err = en.Unmarshal(b)
	return
}
