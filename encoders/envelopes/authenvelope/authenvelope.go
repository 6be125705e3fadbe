// Package authenvelope has the two forms of the AUTH message of NIP-42: the
// relay challenge ["AUTH","<challenge>"] and the client response
// ["AUTH",<kind 22242 event>].
package authenvelope

import (
	"io"

	"bramble.dev/encoders/envelopes"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/text"
	"bramble.dev/interfaces/codec"
	"bramble.dev/utils/chk"
)

// L is the label of this envelope.
const L = "AUTH"

// Challenge is the relay-chosen random string sent to a client to sign over,
// preventing replay of authentication events.
type Challenge struct {
	Challenge []byte
}

var _ codec.Envelope = (*Challenge)(nil)

func NewChallenge() *Challenge { return &Challenge{} }

func NewChallengeWith[V string | []byte](challenge V) *Challenge {
	return &Challenge{[]byte(challenge)}
}

func (en *Challenge) Label() string { return L }

func (en *Challenge) Write(w io.Writer) (err error) {
	_, err = w.Write(en.Marshal(nil))
	return
}

func (en *Challenge) Marshal(dst []byte) (b []byte) {
	b = envelopes.Marshal(
		dst, L, func(bst []byte) (o []byte) {
			o = bst
			o = append(o, '"')
			o = text.NostrEscape(o, en.Challenge)
			o = append(o, '"')
			return
		},
	)
	return
}

func (en *Challenge) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	if en.Challenge, r, err = text.UnmarshalQuoted(r); chk.E(err) {
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

// ParseChallenge reads a Challenge payload (after the label).
func ParseChallenge(b []byte) (en *Challenge, rem []byte, err error) {
	en = NewChallenge()
	rem, err = en.Unmarshal(b)
	return
}

// Response is the client's signed kind 22242 event answering a challenge.
type Response struct {
	Event *event.E
}

var _ codec.Envelope = (*Response)(nil)

func NewResponse() *Response { return &Response{Event: event.New()} }

func NewResponseWith(ev *event.E) *Response { return &Response{Event: ev} }

func (en *Response) Label() string { return L }

func (en *Response) Write(w io.Writer) (err error) {
	_, err = w.Write(en.Marshal(nil))
	return
}

func (en *Response) Marshal(dst []byte) (b []byte) {
	b = envelopes.Marshal(
		dst, L, func(bst []byte) (o []byte) {
			return en.Event.Marshal(bst)
		},
	)
	return
}

func (en *Response) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	if r, err = en.Event.Unmarshal(r); chk.E(err) {
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

// ParseResponse reads a Response payload (after the label).
func ParseResponse(b []byte) (en *Response, rem []byte, err error) {
	en = NewResponse()
	rem, err = en.Unmarshal(b)
	return
}
