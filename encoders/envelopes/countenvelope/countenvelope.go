// Package countenvelope has the two forms of the NIP-45 COUNT message: the
// client request ["COUNT","<subscription>",<filter>,...] and the relay
// response ["COUNT","<subscription>",{"count":<n>}].
package countenvelope

import (
	"io"

	"bramble.dev/encoders/envelopes"
	"bramble.dev/encoders/filters"
	"bramble.dev/encoders/ints"
	"bramble.dev/encoders/text"
	"bramble.dev/interfaces/codec"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/errorf"
)

// L is the label of this envelope.
const L = "COUNT"

// Request is a client asking for a count of matching events.
type Request struct {
	Subscription []byte
	Filters      *filters.T
}

var _ codec.Envelope = (*Request)(nil)

func NewRequest() *Request { return &Request{Filters: filters.New()} }

func NewRequestWith[V string | []byte](sub V, ff *filters.T) *Request {
	return &Request{Subscription: []byte(sub), Filters: ff}
}

func (en *Request) Label() string { return L }

func (en *Request) Write(w io.Writer) (err error) {
	_, err = w.Write(en.Marshal(nil))
	return
}

func (en *Request) Marshal(dst []byte) (b []byte) {
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

func (en *Request) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	if en.Subscription, r, err = text.UnmarshalQuoted(r); chk.E(err) {
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

// ParseRequest reads a COUNT request payload (after the label).
func ParseRequest(b []byte) (en *Request, rem []byte, err error) {
	en = NewRequest()
	rem, err = en.Unmarshal(b)
	return
}

// Response is the relay's count reply.
type Response struct {
	Subscription []byte
	Count        int
}

var _ codec.Envelope = (*Response)(nil)

var jCount = []byte("count")

func NewResponse() *Response { return &Response{} }

func NewResponseWith[V string | []byte](sub V, count int) *Response {
	return &Response{Subscription: []byte(sub), Count: count}
}

func (en *Response) Label() string { return L }

func (en *Response) Write(w io.Writer) (err error) {
	_, err = w.Write(en.Marshal(nil))
	return
}

func (en *Response) Marshal(dst []byte) (b []byte) {
	b = envelopes.Marshal(
		dst, L, func(bst []byte) (o []byte) {
			o = bst
			o = append(o, '"')
			o = text.NostrEscape(o, en.Subscription)
			o = append(o, '"', ',', '{')
			o = text.JSONKey(o, jCount)
			o = ints.New(en.Count).Marshal(o)
			o = append(o, '}')
			return
		},
	)
	return
}

func (en *Response) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	if en.Subscription, r, err = text.UnmarshalQuoted(r); chk.E(err) {
		return
	}
	for len(r) > 0 && r[0] != '{' {
		r = r[1:]
	}
	if len(r) == 0 {
		err = errorf.E("COUNT response has no count object: '%s'", b)
		return
	}
	for len(r) > 0 && r[0] != ':' {
		r = r[1:]
	}
	if len(r) == 0 {
		err = errorf.E("COUNT response has no count value: '%s'", b)
		return
	}
	r = r[1:]
	n := ints.New(0)
	if r, err = n.Unmarshal(r); chk.E(err) {
		return
	}
	en.Count = n.Int()
	for len(r) > 0 {
		if r[0] == ']' {
			r = r[1:]
			return
		}
		r = r[1:]
	}
	return
}

// ParseResponse reads a COUNT response payload (after the label).
func ParseResponse(b []byte) (en *Response, rem []byte, err error) {
	en = NewResponse()
	rem, err = en.Unmarshal(b)
	return
}
