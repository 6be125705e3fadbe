// Package eventenvelope has the two forms of the EVENT message: the client
// submission ["EVENT",<event>] and the relay result
// ["EVENT",<subscription>,<event>].
package eventenvelope

import (
	"io"

	"bramble.dev/encoders/envelopes"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/text"
	"bramble.dev/interfaces/codec"
	"bramble.dev/utils/chk"
)

// L is the label of this envelope.
const L = "EVENT"

// Submission is a client submitting an event for storage and broadcast.
type Submission struct {
	E *event.E
}

var _ codec.Envelope = (*Submission)(nil)

func NewSubmission() *Submission { return &Submission{E: event.New()} }

func NewSubmissionWith(ev *event.E) *Submission { return &Submission{E: ev} }

func (en *Submission) Label() string { return L }

func (en *Submission) Write(w io.Writer) (err error) {
	_, err = w.Write(en.Marshal(nil))
	return
}

func (en *Submission) Marshal(dst []byte) (b []byte) {
	b = envelopes.Marshal(
		dst, L, func(bst []byte) (o []byte) {
			return en.E.Marshal(bst)
		},
	)
	return
}

func (en *Submission) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	if r, err = en.E.Unmarshal(r); chk.E(err) {
		return
	}
	r = skipToEnd(r)
	return
}

// ParseSubmission reads a Submission payload (after the label).
func ParseSubmission(b []byte) (en *Submission, rem []byte, err error) {
	en = NewSubmission()
	rem, err = en.Unmarshal(b)
	return
}

// Result is a relay delivering an event to a subscription.
type Result struct {
	Subscription []byte
	Event        *event.E
}

var _ codec.Envelope = (*Result)(nil)

func NewResult() *Result { return &Result{Event: event.New()} }

// NewResultWith makes a Result carrying the given subscription id and event.
func NewResultWith[V string | []byte](sub V, ev *event.E) *Result {
	return &Result{Subscription: []byte(sub), Event: ev}
}

func (en *Result) Label() string { return L }

func (en *Result) Write(w io.Writer) (err error) {
	_, err = w.Write(en.Marshal(nil))
	return
}

func (en *Result) Marshal(dst []byte) (b []byte) {
	b = envelopes.Marshal(
		dst, L, func(bst []byte) (o []byte) {
			o = bst
			o = append(o, '"')
			o = text.NostrEscape(o, en.Subscription)
			o = append(o, '"', ',')
			o = en.Event.Marshal(o)
			return
		},
	)
	return
}

func (en *Result) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	if en.Subscription, r, err = text.UnmarshalQuoted(r); chk.E(err) {
		return
	}
	for len(r) > 0 && r[0] != '{' {
		r = r[1:]
	}
	if r, err = en.Event.Unmarshal(r); chk.E(err) {
		return
	}
	r = skipToEnd(r)
	return
}

// ParseResult reads a Result payload (after the label).
func ParseResult(b []byte) (en *Result, rem []byte, err error) {
	en = NewResult()
	rem, err = en.Unmarshal(b)
	return
}

func skipToEnd(b []byte) (r []byte) {
	r = b
	for len(r) > 0 {
		if r[0] == ']' {
			r = r[1:]
			return
		}
		r = r[1:]
	}
	return
}
