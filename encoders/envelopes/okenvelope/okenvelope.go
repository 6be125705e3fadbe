// Package okenvelope is the relay's acceptance reply to an EVENT
// submission: ["OK","<event id>",<true|false>,"<message>"].
package okenvelope

import (
	"io"

	"github.com/minio/sha256-simd"

	"bramble.dev/encoders/envelopes"
	"bramble.dev/encoders/hex"
	"bramble.dev/encoders/text"
	"bramble.dev/interfaces/codec"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/errorf"
)

// L is the label of this envelope.
const L = "OK"

// T is an OK envelope. EventID is raw binary.
type T struct {
	EventID []byte
	OK      bool
	Message []byte
}

var _ codec.Envelope = (*T)(nil)

func New() *T { return &T{} }

// NewFrom makes an OK envelope for the given event id. The message is
// optional; NIP-01 requires a machine readable prefix on false.
func NewFrom(eid []byte, ok bool, msg ...[]byte) *T {
	var m []byte
	if len(msg) > 0 {
		m = msg[0]
	}
	return &T{EventID: eid, OK: ok, Message: m}
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
			o = text.AppendQuote(o, en.EventID, hex.EncAppend)
			o = append(o, ',')
			if en.OK {
				o = append(o, "true"...)
			} else {
				o = append(o, "false"...)
			}
			o = append(o, ',', '"')
			o = text.NostrEscape(o, en.Message)
			o = append(o, '"')
			return
		},
	)
	return
}

func (en *T) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	var id []byte
	if id, r, err = text.UnmarshalHex(r); chk.E(err) {
		return
	}
	if len(id) != sha256.Size {
		err = errorf.E("invalid event id length %d", len(id))
		return
	}
	en.EventID = id
	for len(r) > 0 && (r[0] == ',' || r[0] == ' ') {
		r = r[1:]
	}
	switch {
	case len(r) >= 4 && string(r[:4]) == "true":
		en.OK = true
		r = r[4:]
	case len(r) >= 5 && string(r[:5]) == "false":
		en.OK = false
		r = r[5:]
	default:
		err = errorf.E("invalid OK status in '%s'", b)
		return
	}
	for len(r) > 0 && (r[0] == ',' || r[0] == ' ') {
		r = r[1:]
	}
	if len(r) > 0 && r[0] == '"' {
		if en.Message, r, err = text.UnmarshalQuoted(r); chk.E(err) {
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

// Parse reads an OK payload (after the label).
func Parse(b []byte) (en *T, rem []byte, err error) {
	en = New()
	rem, err = en.Unmarshal(b)
	return
}
