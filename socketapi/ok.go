package socketapi

import (
	"bramble.dev/encoders/envelopes/okenvelope"
	"bramble.dev/encoders/reason"
)

// OK writes a machine-readable rejection for an event id, with the message
// carrying one of the standard reason prefixes.
type OK func(a *A, eid []byte, format string, params ...any) (err error)

// OKs is the set of rejection writers, one per standard prefix.
type OKs struct {
	AuthRequired OK
	Duplicate    OK
	Blocked      OK
	RateLimited  OK
	Invalid      OK
	Error        OK
	Unsupported  OK
	Restricted   OK
}

func rejectWith(prefix []byte) OK {
	return func(a *A, eid []byte, format string, params ...any) (err error) {
		return okenvelope.NewFrom(
			eid, false, reason.Msg(prefix, format, params...),
		).Write(a.Listener)
	}
}

// Ok holds the rejection writers used by the frame handlers.
var Ok = OKs{
	AuthRequired: rejectWith(reason.AuthRequired),
	Duplicate:    rejectWith(reason.Duplicate),
	Blocked:      rejectWith(reason.Blocked),
	RateLimited:  rejectWith(reason.RateLimited),
	Invalid:      rejectWith(reason.Invalid),
	Error:        rejectWith(reason.Error),
	Unsupported:  rejectWith(reason.Unsupported),
	Restricted:   rejectWith(reason.Restricted),
}
