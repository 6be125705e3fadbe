package socketapi

import (
	"fmt"

	"bramble.dev/encoders/envelopes"
	"bramble.dev/encoders/envelopes/authenvelope"
	"bramble.dev/encoders/envelopes/closeenvelope"
	"bramble.dev/encoders/envelopes/countenvelope"
	"bramble.dev/encoders/envelopes/eventenvelope"
	"bramble.dev/encoders/envelopes/noticeenvelope"
	"bramble.dev/encoders/envelopes/reqenvelope"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/log"
)

// handleMessage identifies the envelope type of a frame and routes it. A
// non-empty return from a handler goes back to the client as a NOTICE.
func (a *A) handleMessage(msg []byte) {
	log.T.F("%s received message:\n%s", a.Remote(), msg)
	var notice []byte
	var err error
	var t string
	var rem []byte
	if t, rem, err = envelopes.Identify(msg); chk.E(err) {
		notice = []byte(err.Error())
	}
	switch t {
	case eventenvelope.L:
		notice = a.handleEvent(a.Ctx, rem)
	case reqenvelope.L:
		notice = a.handleReq(a.Ctx, rem)
	case closeenvelope.L:
		notice = a.handleClose(rem)
	case authenvelope.L:
		notice = a.handleAuth(rem)
	case countenvelope.L:
		notice = a.handleCount(a.Ctx, rem)
	default:
		notice = []byte(fmt.Sprintf("unknown envelope type '%s'", t))
	}
	if len(notice) > 0 {
		log.D.F("notice->%s %s", a.Remote(), notice)
		if err = noticeenvelope.NewFrom(notice).Write(a.Listener); chk.E(err) {
			return
		}
	}
}
