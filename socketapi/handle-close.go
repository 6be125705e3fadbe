package socketapi

import (
	"bramble.dev/encoders/envelopes/closeenvelope"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/log"
)

// handleClose drops a subscription: any in-flight query is cancelled and
// the live subscription is removed from the publisher.
func (a *A) handleClose(req []byte) (notice []byte) {
	var err error
	var rem []byte
	env := closeenvelope.New()
	if rem, err = env.Unmarshal(req); chk.E(err) {
		return []byte(err.Error())
	}
	if len(rem) > 0 {
		log.T.F("extra '%s'", rem)
	}
	if len(env.Subscription) == 0 {
		return []byte("CLOSE has no subscription id")
	}
	sub := string(env.Subscription)
	if cancel, ok := a.queries.LoadAndDelete(sub); ok {
		cancel()
	}
	a.Publishers.Receive(
		&W{
			Cancel:   true,
			Listener: a.Listener,
			Id:       sub,
		},
	)
	return
}
