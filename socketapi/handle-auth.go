package socketapi

import (
	"bramble.dev/encoders/envelopes/authenvelope"
	"bramble.dev/encoders/envelopes/okenvelope"
	"bramble.dev/helpers"
	"bramble.dev/protocol/auth"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/log"
)

// handleAuth validates a NIP-42 AUTH response against the challenge issued
// on connect and marks the connection authenticated on success.
func (a *A) handleAuth(b []byte) (notice []byte) {
	log.T.F("AUTH from %s:\n%s", a.Remote(), b)
	var err error
	var rem []byte
	env := authenvelope.NewResponse()
	if rem, err = env.Unmarshal(b); chk.E(err) {
		return []byte(err.Error())
	}
	if len(rem) > 0 {
		log.T.F("extra '%s'", rem)
	}
	relayURL := a.Config.RelayURL
	if relayURL == "" {
		relayURL = helpers.ServiceURL(a.Listener.Req())
	}
	var valid bool
	if valid, err = auth.Validate(
		env.Event, a.Challenge(), relayURL,
	); err != nil {
		chk.E(Ok.Error(a, env.Event.Id, "%s", err.Error()))
		return
	} else if !valid {
		chk.E(Ok.Restricted(a, env.Event.Id, "failed to authenticate"))
		return
	}
	if err = okenvelope.NewFrom(
		env.Event.Id, true,
	).Write(a.Listener); chk.E(err) {
		return
	}
	log.D.F("%s authed to pubkey %0x", a.Remote(), env.Event.Pubkey)
	a.SetAuthedPubkey(env.Event.Pubkey)
	return
}
