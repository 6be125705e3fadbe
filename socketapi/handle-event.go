package socketapi

import (
	"bytes"
	"errors"

	"bramble.dev/encoders/envelopes/authenvelope"
	"bramble.dev/encoders/envelopes/eventenvelope"
	"bramble.dev/encoders/envelopes/okenvelope"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/reason"
	"bramble.dev/interfaces/store"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

// handleEvent runs an EVENT submission through validation, the policy
// chains and storage, replying with exactly one OK. The OK always goes out
// before the event is broadcast to subscribers.
func (a *A) handleEvent(c context.T, req []byte) (notice []byte) {
	var err error
	log.T.F(
		"handleEvent %s %s authed: %0x", a.Remote(), req, a.AuthedPubkey(),
	)
	var rem []byte
	env := eventenvelope.NewSubmission()
	if rem, err = env.Unmarshal(req); chk.E(err) {
		return []byte(err.Error())
	}
	if len(rem) > 0 {
		log.T.F("extra '%s'", rem)
	}
	calculatedId := env.E.GetIDBytes()
	if !bytes.Equal(calculatedId, env.E.Id) {
		chk.E(
			Ok.Invalid(
				a, env.E.Id,
				"event id is computed incorrectly, event has id %0x, "+
					"but when computed it is %0x", env.E.Id, calculatedId,
			),
		)
		return
	}
	var valid bool
	if valid, err = env.E.Verify(); chk.T(err) {
		chk.E(
			Ok.Error(
				a, env.E.Id, "failed to verify signature: %s", err.Error(),
			),
		)
		return
	} else if !valid {
		chk.E(Ok.Invalid(a, env.E.Id, "signature is invalid"))
		return
	}
	if reject, msg := a.Policies.AcceptEvent(c, env.E, a.Listener); reject {
		if err = okenvelope.NewFrom(
			env.E.Id, false, msg,
		).Write(a.Listener); chk.E(err) {
			return
		}
		// an auth-required rejection is an invitation to authenticate
		if bytes.HasPrefix(msg, reason.AuthRequired) {
			chk.E(
				authenvelope.NewChallengeWith(a.Challenge()).Write(a.Listener),
			)
		}
		return
	}
	if env.E.Kind.K == kind.Deletion.K {
		return a.handleDelete(c, env)
	}
	var okMsg []byte
	accepted := true
	switch {
	case env.E.Kind.IsEphemeral():
		// broadcast only, never stored
	case env.E.Kind.IsReplaceable():
		var replaced bool
		if replaced, err = a.Policies.Replace(c, env.E); chk.E(err) {
			chk.E(Ok.Error(a, env.E.Id, "failed to store event"))
			return
		}
		if !replaced {
			accepted = false
			okMsg = reason.Msg(reason.Duplicate, "replaced by newer")
		}
	default:
		if _, err = a.Policies.Store(c, env.E); err != nil {
			if errors.Is(err, store.ErrDupEvent) {
				accepted = false
				okMsg = reason.Msg(reason.Duplicate, "%s", err.Error())
			} else {
				chk.E(err)
				chk.E(Ok.Error(a, env.E.Id, "failed to store event"))
				return
			}
		}
	}
	if err = okenvelope.NewFrom(
		env.E.Id, accepted, okMsg,
	).Write(a.Listener); chk.E(err) {
		return
	}
	if !accepted {
		return
	}
	a.Groups.ApplyEvent(c, env.E)
	a.Publishers.Deliver(env.E)
	return
}
