package groups

import (
	"bytes"
	"time"

	"bramble.dev/database"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/hex"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/reason"
	"bramble.dev/interfaces/listener"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

// rejectEvent is the validation gate for group events, registered on the
// general rejection chain. Events without an h tag pass through untouched.
func (g *G) rejectEvent(c context.T, ev *event.E, l listener.I) (
	reject bool, msg []byte,
) {
	id := GroupId(ev)
	if id == "" {
		if ev.Kind.IsGroupModeration() || ev.Kind.K == kind.JoinRequest.K ||
			ev.Kind.K == kind.LeaveRequest.K {
			return true, reason.Msg(
				reason.Invalid, "kind %d requires an 'h' tag", ev.Kind.K,
			)
		}
		return
	}
	k := ev.Kind.K
	// group creation is the one action that targets a group that does not
	// exist yet; the creator becomes its first admin, so only the relay key
	// and configured creators may publish it
	if k == kind.CreateGroup.K {
		if !g.mayCreate(ev.Pubkey) {
			return true, reason.Msg(
				reason.Restricted, "group creation is not open on this relay",
			)
		}
		if g.groupExists(id) {
			return true, reason.Msg(
				reason.Invalid, "group '%s' already exists", id,
			)
		}
		return
	}
	if !g.groupExists(id) {
		return true, reason.Msg(reason.Invalid, "group '%s' does not exist", id)
	}
	meta, err := g.db.GetGroup(id)
	if chk.E(err) || meta == nil {
		return true, reason.Msg(reason.Error, "internal error")
	}
	relayAuthored := bytes.Equal(ev.Pubkey, g.relay.Pub())
	// non-public groups only take events from members; join requests and
	// the relay itself are exempt
	if !meta.Public && !relayAuthored && k != kind.JoinRequest.K {
		if _, member := g.memberRoles(id, hex.Enc(ev.Pubkey)); !member {
			return true, reason.Msg(
				reason.Restricted, "not a member of group '%s'", id,
			)
		}
	}
	// timeline references must resolve
	for _, ref := range ev.Tags.GetValues(PreviousTag) {
		var has bool
		if has, err = g.db.HasTimelineRef(id, string(ref)); chk.E(err) {
			return true, reason.Msg(reason.Error, "internal error")
		}
		if !has {
			return true, reason.Msg(
				reason.Invalid, "unknown timeline reference '%s'", ref,
			)
		}
	}
	switch {
	case k == kind.JoinRequest.K:
		return g.rejectJoin(meta, id, ev)
	case k == kind.LeaveRequest.K:
		if _, member := g.memberRoles(id, hex.Enc(ev.Pubkey)); !member {
			return true, reason.Msg(
				reason.Invalid, "not a member of group '%s'", id,
			)
		}
	case ev.Kind.IsGroupModeration():
		if !g.authorized(id, ev.Pubkey, k) {
			log.D.F(
				"unauthorized kind %d from %0x in group %s", k, ev.Pubkey, id,
			)
			return true, reason.Msg(
				reason.Restricted, "not authorized for this action",
			)
		}
	case ev.Kind.IsGroupMetadata():
		if !relayAuthored {
			return true, reason.Msg(
				reason.Restricted,
				"kind %d is only published by the relay", k,
			)
		}
	}
	return
}

var codeTag = []byte("code")

// rejectJoin validates a 9021 join request: duplicate membership is
// refused, closed groups demand a usable invite code.
func (g *G) rejectJoin(meta *database.GroupMeta, id string, ev *event.E) (
	reject bool, msg []byte,
) {
	if _, member := g.memberRoles(id, hex.Enc(ev.Pubkey)); member {
		return true, reason.Msg(
			reason.Duplicate, "already a member of group '%s'", id,
		)
	}
	if meta.Open {
		return
	}
	code := string(ev.Tags.GetValue(codeTag))
	if code == "" {
		return true, reason.Msg(
			reason.Restricted, "group '%s' requires an invite code", id,
		)
	}
	inv, err := g.db.GetInvite(id, code)
	if chk.E(err) {
		return true, reason.Msg(reason.Error, "internal error")
	}
	if inv == nil || !inv.Usable(time.Now()) {
		return true, reason.Msg(
			reason.Restricted, "invite code is not valid",
		)
	}
	return
}
