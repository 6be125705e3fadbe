// Package groups implements relay moderated groups: events tagged with an
// `h` tag belong to a group, moderation kinds mutate group state, and the
// relay republishes signed state snapshots. Validation hooks into the
// policy pipeline, effects run after an event is accepted.
package groups

import (
	"bytes"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"bramble.dev/database"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/hex"
	"bramble.dev/encoders/kind"
	"bramble.dev/interfaces/signer"
	"bramble.dev/policies"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
)

// HTag is the tag naming the group an event belongs to.
var HTag = []byte("h")

// PreviousTag carries timeline references: 8 character prefixes of recent
// event ids in the group.
var PreviousTag = []byte("previous")

// RoleAdmin and RoleModerator are the built-in roles the action map names.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// actionRole maps a moderation kind to the role its publisher must hold.
var actionRole = map[uint16]string{
	kind.PutUser.K:          RoleAdmin,
	kind.RemoveUser.K:       RoleAdmin,
	kind.EditMetadata.K:     RoleAdmin,
	kind.CreateGroup.K:      RoleAdmin,
	kind.DeleteGroup.K:      RoleAdmin,
	kind.CreateInvite.K:     RoleAdmin,
	kind.DeleteGroupEvent.K: RoleModerator,
}

// G is the group state machine.
type G struct {
	db    *database.D
	relay signer.I

	// publish stores and broadcasts a relay-synthesized event.
	publish func(c context.T, ev *event.E)

	// delete removes an event by id through the delete chain.
	delete func(c context.T, id []byte)

	// pubkeys permitted to create groups, besides the relay key
	creators map[string]struct{}

	// hot lookups; invalidated on every underlying write
	exists  *xsync.MapOf[string, bool]
	members *xsync.MapOf[string, []string]
}

// New creates the group machine. The publish callback stores and broadcasts
// relay-signed events, the delete callback runs the delete chain.
func New(
	db *database.D, relay signer.I,
	publish func(c context.T, ev *event.E),
	del func(c context.T, id []byte),
) (g *G) {
	return &G{
		db:       db,
		relay:    relay,
		publish:  publish,
		delete:   del,
		creators: make(map[string]struct{}),
		exists:   xsync.NewMapOf[string, bool](),
		members:  xsync.NewMapOf[string, []string](),
	}
}

// AllowCreators permits the named pubkeys (lowercase hex) to create groups.
// Call before serving; the set is not safe for concurrent mutation.
func (g *G) AllowCreators(pubkeys ...string) {
	for _, pk := range pubkeys {
		g.creators[strings.ToLower(pk)] = struct{}{}
	}
}

// mayCreate reports whether a pubkey is permitted to create a group: the
// relay key always may, everyone else needs an AllowCreators entry.
func (g *G) mayCreate(pubkey []byte) bool {
	if bytes.Equal(pubkey, g.relay.Pub()) {
		return true
	}
	_, ok := g.creators[hex.Enc(pubkey)]
	return ok
}

// Register hooks the validation handler into the pipeline.
func (p *G) Register(pl *policies.P) {
	pl.RejectEvent = append(pl.RejectEvent, p.rejectEvent)
}

// GroupId returns the group id of an event, empty if it is not a group
// event.
func GroupId(ev *event.E) (id string) {
	return string(ev.Tags.GetValue(HTag))
}

// RelayPubkey returns the relay's own signing pubkey.
func (g *G) RelayPubkey() []byte { return g.relay.Pub() }

// groupExists answers from cache when possible.
func (g *G) groupExists(id string) (ok bool) {
	if v, cached := g.exists.Load(id); cached {
		return v
	}
	meta, err := g.db.GetGroup(id)
	if chk.E(err) {
		return false
	}
	ok = meta != nil
	g.exists.Store(id, ok)
	return
}

// memberRoles returns the role set of a pubkey in a group, nil if not a
// member, answering from cache when possible.
func (g *G) memberRoles(id, pubkey string) (roles []string, member bool) {
	key := id + "/" + pubkey
	if v, cached := g.members.Load(key); cached {
		return v, v != nil
	}
	m, err := g.db.GetMember(id, pubkey)
	if chk.E(err) {
		return nil, false
	}
	if m == nil {
		g.members.Store(key, nil)
		return nil, false
	}
	roles = m.Roles
	if roles == nil {
		roles = []string{}
	}
	g.members.Store(key, roles)
	return roles, true
}

// invalidate drops the cached state of a group.
func (g *G) invalidate(id string) {
	g.exists.Delete(id)
	prefix := id + "/"
	g.members.Range(
		func(k string, _ []string) bool {
			if strings.HasPrefix(k, prefix) {
				g.members.Delete(k)
			}
			return true
		},
	)
}

// authorized reports whether a pubkey may perform a moderation action in a
// group. The relay key bypasses all checks; admins may do anything.
func (g *G) authorized(id string, pubkey []byte, k uint16) bool {
	if bytes.Equal(pubkey, g.relay.Pub()) {
		return true
	}
	required, ok := actionRole[k]
	if !ok {
		return false
	}
	roles, member := g.memberRoles(id, hex.Enc(pubkey))
	if !member {
		return false
	}
	for _, r := range roles {
		if r == required || r == RoleAdmin {
			return true
		}
	}
	return false
}
