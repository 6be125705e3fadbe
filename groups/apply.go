package groups

import (
	"strconv"
	"time"

	"bramble.dev/database"
	"bramble.dev/encoders/hex"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/tag"

	"bramble.dev/encoders/event"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

var (
	pTag       = []byte("p")
	eTag       = []byte("e")
	dTag       = []byte("d")
	roleTag    = []byte("role")
	nameTag    = []byte("name")
	aboutTag   = []byte("about")
	pictureTag = []byte("picture")
	maxUsesTag = []byte("max_uses")
	expiresTag = []byte("expires_at")
	publicTag  = []byte("public")
	privateTag = []byte("private")
	openTag    = []byte("open")
	closedTag  = []byte("closed")
)

// timelineRefLen is how many hex characters of an event id a `previous`
// tag carries.
const timelineRefLen = 8

// ApplyEvent runs the effects of an accepted group event: state mutations,
// relay-synthesized events, and fresh state snapshots. Called after the
// event is stored and its OK has gone out.
func (g *G) ApplyEvent(c context.T, ev *event.E) {
	id := GroupId(ev)
	if id == "" {
		return
	}
	// every accepted group event lands on the timeline
	if !ev.Kind.IsEphemeral() {
		chk.E(g.db.AddTimelineRef(id, hex.Enc(ev.Id)[:timelineRefLen]))
	}
	var mutated bool
	switch ev.Kind.K {
	case kind.JoinRequest.K:
		mutated = g.applyJoin(c, id, ev)
	case kind.LeaveRequest.K:
		mutated = g.applyLeave(c, id, ev)
	case kind.PutUser.K:
		mutated = g.applyPutUser(id, ev)
	case kind.RemoveUser.K:
		mutated = g.applyRemoveUser(id, ev)
	case kind.EditMetadata.K:
		mutated = g.applyEditMetadata(id, ev)
	case kind.DeleteGroupEvent.K:
		g.applyDeleteEvent(c, ev)
	case kind.CreateGroup.K:
		mutated = g.applyCreateGroup(id, ev)
	case kind.DeleteGroup.K:
		g.applyDeleteGroup(id)
		return
	case kind.CreateInvite.K:
		g.applyCreateInvite(id, ev)
	case kind.GroupMetadata.K, kind.GroupAdmins.K, kind.GroupMembers.K,
		kind.GroupRoles.K:
		g.applyStateEvent(id, ev)
	}
	if mutated {
		g.invalidate(id)
		g.EmitSnapshots(c, id)
	}
}

// applyJoin adds the requester to the member set, consuming an invite if
// the group is closed, and synthesizes the put-user record.
func (g *G) applyJoin(c context.T, id string, ev *event.E) (mutated bool) {
	meta, err := g.db.GetGroup(id)
	if chk.E(err) || meta == nil {
		return
	}
	if !meta.Open {
		code := string(ev.Tags.GetValue(codeTag))
		if err = g.db.UseInvite(id, code); chk.E(err) {
			return
		}
	}
	pk := hex.Enc(ev.Pubkey)
	if err = g.db.PutMember(
		id, &database.GroupMember{Pubkey: pk},
	); chk.E(err) {
		return
	}
	g.invalidate(id)
	g.synthesize(c, kind.PutUser, id, tag.New("p", pk))
	return true
}

// applyLeave removes the requester and synthesizes the remove-user record.
func (g *G) applyLeave(c context.T, id string, ev *event.E) (mutated bool) {
	pk := hex.Enc(ev.Pubkey)
	if chk.E(g.db.RemoveMember(id, pk)) {
		return
	}
	g.invalidate(id)
	g.synthesize(c, kind.RemoveUser, id, tag.New("p", pk))
	return true
}

// applyPutUser adds the target of each p tag, with roles from role tags.
func (g *G) applyPutUser(id string, ev *event.E) (mutated bool) {
	var roles []string
	for _, r := range ev.Tags.GetValues(roleTag) {
		roles = append(roles, string(r))
	}
	for _, pk := range ev.Tags.GetValues(pTag) {
		if chk.E(
			g.db.PutMember(
				id, &database.GroupMember{Pubkey: string(pk), Roles: roles},
			),
		) {
			continue
		}
		mutated = true
	}
	return
}

// applyRemoveUser removes the target of each p tag.
func (g *G) applyRemoveUser(id string, ev *event.E) (mutated bool) {
	for _, pk := range ev.Tags.GetValues(pTag) {
		if chk.E(g.db.RemoveMember(id, string(pk))) {
			continue
		}
		mutated = true
	}
	return
}

// applyEditMetadata folds name/about/picture and visibility marker tags
// into the group record.
func (g *G) applyEditMetadata(id string, ev *event.E) (mutated bool) {
	meta, err := g.db.GetGroup(id)
	if chk.E(err) || meta == nil {
		return
	}
	applyMetaTags(meta, ev)
	if chk.E(g.db.PutGroup(id, meta)) {
		return
	}
	return true
}

func applyMetaTags(meta *database.GroupMeta, ev *event.E) {
	if v := ev.Tags.GetValue(nameTag); len(v) > 0 {
		meta.Name = string(v)
	}
	if v := ev.Tags.GetValue(aboutTag); len(v) > 0 {
		meta.About = string(v)
	}
	if v := ev.Tags.GetValue(pictureTag); len(v) > 0 {
		meta.Picture = string(v)
	}
	if ev.Tags.ContainsName(publicTag) {
		meta.Public = true
	}
	if ev.Tags.ContainsName(privateTag) {
		meta.Public = false
	}
	if ev.Tags.ContainsName(openTag) {
		meta.Open = true
	}
	if ev.Tags.ContainsName(closedTag) {
		meta.Open = false
	}
}

// applyDeleteEvent deletes the events named by e tags, scoped to the group.
func (g *G) applyDeleteEvent(c context.T, ev *event.E) {
	for _, idHex := range ev.Tags.GetValues(eTag) {
		id, err := hex.DecAppend(nil, idHex)
		if chk.E(err) {
			continue
		}
		g.delete(c, id)
	}
}

// applyCreateGroup inserts the group with the creator as first admin.
func (g *G) applyCreateGroup(id string, ev *event.E) (mutated bool) {
	meta := &database.GroupMeta{CreatedAt: time.Now()}
	applyMetaTags(meta, ev)
	if chk.E(g.db.PutGroup(id, meta)) {
		return
	}
	creator := &database.GroupMember{
		Pubkey: hex.Enc(ev.Pubkey), Roles: []string{RoleAdmin},
	}
	if chk.E(g.db.PutMember(id, creator)) {
		return
	}
	log.I.F("group '%s' created by %s", id, creator.Pubkey)
	return true
}

// applyDeleteGroup cascades the whole group away.
func (g *G) applyDeleteGroup(id string) {
	if chk.E(g.db.DeleteGroup(id)) {
		return
	}
	g.invalidate(id)
	log.I.F("group '%s' deleted", id)
}

// applyCreateInvite inserts an invite with optional code, max_uses and
// expires_at tags.
func (g *G) applyCreateInvite(id string, ev *event.E) {
	code := string(ev.Tags.GetValue(codeTag))
	if code == "" {
		code = hex.Enc(ev.Id)[:timelineRefLen]
	}
	maxUses := 1
	if v := ev.Tags.GetValue(maxUsesTag); len(v) > 0 {
		if n, err := strconv.Atoi(string(v)); err == nil && n > 0 {
			maxUses = n
		}
	}
	inv := &database.GroupInvite{
		Code:      code,
		CreatedBy: hex.Enc(ev.Pubkey),
		MaxUses:   maxUses,
		CreatedAt: time.Now(),
	}
	if v := ev.Tags.GetValue(expiresTag); len(v) > 0 {
		if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			inv.ExpiresAt = time.Unix(n, 0)
		}
	}
	chk.E(g.db.PutInvite(id, inv))
}

// applyStateEvent folds a relay-authored 39000..39003 into the records for
// the group named by its d tag.
func (g *G) applyStateEvent(hId string, ev *event.E) {
	id := string(ev.Tags.GetValue(dTag))
	if id == "" {
		id = hId
	}
	switch ev.Kind.K {
	case kind.GroupMetadata.K:
		meta, err := g.db.GetGroup(id)
		if chk.E(err) {
			return
		}
		if meta == nil {
			meta = &database.GroupMeta{CreatedAt: time.Now()}
		}
		applyMetaTags(meta, ev)
		chk.E(g.db.PutGroup(id, meta))
	case kind.GroupAdmins.K:
		for _, t := range ev.Tags.GetAll(pTag) {
			if t.Len() < 2 {
				continue
			}
			var roles []string
			for _, f := range t.ToSliceOfBytes()[2:] {
				roles = append(roles, string(f))
			}
			if len(roles) == 0 {
				roles = []string{RoleAdmin}
			}
			chk.E(
				g.db.PutMember(
					id, &database.GroupMember{
						Pubkey: t.S(1), Roles: roles,
					},
				),
			)
		}
	case kind.GroupMembers.K:
		for _, pk := range ev.Tags.GetValues(pTag) {
			m, err := g.db.GetMember(id, string(pk))
			if chk.E(err) {
				continue
			}
			if m == nil {
				chk.E(
					g.db.PutMember(
						id, &database.GroupMember{Pubkey: string(pk)},
					),
				)
			}
		}
	case kind.GroupRoles.K:
		for _, t := range ev.Tags.GetAll(roleTag) {
			if t.Len() < 2 {
				continue
			}
			chk.E(
				g.db.PutRole(
					id, &database.GroupRole{
						Name: t.S(1), Description: t.S(2),
					},
				),
			)
		}
	}
	g.invalidate(id)
}
