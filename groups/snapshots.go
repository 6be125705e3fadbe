package groups

import (
	"sort"

	"bramble.dev/database"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/tag"
	"bramble.dev/encoders/tags"
	"bramble.dev/encoders/timestamp"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
)

// synthesize signs and publishes a relay-authored group event carrying the
// h tag plus the given extras.
func (g *G) synthesize(
	c context.T, k *kind.T, id string, extras ...*tag.T,
) {
	ev := &event.E{
		CreatedAt: timestamp.Now(),
		Kind:      kind.New(k.K),
		Tags:      tags.New(append([]*tag.T{tag.New("h", id)}, extras...)...),
		Content:   []byte{},
	}
	if chk.E(ev.Sign(g.relay)) {
		return
	}
	g.publish(c, ev)
}

// EmitSnapshots republishes the four relay-signed state events of a group:
// 39000 metadata, 39001 admins, 39002 members, 39003 roles. Each is
// addressable by its d tag so the replacement resolver retains only the
// newest.
func (g *G) EmitSnapshots(c context.T, id string) {
	meta, err := g.db.GetGroup(id)
	if chk.E(err) || meta == nil {
		return
	}
	members, err := g.db.GroupMembers(id)
	if chk.E(err) {
		return
	}
	roles, err := g.db.GroupRoles(id)
	if chk.E(err) {
		return
	}
	sort.Slice(
		members, func(i, j int) bool {
			return members[i].Pubkey < members[j].Pubkey
		},
	)
	g.emitMetadata(c, id, meta)
	g.emitAdmins(c, id, members)
	g.emitMembers(c, id, members)
	g.emitRoles(c, id, roles)
}

func (g *G) emitMetadata(c context.T, id string, meta *database.GroupMeta) {
	extras := []*tag.T{tag.New("d", id)}
	if meta.Name != "" {
		extras = append(extras, tag.New("name", meta.Name))
	}
	if meta.About != "" {
		extras = append(extras, tag.New("about", meta.About))
	}
	if meta.Picture != "" {
		extras = append(extras, tag.New("picture", meta.Picture))
	}
	if meta.Public {
		extras = append(extras, tag.New("public"))
	} else {
		extras = append(extras, tag.New("private"))
	}
	if meta.Open {
		extras = append(extras, tag.New("open"))
	} else {
		extras = append(extras, tag.New("closed"))
	}
	g.synthesize(c, kind.GroupMetadata, id, extras...)
}

func (g *G) emitAdmins(
	c context.T, id string, members []*database.GroupMember,
) {
	extras := []*tag.T{tag.New("d", id)}
	for _, m := range members {
		if len(m.Roles) == 0 {
			continue
		}
		fields := append([]string{"p", m.Pubkey}, m.Roles...)
		extras = append(extras, tag.New(fields...))
	}
	g.synthesize(c, kind.GroupAdmins, id, extras...)
}

func (g *G) emitMembers(
	c context.T, id string, members []*database.GroupMember,
) {
	extras := []*tag.T{tag.New("d", id)}
	for _, m := range members {
		extras = append(extras, tag.New("p", m.Pubkey))
	}
	g.synthesize(c, kind.GroupMembers, id, extras...)
}

func (g *G) emitRoles(c context.T, id string, roles []*database.GroupRole) {
	extras := []*tag.T{tag.New("d", id)}
	for _, r := range roles {
		extras = append(extras, tag.New("role", r.Name, r.Description))
	}
	g.synthesize(c, kind.GroupRoles, id, extras...)
}
