package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"bramble.dev/utils/chk"
)

// Group state lives beside the events as msgpack records. Events carry the
// history, these records are the current state the moderation machine reads
// on the hot path.

// GroupMeta is the current metadata of a group.
type GroupMeta struct {
	Name      string    `msgpack:"name"`
	About     string    `msgpack:"about"`
	Picture   string    `msgpack:"picture"`
	Public    bool      `msgpack:"public"`
	Open      bool      `msgpack:"open"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// GroupMember is one pubkey's standing in a group.
type GroupMember struct {
	Pubkey string   `msgpack:"pubkey"`
	Roles  []string `msgpack:"roles"`
}

// GroupRole is a role a group defines.
type GroupRole struct {
	Name        string `msgpack:"name"`
	Description string `msgpack:"description"`
}

// GroupInvite is an invite code with a use budget and optional expiry.
type GroupInvite struct {
	Code      string    `msgpack:"code"`
	CreatedBy string    `msgpack:"created_by"`
	MaxUses   int       `msgpack:"max_uses"`
	Uses      int       `msgpack:"uses"`
	ExpiresAt time.Time `msgpack:"expires_at"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// Usable reports whether the invite still has uses left and has not
// expired.
func (inv *GroupInvite) Usable(now time.Time) bool {
	if inv.Uses >= inv.MaxUses {
		return false
	}
	if !inv.ExpiresAt.IsZero() && now.After(inv.ExpiresAt) {
		return false
	}
	return true
}

func groupKey(id string) []byte { return []byte("grp:" + id) }

func memberKey(id, pubkey string) []byte {
	return []byte("mem:" + id + ":" + pubkey)
}

func roleKey(id, name string) []byte { return []byte("rol:" + id + ":" + name) }

func inviteKey(id, code string) []byte {
	return []byte("inv:" + id + ":" + code)
}

func timelineKey(id, ref string) []byte {
	return []byte("tlr:" + id + ":" + ref)
}

// putRecord marshals a record under a key.
func (d *D) putRecord(key []byte, rec any) (err error) {
	var data []byte
	if data, err = msgpack.Marshal(rec); chk.E(err) {
		return
	}
	return d.Update(
		func(txn *badger.Txn) (err error) { return txn.Set(key, data) },
	)
}

// getRecord unmarshals the record under a key into rec; found is false when
// the key is vacant.
func (d *D) getRecord(key []byte, rec any) (found bool, err error) {
	err = d.View(
		func(txn *badger.Txn) (err error) {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found = true
			return item.Value(
				func(val []byte) error { return msgpack.Unmarshal(val, rec) },
			)
		},
	)
	return
}

func (d *D) delRecord(key []byte) (err error) {
	return d.Update(
		func(txn *badger.Txn) (err error) { return txn.Delete(key) },
	)
}

// PutGroup writes the metadata record of a group.
func (d *D) PutGroup(id string, g *GroupMeta) (err error) {
	return d.putRecord(groupKey(id), g)
}

// GetGroup reads the metadata record of a group, nil if it does not exist.
func (d *D) GetGroup(id string) (g *GroupMeta, err error) {
	g = &GroupMeta{}
	var found bool
	if found, err = d.getRecord(groupKey(id), g); !found || err != nil {
		g = nil
	}
	return
}

// DeleteGroup removes a group record and everything keyed under the group:
// members, roles, invites and timeline refs.
func (d *D) DeleteGroup(id string) (err error) {
	prefixes := []string{
		"grp:" + id, "mem:" + id + ":", "rol:" + id + ":",
		"inv:" + id + ":", "tlr:" + id + ":",
	}
	return d.Update(
		func(txn *badger.Txn) (err error) {
			for _, p := range prefixes {
				prefix := []byte(p)
				opts := badger.DefaultIteratorOptions
				opts.PrefetchValues = false
				opts.Prefix = prefix
				it := txn.NewIterator(opts)
				for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
					k := it.Item().KeyCopy(nil)
					if err = txn.Delete(k); chk.E(err) {
						it.Close()
						return
					}
				}
				it.Close()
			}
			return
		},
	)
}

// PutMember writes a member record.
func (d *D) PutMember(id string, m *GroupMember) (err error) {
	return d.putRecord(memberKey(id, m.Pubkey), m)
}

// GetMember reads a member record, nil if the pubkey is not a member.
func (d *D) GetMember(id, pubkey string) (m *GroupMember, err error) {
	m = &GroupMember{}
	var found bool
	if found, err = d.getRecord(memberKey(id, pubkey), m); !found ||
		err != nil {
		m = nil
	}
	return
}

// RemoveMember deletes a member record.
func (d *D) RemoveMember(id, pubkey string) (err error) {
	return d.delRecord(memberKey(id, pubkey))
}

// GroupMembers lists the member records of a group.
func (d *D) GroupMembers(id string) (ms []*GroupMember, err error) {
	prefix := []byte("mem:" + id + ":")
	err = d.View(
		func(txn *badger.Txn) (err error) {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				m := &GroupMember{}
				if err = it.Item().Value(
					func(val []byte) error {
						return msgpack.Unmarshal(val, m)
					},
				); chk.E(err) {
					return
				}
				ms = append(ms, m)
			}
			return
		},
	)
	return
}

// PutRole writes a role definition.
func (d *D) PutRole(id string, r *GroupRole) (err error) {
	return d.putRecord(roleKey(id, r.Name), r)
}

// GroupRoles lists the role definitions of a group.
func (d *D) GroupRoles(id string) (rs []*GroupRole, err error) {
	prefix := []byte("rol:" + id + ":")
	err = d.View(
		func(txn *badger.Txn) (err error) {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				r := &GroupRole{}
				if err = it.Item().Value(
					func(val []byte) error {
						return msgpack.Unmarshal(val, r)
					},
				); chk.E(err) {
					return
				}
				rs = append(rs, r)
			}
			return
		},
	)
	return
}

// PutInvite writes an invite record.
func (d *D) PutInvite(id string, inv *GroupInvite) (err error) {
	return d.putRecord(inviteKey(id, inv.Code), inv)
}

// GetInvite reads an invite record, nil if unknown.
func (d *D) GetInvite(id, code string) (inv *GroupInvite, err error) {
	inv = &GroupInvite{}
	var found bool
	if found, err = d.getRecord(inviteKey(id, code), inv); !found ||
		err != nil {
		inv = nil
	}
	return
}

// UseInvite consumes one use of an invite code. Fails if the code is
// unknown, exhausted or expired.
func (d *D) UseInvite(id, code string) (err error) {
	key := inviteKey(id, code)
	return d.Update(
		func(txn *badger.Txn) (err error) {
			item, err := txn.Get(key)
			if err != nil {
				return fmt.Errorf("unknown invite code %s", code)
			}
			inv := &GroupInvite{}
			if err = item.Value(
				func(val []byte) error { return msgpack.Unmarshal(val, inv) },
			); chk.E(err) {
				return
			}
			if !inv.Usable(time.Now()) {
				return fmt.Errorf("invite code %s exhausted or expired", code)
			}
			inv.Uses++
			var data []byte
			if data, err = msgpack.Marshal(inv); chk.E(err) {
				return
			}
			return txn.Set(key, data)
		},
	)
}

// AddTimelineRef records an event id prefix on a group's timeline, so later
// events can prove continuity with `previous` tags.
func (d *D) AddTimelineRef(id, ref string) (err error) {
	return d.Update(
		func(txn *badger.Txn) (err error) {
			return txn.Set(timelineKey(id, ref), nil)
		},
	)
}

// HasTimelineRef reports whether an event id prefix is on a group's
// timeline.
func (d *D) HasTimelineRef(id, ref string) (has bool, err error) {
	err = d.View(
		func(txn *badger.Txn) (err error) {
			_, err = txn.Get(timelineKey(id, ref))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			if err == nil {
				has = true
			}
			return
		},
	)
	return
}

// GroupIds lists every group id with a metadata record.
func (d *D) GroupIds() (ids []string, err error) {
	prefix := []byte("grp:")
	err = d.View(
		func(txn *badger.Txn) (err error) {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				k := string(it.Item().Key())
				ids = append(ids, strings.TrimPrefix(k, "grp:"))
			}
			return
		},
	)
	return
}
