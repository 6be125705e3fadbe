package socketapi

import (
	"bytes"
	"errors"

	"bramble.dev/encoders/envelopes/eventenvelope"
	"bramble.dev/encoders/envelopes/okenvelope"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/filter"
	"bramble.dev/encoders/hex"
	"bramble.dev/encoders/ints"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/tag"
	"bramble.dev/interfaces/store"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

// handleDelete processes a kind 5 deletion: e tags name events by id, a
// tags name addressable events by kind:pubkey:d-tag. Only the author may
// delete their own events, deletion events themselves are indelible, and
// targets newer than the deletion are left alone. The deletion event is
// stored like any regular event so it can propagate.
func (a *A) handleDelete(
	c context.T, env *eventenvelope.Submission,
) (notice []byte) {
	var err error
	ev := env.E
	log.D.F("delete event\n%s", ev.Serialize())
	for _, t := range ev.Tags.ToSliceOfTags() {
		if t.Len() < 2 {
			continue
		}
		var targets event.S
		switch {
		case bytes.Equal(t.Key(), []byte("e")):
			f := filter.New()
			f.Ids = f.Ids.Append(t.Value())
			if targets, err = a.Policies.Query(c, f); chk.E(err) {
				chk.E(Ok.Error(a, ev.Id, "failed to query referenced event"))
				return
			}
		case bytes.Equal(t.Key(), []byte("a")):
			split := bytes.Split(t.Value(), []byte{':'})
			if len(split) != 3 {
				continue
			}
			kin := ints.New(uint16(0))
			if _, err = kin.Unmarshal(split[0]); chk.E(err) {
				chk.E(
					Ok.Invalid(
						a, ev.Id, "delete a tag kind invalid: %s", t.Value(),
					),
				)
				return
			}
			kk := kind.New(kin.Uint16())
			if !kk.IsParameterizedReplaceable() {
				chk.E(
					Ok.Invalid(
						a, ev.Id,
						"delete a tag must reference an addressable kind",
					),
				)
				return
			}
			var pk []byte
			if pk, err = hex.DecAppend(nil, split[1]); chk.E(err) {
				chk.E(
					Ok.Invalid(
						a, ev.Id, "delete a tag pubkey invalid: %s", t.Value(),
					),
				)
				return
			}
			if !bytes.Equal(pk, ev.Pubkey) {
				chk.E(
					Ok.Blocked(
						a, ev.Id, "cannot delete events of other authors",
					),
				)
				return
			}
			f := filter.New()
			f.Kinds.Append(kk)
			f.Authors = f.Authors.Append(split[1])
			f.Tags.AppendTags(tag.New([]byte("#d"), split[2]))
			if targets, err = a.Policies.Query(c, f); chk.E(err) {
				chk.E(Ok.Error(a, ev.Id, "failed to query referenced event"))
				return
			}
		default:
			continue
		}
		for _, target := range targets {
			if target.Kind.K == kind.Deletion.K {
				chk.E(
					Ok.Blocked(a, ev.Id, "deletion events cannot be deleted"),
				)
				return
			}
			if !bytes.Equal(target.Pubkey, ev.Pubkey) {
				chk.E(
					Ok.Blocked(
						a, ev.Id, "cannot delete events of other authors",
					),
				)
				return
			}
			if target.CreatedAt.I64() > ev.CreatedAt.I64() {
				log.D.F(
					"not deleting %0x, newer than the deletion", target.Id,
				)
				continue
			}
			a.Policies.Delete(c, target.Id)
		}
	}
	if _, err = a.Policies.Store(c, ev); err != nil &&
		!errors.Is(err, store.ErrDupEvent) {
		chk.E(err)
		chk.E(Ok.Error(a, ev.Id, "failed to store event"))
		return
	}
	if err = okenvelope.NewFrom(ev.Id, true).Write(a.Listener); chk.E(err) {
		return
	}
	a.Publishers.Deliver(ev)
	return
}
