package database

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"bramble.dev/encoders/event"
	"bramble.dev/encoders/filter"
	"bramble.dev/encoders/hex"
	"bramble.dev/encoders/tag"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
)

// QueryEvents returns events matching the filter, newest first, ties broken
// by ascending id, honoring the filter limit.
func (d *D) QueryEvents(c context.T, f *filter.F) (
	evs event.S, err error,
) {
	err = d.View(
		func(txn *badger.Txn) (err error) {
			evs, err = d.queryTxn(c, txn, f)
			return
		},
	)
	return
}

func (d *D) queryTxn(c context.T, txn *badger.Txn, f *filter.F) (
	evs event.S, err error,
) {
	var serials [][]byte
	if serials, err = d.planSerials(c, txn, f); chk.E(err) {
		return
	}
	seen := make(map[string]struct{}, len(serials))
	for _, ser := range serials {
		select {
		case <-c.Done():
			// an expired watchdog returns whatever was fetched so far
			sortEvents(evs)
			return
		default:
		}
		if _, ok := seen[string(ser)]; ok {
			continue
		}
		seen[string(ser)] = struct{}{}
		var ev *event.E
		if ev, err = fetchEventBySerial(txn, ser); chk.E(err) {
			return
		}
		if ev == nil || !f.Matches(ev) {
			continue
		}
		evs = append(evs, ev)
	}
	sortEvents(evs)
	if f.Limit != nil && len(evs) > int(*f.Limit) {
		evs = evs[:*f.Limit]
	}
	return
}

// sortEvents orders newest first, equal timestamps by ascending id.
func sortEvents(evs event.S) {
	sort.Slice(
		evs, func(i, j int) bool {
			a, b := evs[i], evs[j]
			if a.CreatedAt.I64() != b.CreatedAt.I64() {
				return a.CreatedAt.I64() > b.CreatedAt.I64()
			}
			return bytes.Compare(a.Id, b.Id) < 0
		},
	)
}

// planSerials picks the most selective index the filter offers and scans it
// for candidate serials. Queries that only carry id or author prefixes fall
// back to wider scans, the post-filter keeps them correct.
func (d *D) planSerials(c context.T, txn *badger.Txn, f *filter.F) (
	serials [][]byte, err error,
) {
	// full length ids resolve directly
	if f.Ids.Len() > 0 && allFullLength(f.Ids.ToSliceOfBytes()) {
		for _, idHex := range f.Ids.ToSliceOfBytes() {
			var id []byte
			if id, err = hex.DecAppend(nil, idHex); chk.E(err) {
				return
			}
			var ser []byte
			if ser, err = serialById(txn, id); chk.E(err) {
				return
			}
			if ser != nil {
				serials = append(serials, ser)
			}
		}
		return
	}
	var since, until int64
	until = int64(^uint64(0) >> 1)
	if f.Since != nil {
		since = f.Since.I64()
	}
	if f.Until != nil && f.Until.I64() > 0 {
		until = f.Until.I64()
	}
	switch {
	case f.Kinds.Len() > 0:
		for _, k := range f.Kinds.K {
			var kb [2]byte
			binary.BigEndian.PutUint16(kb[:], k.K)
			prefix := append(append([]byte{}, prfKind...), kb[:]...)
			if serials, err = scanIndex(
				txn, prefix, since, until, serials,
			); chk.E(err) {
				return
			}
		}
	case f.Authors.Len() > 0 && allFullLength(f.Authors.ToSliceOfBytes()):
		for _, pkHex := range f.Authors.ToSliceOfBytes() {
			var pk []byte
			if pk, err = hex.DecAppend(nil, pkHex); chk.E(err) {
				return
			}
			prefix := append(append([]byte{}, prfPubkey...), dimHash(pk)...)
			if serials, err = scanIndex(
				txn, prefix, since, until, serials,
			); chk.E(err) {
				return
			}
		}
	case firstTagEntry(f) != nil:
		ft := firstTagEntry(f)
		name := ft.Key()[1:]
		for _, v := range ft.ToSliceOfBytes()[1:] {
			prefix := append(
				append([]byte{}, prfTag...), dimHash(name, []byte{0}, v)...,
			)
			if serials, err = scanIndex(
				txn, prefix, since, until, serials,
			); chk.E(err) {
				return
			}
		}
	default:
		if serials, err = scanIndex(
			txn, prfCreated, since, until, serials,
		); chk.E(err) {
			return
		}
	}
	return
}

// scanIndex walks one index prefix collecting serials whose embedded
// timestamp is within [since, until].
func scanIndex(
	txn *badger.Txn, prefix []byte, since, until int64, serials [][]byte,
) (out [][]byte, err error) {
	out = serials
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		k := it.Item().Key()
		if len(k) < len(prefix)+tsLen+serialLen {
			continue
		}
		ts := int64(binary.BigEndian.Uint64(k[len(prefix) : len(prefix)+tsLen]))
		if ts < since || ts > until {
			continue
		}
		ser := make([]byte, serialLen)
		copy(ser, k[len(k)-serialLen:])
		out = append(out, ser)
	}
	return
}

func allFullLength(vals [][]byte) bool {
	for _, v := range vals {
		if len(v) != 64 {
			return false
		}
	}
	return true
}

// firstTagEntry returns the first usable `#x` entry of the filter.
func firstTagEntry(f *filter.F) (t *tag.T) {
	for _, tg := range f.Tags.ToSliceOfTags() {
		if tg.Len() >= 2 && len(tg.Key()) == 2 && tg.Key()[0] == '#' {
			return tg
		}
	}
	return
}
