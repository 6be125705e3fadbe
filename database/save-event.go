package database

import (
	"bytes"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"bramble.dev/encoders/event"
	"bramble.dev/interfaces/store"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

// SaveEvent saves an event and its indexes in one transaction. Returns
// store.ErrDupEvent if the id is already present.
func (d *D) SaveEvent(c context.T, ev *event.E) (err error) {
	var serial uint64
	if serial, err = d.seq.Next(); chk.E(err) {
		return
	}
	ser := serialBytes(serial)
	err = d.Update(
		func(txn *badger.Txn) (err error) {
			if _, err = txn.Get(idKey(ev.Id)); err == nil {
				return store.ErrDupEvent
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				chk.E(err)
				return
			}
			return d.writeEvent(txn, ev, ser)
		},
	)
	if err == nil {
		log.T.F("saved event %0x serial %d", ev.Id, serial)
	}
	return
}

// writeEvent writes the event record, its id mapping and its secondary
// indexes inside an open transaction.
func (d *D) writeEvent(txn *badger.Txn, ev *event.E, ser []byte) (err error) {
	for _, key := range indexKeysForEvent(ev, ser) {
		var val []byte
		if bytes.HasPrefix(key, prfId) {
			val = ser
		}
		if err = txn.Set(key, val); chk.E(err) {
			return
		}
	}
	if err = txn.Set(eventKey(ser), ev.MarshalBinary(nil)); chk.E(err) {
		return
	}
	return
}
