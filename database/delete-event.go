package database

import (
	"bytes"

	"github.com/dgraph-io/badger/v4"

	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

// DeleteEvent removes an event and all its indexes. Unknown ids are not an
// error.
func (d *D) DeleteEvent(c context.T, id []byte) (err error) {
	err = d.Update(
		func(txn *badger.Txn) (err error) {
			var ser []byte
			if ser, err = serialById(txn, id); chk.E(err) {
				return
			}
			if ser == nil {
				return
			}
			return d.deleteBySerial(txn, ser)
		},
	)
	return
}

// deleteBySerial removes the event under a serial with every index derived
// from it, inside an open transaction.
func (d *D) deleteBySerial(txn *badger.Txn, ser []byte) (err error) {
	var ev, _ = fetchEventBySerial(txn, ser)
	if ev == nil {
		return
	}
	for _, key := range indexKeysForEvent(ev, ser) {
		if err = txn.Delete(key); chk.E(err) {
			return
		}
	}
	// the address index only comes off if it still points at this serial
	if addr := ev.Address(); addr != nil {
		var cur []byte
		if cur, _, err = addressEntry(txn, addr); chk.E(err) {
			return
		}
		if bytes.Equal(cur, ser) {
			if err = txn.Delete(addressKey(addr)); chk.E(err) {
				return
			}
		}
	}
	if err = txn.Delete(eventKey(ser)); chk.E(err) {
		return
	}
	log.T.F("deleted event %0x", ev.Id)
	return
}
