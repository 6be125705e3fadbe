package database

import (
	"errors"

	"github.com/dgraph-io/badger/v4"

	"bramble.dev/encoders/event"
	"bramble.dev/utils/chk"
)

// serialById looks up the serial of an event id, nil if unknown.
func serialById(txn *badger.Txn, id []byte) (ser []byte, err error) {
	var it *badger.Item
	if it, err = txn.Get(idKey(id)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			err = nil
		}
		return
	}
	ser, err = it.ValueCopy(nil)
	return
}

// fetchEventBySerial loads and decodes the event stored under a serial.
func fetchEventBySerial(txn *badger.Txn, ser []byte) (
	ev *event.E, err error,
) {
	var it *badger.Item
	if it, err = txn.Get(eventKey(ser)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			err = nil
		}
		return
	}
	var val []byte
	if val, err = it.ValueCopy(nil); chk.E(err) {
		return
	}
	ev = event.New()
	if err = ev.UnmarshalBinary(val); chk.E(err) {
		ev = nil
		return
	}
	return
}
