package database

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"bramble.dev/encoders/event"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

// addressEntry reads the address index: the serial and created_at of the
// event currently holding an address, nil serial if vacant.
func addressEntry(txn *badger.Txn, addr []byte) (
	ser []byte, ts int64, err error,
) {
	var it *badger.Item
	if it, err = txn.Get(addressKey(addr)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			err = nil
		}
		return
	}
	var val []byte
	if val, err = it.ValueCopy(nil); chk.E(err) {
		return
	}
	if len(val) != serialLen+tsLen {
		err = nil
		return
	}
	ser = val[:serialLen]
	ts = int64(binary.BigEndian.Uint64(val[serialLen:]))
	return
}

// ReplaceEvent stores a replaceable or addressable event, atomically
// removing whatever older event holds the same address. If the stored event
// is newer (or the same age with a lower id) the submission is dropped and
// replaced is false.
func (d *D) ReplaceEvent(c context.T, ev *event.E) (
	replaced bool, err error,
) {
	addr := ev.Address()
	if addr == nil {
		err = d.SaveEvent(c, ev)
		replaced = err == nil
		return
	}
	// one writer per address at a time; the badger txn alone cannot order
	// two conflicting replacements
	mx := d.addrLock(addr)
	mx.Lock()
	defer mx.Unlock()
	var serial uint64
	if serial, err = d.seq.Next(); chk.E(err) {
		return
	}
	ser := serialBytes(serial)
	err = d.Update(
		func(txn *badger.Txn) (err error) {
			var curSer []byte
			var curTs int64
			if curSer, curTs, err = addressEntry(txn, addr); chk.E(err) {
				return
			}
			if curSer != nil {
				if curTs > ev.CreatedAt.I64() {
					return
				}
				if curTs == ev.CreatedAt.I64() {
					// same age: the lower id survives
					cur, _ := fetchEventBySerial(txn, curSer)
					if cur != nil && bytes.Compare(cur.Id, ev.Id) <= 0 {
						return
					}
				}
				if err = d.deleteBySerial(txn, curSer); chk.E(err) {
					return
				}
			}
			if err = d.writeEvent(txn, ev, ser); chk.E(err) {
				return
			}
			val := append(append([]byte{}, ser...), tsBytes(ev.CreatedAt.I64())...)
			if err = txn.Set(addressKey(addr), val); chk.E(err) {
				return
			}
			replaced = true
			return
		},
	)
	if replaced {
		log.T.F("replaced address %s with event %0x", addr, ev.Id)
	}
	return
}
