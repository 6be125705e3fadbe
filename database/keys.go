package database

import (
	"encoding/binary"

	"github.com/minio/sha256-simd"

	"bramble.dev/encoders/event"
)

// Key prefixes. Events live under their serial; every other table maps a
// dimension back to serials. Hashed dimensions are truncated sha256 so keys
// stay fixed width.
var (
	prfEvent   = []byte("ev:") // serial -> event binary
	prfId      = []byte("id:") // event id -> serial
	prfCreated = []byte("ct:") // timestamp, serial
	prfPubkey  = []byte("pk:") // pubkey hash, timestamp, serial
	prfKind    = []byte("ki:") // kind, timestamp, serial
	prfAddress = []byte("ad:") // address hash -> serial, timestamp
	prfTag     = []byte("tg:") // tag name+value hash, timestamp, serial
)

const (
	serialLen = 8
	hashLen   = 8
	tsLen     = 8
)

// dimHash is the truncated sha256 used in index keys.
func dimHash(b ...[]byte) (h []byte) {
	hasher := sha256.New()
	for _, x := range b {
		hasher.Write(x)
	}
	return hasher.Sum(nil)[:hashLen]
}

func serialBytes(serial uint64) (b []byte) {
	b = make([]byte, serialLen)
	binary.BigEndian.PutUint64(b, serial)
	return
}

func tsBytes(ts int64) (b []byte) {
	b = make([]byte, tsLen)
	binary.BigEndian.PutUint64(b, uint64(ts))
	return
}

func eventKey(serial []byte) (k []byte) {
	k = append(k, prfEvent...)
	return append(k, serial...)
}

func idKey(id []byte) (k []byte) {
	k = append(k, prfId...)
	return append(k, id...)
}

func createdKey(ts int64, serial []byte) (k []byte) {
	k = append(k, prfCreated...)
	k = append(k, tsBytes(ts)...)
	return append(k, serial...)
}

func pubkeyKey(pk []byte, ts int64, serial []byte) (k []byte) {
	k = append(k, prfPubkey...)
	k = append(k, dimHash(pk)...)
	k = append(k, tsBytes(ts)...)
	return append(k, serial...)
}

func kindKey(kk uint16, ts int64, serial []byte) (k []byte) {
	k = append(k, prfKind...)
	var kb [2]byte
	binary.BigEndian.PutUint16(kb[:], kk)
	k = append(k, kb[:]...)
	k = append(k, tsBytes(ts)...)
	return append(k, serial...)
}

func addressKey(addr []byte) (k []byte) {
	k = append(k, prfAddress...)
	return append(k, dimHash(addr)...)
}

func tagKey(name, value []byte, ts int64, serial []byte) (k []byte) {
	k = append(k, prfTag...)
	k = append(k, dimHash(name, []byte{0}, value)...)
	k = append(k, tsBytes(ts)...)
	return append(k, serial...)
}

// indexKeysForEvent generates every secondary index key for an event except
// the address index, which only replaceable events get and which the
// replace path manages.
func indexKeysForEvent(ev *event.E, serial []byte) (keys [][]byte) {
	ts := ev.CreatedAt.I64()
	keys = append(keys, idKey(ev.Id))
	keys = append(keys, createdKey(ts, serial))
	keys = append(keys, pubkeyKey(ev.Pubkey, ts, serial))
	keys = append(keys, kindKey(ev.Kind.K, ts, serial))
	for _, t := range ev.Tags.ToSliceOfTags() {
		// only single letter tag names are queryable
		if len(t.Key()) != 1 || t.Len() < 2 {
			continue
		}
		keys = append(keys, tagKey(t.Key(), t.Value(), ts, serial))
	}
	return
}
