package database

import (
	"io"

	"github.com/dgraph-io/badger/v4"

	"bramble.dev/encoders/codecbuf"
	"bramble.dev/encoders/event"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

// Export writes every stored event as line delimited minified JSON.
func (d *D) Export(c context.T, w io.Writer) {
	var count int
	err := d.View(
		func(txn *badger.Txn) (err error) {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prfEvent
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(prfEvent); it.ValidForPrefix(prfEvent); it.Next() {
				select {
				case <-c.Done():
					return c.Err()
				default:
				}
				var val []byte
				if val, err = it.Item().ValueCopy(nil); chk.E(err) {
					return
				}
				ev := event.New()
				if err = ev.UnmarshalBinary(val); chk.E(err) {
					err = nil
					continue
				}
				buf := codecbuf.Get()
				buf.Write(ev.Serialize())
				buf.WriteByte('\n')
				_, err = w.Write(buf.Bytes())
				codecbuf.Put(buf)
				if chk.E(err) {
					return
				}
				count++
			}
			return
		},
	)
	if !chk.E(err) {
		log.I.F("exported %d events", count)
	}
}
