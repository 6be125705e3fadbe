package database

import (
	"github.com/dgraph-io/badger/v4"

	"bramble.dev/encoders/filter"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
)

// CountEvents returns the number of stored events matching the filter. The
// limit field does not bound a count.
func (d *D) CountEvents(c context.T, f *filter.F) (count int, err error) {
	var lim *uint
	lim, f.Limit = f.Limit, nil
	defer func() { f.Limit = lim }()
	err = d.View(
		func(txn *badger.Txn) (err error) {
			evs, err := d.queryTxn(c, txn, f)
			if chk.E(err) {
				return
			}
			count = len(evs)
			return
		},
	)
	return
}
