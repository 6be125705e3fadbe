package database

import (
	"bufio"
	"errors"
	"io"

	"bramble.dev/encoders/event"
	"bramble.dev/interfaces/store"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
	"bramble.dev/utils/units"
)

// Import reads line delimited JSON events and stores them. Lines that do
// not decode or verify are skipped, replaceable kinds go through the
// replacement path so the export order does not matter.
func (d *D) Import(r io.Reader) {
	c := context.Bg()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, units.Mb), units.Mb)
	var count, skipped int
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		ev := event.New()
		if _, err := ev.Unmarshal(line); err != nil {
			skipped++
			continue
		}
		if valid, err := ev.Verify(); err != nil || !valid {
			skipped++
			continue
		}
		if err := d.importEvent(c, ev); err != nil {
			skipped++
			continue
		}
		count++
	}
	chk.E(sc.Err())
	log.I.F("imported %d events, skipped %d", count, skipped)
}

func (d *D) importEvent(c context.T, ev *event.E) (err error) {
	if ev.Kind.IsEphemeral() {
		return
	}
	if ev.Kind.IsReplaceable() {
		_, err = d.ReplaceEvent(c, ev)
		return
	}
	if err = d.SaveEvent(c, ev); errors.Is(err, store.ErrDupEvent) {
		err = nil
	}
	return
}
