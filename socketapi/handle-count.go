package socketapi

import (
	"bramble.dev/encoders/envelopes/closedenvelope"
	"bramble.dev/encoders/envelopes/countenvelope"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

// handleCount answers a NIP-45 COUNT with the number of stored events
// matching the filters, summed across them.
func (a *A) handleCount(c context.T, req []byte) (notice []byte) {
	var err error
	log.T.F("COUNT from %s:\n%s", a.Remote(), req)
	var rem []byte
	env := countenvelope.NewRequest()
	if rem, err = env.Unmarshal(req); chk.E(err) {
		return []byte(err.Error())
	}
	if len(rem) > 0 {
		log.T.F("extra '%s'", rem)
	}
	for _, f := range env.Filters.F {
		if reject, msg := a.Policies.AcceptFilter(c, f, a.Listener); reject {
			chk.E(
				closedenvelope.NewFrom(env.Subscription, msg).
					Write(a.Listener),
			)
			return
		}
	}
	var total int
	for _, f := range env.Filters.F {
		var count int
		if count, err = a.Policies.Count(c, f); err != nil {
			log.W.F("count for %s failed: %v", a.Remote(), err)
			continue
		}
		total += count
	}
	chk.E(
		countenvelope.NewResponseWith(env.Subscription, total).
			Write(a.Listener),
	)
	return
}
