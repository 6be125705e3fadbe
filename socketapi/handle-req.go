package socketapi

import (
	"time"

	"bramble.dev/encoders/envelopes/closedenvelope"
	"bramble.dev/encoders/envelopes/eoseenvelope"
	"bramble.dev/encoders/envelopes/eventenvelope"
	"bramble.dev/encoders/envelopes/reqenvelope"
	"bramble.dev/encoders/event"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

// handleReq answers a REQ: the filters run through the query chain under a
// watchdog timeout, stored events stream out followed by EOSE, and the
// subscription goes live for subsequent broadcasts. A second REQ with the
// same id replaces the first.
func (a *A) handleReq(c context.T, req []byte) (notice []byte) {
	var err error
	log.T.F("REQ from %s:\n%s", a.Remote(), req)
	var rem []byte
	env := reqenvelope.New()
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
	maxLimit := uint(a.Config.MaxLimit)
	for _, f := range env.Filters.F {
		if f.Limit == nil || *f.Limit > maxLimit {
			l := maxLimit
			f.Limit = &l
		}
	}
	sub := string(env.Subscription)
	qc, cancel := context.Timeout(
		c, time.Duration(a.Config.QueryTimeoutSeconds)*time.Second,
	)
	if prev, replaced := a.queries.LoadAndDelete(sub); replaced {
		prev()
	}
	a.queries.Store(sub, cancel)
	defer a.queries.Delete(sub)
	// the subscription goes live before the stored query runs so events
	// accepted in between are broadcast rather than lost; anything sent
	// live is skipped in the stored stream below
	a.Publishers.Receive(
		&W{
			Listener: a.Listener,
			Id:       sub,
			Filters:  env.Filters,
		},
	)
	live, _ := a.Publishers.Find(Type).(*S)
	for _, f := range env.Filters.F {
		if f.Limit != nil && *f.Limit == 0 {
			continue
		}
		var events event.S
		if events, err = a.Policies.Query(qc, f); err != nil {
			// a timed out or cancelled query still gets its EOSE, with
			// whatever was found so far
			log.W.F("query for %s aborted: %v", a.Remote(), err)
			break
		}
		for _, ev := range events {
			if live != nil && live.Delivered(a.Listener, sub, ev.Id) {
				continue
			}
			if err = eventenvelope.NewResultWith(sub, ev).
				Write(a.Listener); chk.E(err) {
				cancel()
				return
			}
		}
	}
	cancel()
	if err = eoseenvelope.NewFrom(env.Subscription).Write(a.Listener); chk.E(err) {
		return
	}
	if live != nil {
		live.Settle(a.Listener, sub)
	}
	return
}
