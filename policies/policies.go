// Package policies is the relay's handler pipeline: ordered chains of
// functions consulted for every event submission, filter, store, query,
// count, delete and replace, plus per-kind rejection chains that features
// like moderated groups hook into.
package policies

import (
	"bytes"
	"sort"

	"bramble.dev/encoders/event"
	"bramble.dev/encoders/filter"
	"bramble.dev/interfaces/listener"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

// RejectEvent decides whether an event submission is refused. The first
// chain member that rejects wins and its message goes in the OK reply.
type RejectEvent func(c context.T, ev *event.E, l listener.I) (
	reject bool, msg []byte,
)

// RejectFilter decides whether a REQ filter is refused; the message goes in
// a CLOSED reply.
type RejectFilter func(c context.T, f *filter.F, l listener.I) (
	reject bool, msg []byte,
)

// StoreEvent persists an event. Chains run until one accepts.
type StoreEvent func(c context.T, ev *event.E) (accepted bool, err error)

// QueryEvents returns stored events for a filter. Chain outputs are
// concatenated and deduplicated.
type QueryEvents func(c context.T, f *filter.F) (evs event.S, err error)

// CountEvents counts stored events for a filter. The first chain member
// that succeeds wins.
type CountEvents func(c context.T, f *filter.F) (count int, err error)

// DeleteEvent removes an event by id. Every chain member runs.
type DeleteEvent func(c context.T, id []byte) (err error)

// ReplaceEvent atomically supplants the events at an address. Chains run
// until one accepts.
type ReplaceEvent func(c context.T, ev *event.E) (accepted bool, err error)

// P is the pipeline registry. Chains run in insertion order.
type P struct {
	RejectEvent  []RejectEvent
	RejectFilter []RejectFilter
	StoreEvent   []StoreEvent
	QueryEvents  []QueryEvents
	CountEvents  []CountEvents
	DeleteEvent  []DeleteEvent
	ReplaceEvent []ReplaceEvent

	// Kind maps a kind number to a rejection chain that only sees events
	// of that kind, consulted after the general chain.
	Kind map[uint16][]RejectEvent
}

// New creates an empty pipeline.
func New() (p *P) {
	return &P{Kind: make(map[uint16][]RejectEvent)}
}

// OnKind appends a rejection handler for one kind.
func (p *P) OnKind(k uint16, fn RejectEvent) {
	p.Kind[k] = append(p.Kind[k], fn)
}

// AcceptEvent runs the general chain then the kind chain. The first
// rejection short-circuits.
func (p *P) AcceptEvent(c context.T, ev *event.E, l listener.I) (
	reject bool, msg []byte,
) {
	for _, fn := range p.RejectEvent {
		if reject, msg = fn(c, ev, l); reject {
			return
		}
	}
	for _, fn := range p.Kind[ev.Kind.K] {
		if reject, msg = fn(c, ev, l); reject {
			return
		}
	}
	return
}

// AcceptFilter runs the filter chain. The first rejection short-circuits.
func (p *P) AcceptFilter(c context.T, f *filter.F, l listener.I) (
	reject bool, msg []byte,
) {
	for _, fn := range p.RejectFilter {
		if reject, msg = fn(c, f, l); reject {
			return
		}
	}
	return
}

// Store runs the store chain until one member accepts. Later members are
// archivers and do not run once the primary accepts.
func (p *P) Store(c context.T, ev *event.E) (accepted bool, err error) {
	for _, fn := range p.StoreEvent {
		if accepted, err = fn(c, ev); err != nil {
			return
		} else if accepted {
			return
		}
	}
	return
}

// Query runs every query member, concatenates their outputs deduplicated by
// id, re-sorts and applies the filter limit.
func (p *P) Query(c context.T, f *filter.F) (evs event.S, err error) {
	seen := make(map[string]struct{})
	for _, fn := range p.QueryEvents {
		var part event.S
		if part, err = fn(c, f); err != nil {
			return
		}
		for _, ev := range part {
			if _, ok := seen[string(ev.Id)]; ok {
				continue
			}
			seen[string(ev.Id)] = struct{}{}
			evs = append(evs, ev)
		}
	}
	sort.Slice(
		evs, func(i, j int) bool {
			a, b := evs[i], evs[j]
			if a.CreatedAt.I64() != b.CreatedAt.I64() {
				return a.CreatedAt.I64() > b.CreatedAt.I64()
			}
			return bytes.Compare(a.Id, b.Id) < 0
		},
	)
	if f.Limit != nil && len(evs) > int(*f.Limit) {
		evs = evs[:*f.Limit]
	}
	return
}

// Count runs the count chain; the first member that succeeds wins.
func (p *P) Count(c context.T, f *filter.F) (count int, err error) {
	for _, fn := range p.CountEvents {
		if count, err = fn(c, f); err == nil {
			return
		}
		log.W.F("count handler failed: %v", err)
	}
	return
}

// Delete runs every delete member; failures are logged and do not block
// the rest of the chain.
func (p *P) Delete(c context.T, id []byte) {
	for _, fn := range p.DeleteEvent {
		chk.E(fn(c, id))
	}
}

// Replace runs the replace chain until one member accepts.
func (p *P) Replace(c context.T, ev *event.E) (accepted bool, err error) {
	for _, fn := range p.ReplaceEvent {
		if accepted, err = fn(c, ev); err != nil {
			return
		} else if accepted {
			return
		}
	}
	return
}
