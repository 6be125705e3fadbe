package socketapi

import (
	"sync"

	"bramble.dev/encoders/envelopes/eventenvelope"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/filters"
	"bramble.dev/interfaces/publisher"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/log"
	"bramble.dev/ws"
)

const Type = "socketapi"

// sub is one live subscription. While the opening REQ is still streaming
// stored events, seen collects the ids already sent live so the stored
// stream can skip them; Settle drops the tracking once EOSE is out.
type sub struct {
	filters *filters.T
	seen    map[string]struct{}
}

// Map associates each websocket listener with its subscriptions.
type Map map[*ws.Listener]map[string]*sub

// W is the subscription control message for the websocket publisher. With
// Cancel set it removes the named subscription, or the whole listener when
// Id is empty; otherwise it registers a subscription.
type W struct {
	*ws.Listener
	Cancel  bool
	Id      string
	Filters *filters.T
}

func (w *W) Type() (typeName string) { return Type }

// S tracks live subscriptions from the websocket api and fans accepted
// events out to the ones whose filters match.
type S struct {
	Mx sync.Mutex
	Map
}

var _ publisher.I = &S{}

// NewPublisher creates the websocket subscription publisher.
func NewPublisher() (publisher *S) { return &S{Map: make(Map)} }

func (p *S) Type() (typeName string) { return Type }

// Receive applies a subscription control message.
func (p *S) Receive(msg publisher.Message) {
	m, ok := msg.(*W)
	if !ok {
		return
	}
	if m.Cancel {
		if m.Id == "" {
			p.removeSubscriber(m.Listener)
			log.T.F("removed listener %s", m.Listener.Remote())
		} else {
			p.removeSubscriberId(m.Listener, m.Id)
			log.T.F(
				"removed subscription %s for %s", m.Id, m.Listener.Remote(),
			)
		}
		return
	}
	p.Mx.Lock()
	defer p.Mx.Unlock()
	subs, have := p.Map[m.Listener]
	if !have {
		subs = make(map[string]*sub)
		p.Map[m.Listener] = subs
	}
	subs[m.Id] = &sub{filters: m.Filters, seen: make(map[string]struct{})}
	log.T.F("added subscription %s for %s", m.Id, m.Listener.Remote())
}

// Deliver writes the event to every matching subscription, one EVENT frame
// per subscription. A listener whose write fails is dropped.
func (p *S) Deliver(ev *event.E) {
	log.T.F("delivering event %0x to subscribers", ev.Id)
	p.Mx.Lock()
	defer p.Mx.Unlock()
	var failed []*ws.Listener
	for w, subs := range p.Map {
		for id, s := range subs {
			if !s.filters.Match(ev) {
				continue
			}
			if err := eventenvelope.NewResultWith(
				id, ev,
			).Write(w); chk.E(err) {
				failed = append(failed, w)
				break
			}
			if s.seen != nil {
				s.seen[string(ev.Id)] = struct{}{}
			}
			log.T.F("dispatched event %0x to subscription %s", ev.Id, id)
		}
	}
	for _, w := range failed {
		clear(p.Map[w])
		delete(p.Map, w)
	}
}

// Delivered reports whether the event already went out live on the named
// subscription while its opening query was still streaming stored events.
func (p *S) Delivered(w *ws.Listener, id string, evId []byte) bool {
	p.Mx.Lock()
	defer p.Mx.Unlock()
	if subs, ok := p.Map[w]; ok {
		if s, ok := subs[id]; ok && s.seen != nil {
			_, dup := s.seen[string(evId)]
			return dup
		}
	}
	return false
}

// Settle ends the opening phase of a subscription, dropping its duplicate
// tracking.
func (p *S) Settle(w *ws.Listener, id string) {
	p.Mx.Lock()
	defer p.Mx.Unlock()
	if subs, ok := p.Map[w]; ok {
		if s, ok := subs[id]; ok {
			s.seen = nil
		}
	}
}

// removeSubscriberId removes one subscription from a listener.
func (p *S) removeSubscriberId(ws *ws.Listener, id string) {
	p.Mx.Lock()
	defer p.Mx.Unlock()
	if subs, ok := p.Map[ws]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(p.Map, ws)
		}
	}
}

// removeSubscriber removes a listener and all its subscriptions.
func (p *S) removeSubscriber(ws *ws.Listener) {
	p.Mx.Lock()
	defer p.Mx.Unlock()
	clear(p.Map[ws])
	delete(p.Map, ws)
}
