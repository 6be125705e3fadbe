// Package publish is the top level registry of publishers. Each transport
// (the websocket API being the one shipped) registers itself here, and the
// server hands accepted events to this one place for fan-out.
package publish

import (
	"bramble.dev/encoders/event"
	"bramble.dev/interfaces/publisher"
)

// S is the control structure for the subscription management scheme.
type S struct {
	publisher.Publishers
}

var _ publisher.I = &S{}

// New creates a publish.S from the given publishers.
func New(p ...publisher.I) (s *S) { return &S{Publishers: p} }

func (s *S) Type() string { return "publish" }

// Deliver fans an accepted event out to every registered publisher.
func (s *S) Deliver(ev *event.E) {
	for _, p := range s.Publishers {
		p.Deliver(ev)
	}
}

// Find returns the registered publisher with the given type name, nil when
// none matches.
func (s *S) Find(typeName string) publisher.I {
	for _, p := range s.Publishers {
		if p.Type() == typeName {
			return p
		}
	}
	return nil
}

// Receive routes a control message to the publisher with the matching type.
func (s *S) Receive(msg publisher.Message) {
	t := msg.Type()
	for _, p := range s.Publishers {
		if p.Type() == t {
			p.Receive(msg)
			return
		}
	}
}
