// Package publisher defines the fan-out contract: something that receives
// subscription control messages and delivers accepted events to matching
// live subscriptions.
package publisher

import (
	"bramble.dev/encoders/event"
	"bramble.dev/interfaces/typer"
)

// Message is a typed control message for a publisher.
type Message interface {
	typer.T
}

// I is a publisher.
type I interface {
	Message
	// Deliver fans an accepted event out to matching subscriptions.
	Deliver(ev *event.E)
	// Receive accepts a subscription control message.
	Receive(msg Message)
}

// Publishers is a list of registered publishers.
type Publishers []I
