// Package store defines the event store contract. The badger implementation
// in the database package is the only one shipped, but the socket API and
// server only speak through this interface.
package store

import (
	"errors"
	"io"

	"bramble.dev/encoders/event"
	"bramble.dev/encoders/filter"
	"bramble.dev/utils/context"
)

// ErrDupEvent signals the event id is already stored. Callers turn this
// into an OK true with a "duplicate:" reason rather than an error.
var ErrDupEvent = errors.New("duplicate: already have this event")

// I is an event store.
type I interface {
	// Init opens the store's files, creating them if necessary.
	Init() (err error)

	// Path returns the directory the store keeps its files in.
	Path() (s string)

	io.Closer

	// Wipe deletes all data in the store.
	Wipe() (err error)

	// SaveEvent persists an event. Returns ErrDupEvent if the id is
	// already present.
	SaveEvent(c context.T, ev *event.E) (err error)

	// QueryEvents returns events matching the filter, newest first,
	// honoring the filter limit.
	QueryEvents(c context.T, f *filter.F) (evs event.S, err error)

	// CountEvents returns the number of stored events matching the filter.
	CountEvents(c context.T, f *filter.F) (count int, err error)

	// DeleteEvent removes the event with the given id and its indexes.
	DeleteEvent(c context.T, id []byte) (err error)

	// ReplaceEvent stores a replaceable or addressable event, removing
	// any older event at the same address. If a newer event already
	// occupies the address the new event is dropped and replaced is
	// false.
	ReplaceEvent(c context.T, ev *event.E) (replaced bool, err error)

	// Import reads line delimited JSON events from r and stores them.
	Import(r io.Reader)

	// Export writes all stored events as line delimited JSON to w.
	Export(c context.T, w io.Writer)

	// Sync flushes the store to disk.
	Sync() (err error)

	// SetLogLevel adjusts the store's logging verbosity.
	SetLogLevel(level string)
}
