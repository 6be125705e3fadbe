// Package typer is an interface for self-registered publishers to identify
// their message types, so the top level can route a message to the matching
// handler.
package typer

type T interface {
	// Type returns a type identifier string.
	Type() string
}
