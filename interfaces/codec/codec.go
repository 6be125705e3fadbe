// Package codec has the envelope contract shared by all wire message types.
package codec

import (
	"io"
)

// Envelope is one wire message: a JSON array whose first element is the
// label.
type Envelope interface {
	Label() string
	Write(w io.Writer) (err error)
	Marshal(dst []byte) (b []byte)
	Unmarshal(b []byte) (r []byte, err error)
}
