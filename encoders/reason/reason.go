// Package reason builds the machine readable prefixed messages that go in OK
// and CLOSED envelopes.
package reason

import (
	"fmt"
)

// The machine readable prefixes defined for OK and CLOSED messages.
var (
	AuthRequired = []byte("auth-required")
	PoW          = []byte("pow")
	Duplicate    = []byte("duplicate")
	Blocked      = []byte("blocked")
	RateLimited  = []byte("rate-limited")
	Invalid      = []byte("invalid")
	Error        = []byte("error")
	Unsupported  = []byte("unsupported")
	Restricted   = []byte("restricted")
)

// Msg composes a message with a machine readable prefix, eg
//
//	reason.Msg(reason.Invalid, "bad signature %0x", sig)
func Msg(prefix []byte, format string, params ...any) (b []byte) {
	b = append(b, prefix...)
	b = append(b, ':', ' ')
	if len(params) > 0 {
		format = fmt.Sprintf(format, params...)
	}
	b = append(b, format...)
	return
}
