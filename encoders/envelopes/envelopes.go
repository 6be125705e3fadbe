// Package envelopes has the common part of the wire codec: every message is
// a JSON array whose first element is a label string.
package envelopes

import (
	"bramble.dev/utils/errorf"
)

// Marshal wraps the output of fn in `["<label>",` ... `]`.
func Marshal(
	dst []byte, label string, fn func(dst []byte) []byte,
) (b []byte) {
	b = dst
	b = append(b, '[', '"')
	b = append(b, label...)
	b = append(b, '"', ',')
	b = fn(b)
	b = append(b, ']')
	return
}

// Identify reads the label off the front of an envelope and returns it with
// the remainder positioned at the start of the first payload element.
func Identify(b []byte) (label string, rem []byte, err error) {
	rem = b
	for len(rem) > 0 && isWS(rem[0]) {
		rem = rem[1:]
	}
	if len(rem) == 0 || rem[0] != '[' {
		err = errorf.E("envelope does not begin with '[': '%s'", trunc(b))
		return
	}
	rem = rem[1:]
	for len(rem) > 0 && isWS(rem[0]) {
		rem = rem[1:]
	}
	if len(rem) == 0 || rem[0] != '"' {
		err = errorf.E("envelope label is not a string: '%s'", trunc(b))
		return
	}
	rem = rem[1:]
	var lab []byte
	for ; len(rem) > 0; rem = rem[1:] {
		if rem[0] == '"' {
			rem = rem[1:]
			goto afterLabel
		}
		lab = append(lab, rem[0])
	}
	err = errorf.E("unterminated envelope label: '%s'", trunc(b))
	return
afterLabel:
	for len(rem) > 0 && isWS(rem[0]) {
		rem = rem[1:]
	}
	if len(rem) == 0 || rem[0] != ',' {
		err = errorf.E("envelope has no payload: '%s'", trunc(b))
		return
	}
	rem = rem[1:]
	for len(rem) > 0 && isWS(rem[0]) {
		rem = rem[1:]
	}
	label = string(lab)
	return
}

func isWS(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func trunc(b []byte) (s string) {
	if len(b) > 256 {
		b = b[:256]
	}
	return string(b)
}
