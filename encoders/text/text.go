// Package text implements the NIP-01 JSON string escaping rules and the
// low-level helpers shared by the hand-rolled codecs: keys, quoted strings,
// and arrays of quoted strings or hex values.
//
// The escaping is deliberately not encoding/json: nostr requires forward
// slashes and non-ASCII to pass through unescaped so that the canonical form
// hashes identically everywhere.
package text

import (
	"unicode/utf8"

	"bramble.dev/encoders/hex"
	"bramble.dev/utils/errorf"
)

// JSONKey appends `"key":` to dst.
func JSONKey(dst, key []byte) (b []byte) {
	b = dst
	b = append(b, '"')
	b = append(b, key...)
	b = append(b, '"', ':')
	return
}

// AppendQuote appends src to dst surrounded by double quotes, transformed by
// enc (for example NostrEscape or hex.EncAppend).
func AppendQuote(dst, src []byte, enc func(dst, src []byte) []byte) (b []byte) {
	b = dst
	b = append(b, '"')
	b = enc(b, src)
	b = append(b, '"')
	return
}

// NostrEscape appends src to dst with the escapes NIP-01 requires: quote,
// backslash, and the control characters. Everything else, including forward
// slash and non-ASCII, passes through verbatim.
func NostrEscape(dst, src []byte) (b []byte) {
	b = dst
	for _, c := range src {
		switch {
		case c == '"':
			b = append(b, '\\', '"')
		case c == '\\':
			b = append(b, '\\', '\\')
		case c == '\n':
			b = append(b, '\\', 'n')
		case c == '\r':
			b = append(b, '\\', 'r')
		case c == '\t':
			b = append(b, '\\', 't')
		case c == '\b':
			b = append(b, '\\', 'b')
		case c == '\f':
			b = append(b, '\\', 'f')
		case c < 0x20:
			b = append(b, '\\', 'u', '0', '0',
				hexDigit(c>>4), hexDigit(c&0xf))
		default:
			b = append(b, c)
		}
	}
	return
}

func hexDigit(c byte) byte {
	if c < 10 {
		return '0' + c
	}
	return 'a' + c - 10
}

func unhexDigit(c byte) (v byte, ok bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return
}

// UnmarshalQuoted reads a double-quoted, escaped string from the front of b,
// returning the unescaped content and the remainder after the closing quote.
func UnmarshalQuoted(b []byte) (content, r []byte, err error) {
	r = b
	for len(r) > 0 && (r[0] == ' ' || r[0] == '\t' || r[0] == '\n' || r[0] == '\r') {
		r = r[1:]
	}
	if len(r) == 0 || r[0] != '"' {
		err = errorf.D("expected quoted string at '%s'", b)
		return
	}
	r = r[1:]
	for len(r) > 0 {
		switch r[0] {
		case '"':
			r = r[1:]
			return
		case '\\':
			if len(r) < 2 {
				err = errorf.D("truncated escape")
				return
			}
			switch r[1] {
			case '"', '\\', '/':
				content = append(content, r[1])
				r = r[2:]
			case 'n':
				content = append(content, '\n')
				r = r[2:]
			case 'r':
				content = append(content, '\r')
				r = r[2:]
			case 't':
				content = append(content, '\t')
				r = r[2:]
			case 'b':
				content = append(content, '\b')
				r = r[2:]
			case 'f':
				content = append(content, '\f')
				r = r[2:]
			case 'u':
				if len(r) < 6 {
					err = errorf.D("truncated \\u escape")
					return
				}
				var cp rune
				for _, c := range r[2:6] {
					v, ok := unhexDigit(c)
					if !ok {
						err = errorf.D("bad \\u escape '%s'", r[:6])
						return
					}
					cp = cp<<4 | rune(v)
				}
				var enc [4]byte
				n := utf8.EncodeRune(enc[:], cp)
				content = append(content, enc[:n]...)
				r = r[6:]
			default:
				err = errorf.D("unknown escape '\\%c'", r[1])
				return
			}
		default:
			content = append(content, r[0])
			r = r[1:]
		}
	}
	err = errorf.D("unterminated string")
	return
}

// UnmarshalHex reads a quoted hex string from the front of b and decodes it
// to binary.
func UnmarshalHex(b []byte) (decoded, r []byte, err error) {
	var content []byte
	if content, r, err = UnmarshalQuoted(b); err != nil {
		return
	}
	decoded, err = hex.DecAppend(nil, content)
	return
}

// UnmarshalHexArray reads a JSON array of quoted hex strings, each decoding
// to exactly size bytes.
func UnmarshalHexArray(b []byte, size int) (vals [][]byte, r []byte, err error) {
	if vals, r, err = UnmarshalStringArray(b); err != nil {
		return
	}
	decoded := make([][]byte, 0, len(vals))
	for _, v := range vals {
		var d []byte
		if d, err = hex.DecAppend(nil, v); err != nil {
			return
		}
		if len(d) != size {
			err = errorf.D("hex element length %d, require %d", len(d), size)
			return
		}
		decoded = append(decoded, d)
	}
	vals = decoded
	return
}

// UnmarshalStringArray reads a JSON array of quoted strings from the front of
// b, returning the unescaped elements and the remainder after the closing
// bracket.
func UnmarshalStringArray(b []byte) (vals [][]byte, r []byte, err error) {
	r = b
	for len(r) > 0 && (r[0] == ' ' || r[0] == '\t' || r[0] == '\n' || r[0] == '\r') {
		r = r[1:]
	}
	if len(r) == 0 || r[0] != '[' {
		err = errorf.D("expected array at '%s'", b)
		return
	}
	r = r[1:]
	for {
		for len(r) > 0 && (r[0] == ' ' || r[0] == '\t' || r[0] == '\n' || r[0] == '\r' || r[0] == ',') {
			r = r[1:]
		}
		if len(r) == 0 {
			err = errorf.D("unterminated array")
			return
		}
		if r[0] == ']' {
			r = r[1:]
			return
		}
		var v []byte
		if v, r, err = UnmarshalQuoted(r); err != nil {
			return
		}
		vals = append(vals, v)
	}
}

// MarshalHexArray appends a JSON array of hex-encoded values to dst.
func MarshalHexArray(dst []byte, vals [][]byte) (b []byte) {
	b = dst
	b = append(b, '[')
	for i, v := range vals {
		if i > 0 {
			b = append(b, ',')
		}
		b = AppendQuote(b, v, hex.EncAppend)
	}
	b = append(b, ']')
	return
}

// MarshalStringArray appends a JSON array of escaped strings to dst.
func MarshalStringArray(dst []byte, vals [][]byte) (b []byte) {
	b = dst
	b = append(b, '[')
	for i, v := range vals {
		if i > 0 {
			b = append(b, ',')
		}
		b = AppendQuote(b, v, NostrEscape)
	}
	b = append(b, ']')
	return
}
