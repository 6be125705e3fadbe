// Package filter implements the query form of nostr: a set of match
// dimensions that AND together, each dimension being a list of accepted
// values that OR together.
package filter

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/minio/sha256-simd"
	"lukechampine.com/frand"

	"bramble.dev/encoders/hex"
	"bramble.dev/encoders/ints"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/kinds"
	"bramble.dev/encoders/tag"
	"bramble.dev/encoders/tags"
	"bramble.dev/encoders/text"
	"bramble.dev/encoders/timestamp"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/errorf"

	"bramble.dev/encoders/event"
)

// F is one query form. Ids and Authors hold lowercase hex text, possibly
// shorter than 64 characters, in which case they match as prefixes. Tags
// holds one entry per `#x` key, the entry's first field being the `#x` key
// itself and the rest the accepted values.
type F struct {
	Ids     *tag.T
	Kinds   *kinds.T
	Authors *tag.T
	Tags    *tags.T
	Since   *timestamp.T
	Until   *timestamp.T
	Limit   *uint
}

// New creates an initialized filter ready for most uses.
func New() (f *F) {
	return &F{
		Ids:     tag.NewWithCap(8),
		Kinds:   kinds.NewWithCap(8),
		Authors: tag.NewWithCap(8),
		Tags:    tags.New(),
	}
}

// Clone copies a filter.
func (f *F) Clone() (clone *F) {
	clone = &F{}
	if f.Ids != nil {
		clone.Ids = f.Ids.Clone()
	}
	if f.Kinds != nil {
		ks := kinds.NewWithCap(f.Kinds.Len())
		for _, k := range f.Kinds.K {
			ks.Append(kind.New(k.K))
		}
		clone.Kinds = ks
	}
	if f.Authors != nil {
		clone.Authors = f.Authors.Clone()
	}
	if f.Tags != nil {
		clone.Tags = f.Tags.Clone()
	}
	if f.Since != nil {
		clone.Since = timestamp.FromUnix(f.Since.I64())
	}
	if f.Until != nil {
		clone.Until = timestamp.FromUnix(f.Until.I64())
	}
	if f.Limit != nil {
		l := *f.Limit
		clone.Limit = &l
	}
	return
}

var (
	jIds     = []byte("ids")
	jKinds   = []byte("kinds")
	jAuthors = []byte("authors")
	jSince   = []byte("since")
	jUntil   = []byte("until")
	jLimit   = []byte("limit")
)

// Marshal renders a filter into minified JSON, in a canonical field order so
// the same set of fields always produces the same bytes.
func (f *F) Marshal(dst []byte) (b []byte) {
	var first bool
	f.Sort()
	dst = append(dst, '{')
	if f.Ids.Len() > 0 {
		first = true
		dst = text.JSONKey(dst, jIds)
		dst = text.MarshalStringArray(dst, f.Ids.ToSliceOfBytes())
	}
	if f.Kinds.Len() > 0 {
		if first {
			dst = append(dst, ',')
		} else {
			first = true
		}
		dst = text.JSONKey(dst, jKinds)
		dst = f.Kinds.Marshal(dst)
	}
	if f.Authors.Len() > 0 {
		if first {
			dst = append(dst, ',')
		} else {
			first = true
		}
		dst = text.JSONKey(dst, jAuthors)
		dst = text.MarshalStringArray(dst, f.Authors.ToSliceOfBytes())
	}
	for _, tg := range f.Tags.ToSliceOfTags() {
		if tg.Len() < 2 {
			continue
		}
		key := tg.Key()
		if len(key) != 2 || key[0] != '#' {
			continue
		}
		if first {
			dst = append(dst, ',')
		} else {
			first = true
		}
		dst = append(dst, '"', key[0], key[1], '"', ':')
		dst = text.MarshalStringArray(dst, tg.ToSliceOfBytes()[1:])
	}
	if f.Since != nil && f.Since.U64() > 0 {
		if first {
			dst = append(dst, ',')
		} else {
			first = true
		}
		dst = text.JSONKey(dst, jSince)
		dst = f.Since.Marshal(dst)
	}
	if f.Until != nil && f.Until.U64() > 0 {
		if first {
			dst = append(dst, ',')
		} else {
			first = true
		}
		dst = text.JSONKey(dst, jUntil)
		dst = f.Until.Marshal(dst)
	}
	if f.Limit != nil {
		if first {
			dst = append(dst, ',')
		}
		dst = text.JSONKey(dst, jLimit)
		dst = ints.New(*f.Limit).Marshal(dst)
	}
	dst = append(dst, '}')
	b = dst
	return
}

// Serialize renders a filter into minified JSON.
func (f *F) Serialize() (b []byte) { return f.Marshal(nil) }

// unmarshaler states
const (
	beforeOpen = iota
	openParen
	inKey
	inKV
	inVal
	betweenKV
)

// Unmarshal reads a filter from the front of b, returning the remainder.
func (f *F) Unmarshal(b []byte) (r []byte, err error) {
	r = b
	if f.Tags == nil {
		f.Tags = tags.New()
	}
	var key []byte
	var state int
	for len(r) > 0 {
		switch state {
		case beforeOpen:
			if r[0] == '{' {
				state = openParen
			}
			r = r[1:]
		case openParen:
			if r[0] == '}' {
				r = r[1:]
				return
			}
			if r[0] == '"' {
				state = inKey
			}
			r = r[1:]
		case inKey:
			if r[0] == '"' {
				state = inKV
			} else {
				key = append(key, r[0])
			}
			r = r[1:]
		case inKV:
			if r[0] == ':' {
				state = inVal
			}
			r = r[1:]
		case inVal:
			if isWhitespace(r[0]) {
				r = r[1:]
				continue
			}
			if len(key) < 1 {
				err = errorf.E("filter key zero length: '%s'", b)
				return
			}
			switch key[0] {
			case '#':
				if len(key) != 2 {
					err = errorf.E(
						"filter tag key must be # and one character: '%s'",
						key,
					)
					return
				}
				k := make([]byte, len(key))
				copy(k, key)
				var vals [][]byte
				if vals, r, err = text.UnmarshalStringArray(r); chk.E(err) {
					return
				}
				vals = append([][]byte{k}, vals...)
				f.Tags = f.Tags.AppendTags(tag.FromBytesSlice(vals...))
			case jIds[0]:
				if !bytes.Equal(key, jIds) {
					goto invalid
				}
				var vals [][]byte
				if vals, r, err = text.UnmarshalStringArray(r); chk.E(err) {
					return
				}
				for _, v := range vals {
					if err = validateHexPrefix(v); chk.E(err) {
						return
					}
				}
				f.Ids = tag.FromBytesSlice(vals...)
			case jKinds[0]:
				if !bytes.Equal(key, jKinds) {
					goto invalid
				}
				f.Kinds = kinds.NewWithCap(0)
				if r, err = f.Kinds.Unmarshal(r); chk.E(err) {
					return
				}
			case jAuthors[0]:
				if !bytes.Equal(key, jAuthors) {
					goto invalid
				}
				var vals [][]byte
				if vals, r, err = text.UnmarshalStringArray(r); chk.E(err) {
					return
				}
				for _, v := range vals {
					if err = validateHexPrefix(v); chk.E(err) {
						return
					}
				}
				f.Authors = tag.FromBytesSlice(vals...)
			case jUntil[0]:
				if !bytes.Equal(key, jUntil) {
					goto invalid
				}
				u := ints.New(0)
				if r, err = u.Unmarshal(r); chk.E(err) {
					return
				}
				f.Until = timestamp.FromUnix(int64(u.N))
			case jSince[0]:
				if !bytes.Equal(key, jSince) {
					goto invalid
				}
				s := ints.New(0)
				if r, err = s.Unmarshal(r); chk.E(err) {
					return
				}
				f.Since = timestamp.FromUnix(int64(s.N))
			case jLimit[0]:
				if !bytes.Equal(key, jLimit) {
					goto invalid
				}
				l := ints.New(0)
				if r, err = l.Unmarshal(r); chk.E(err) {
					return
				}
				u := uint(l.N)
				f.Limit = &u
			default:
				goto invalid
			}
			key = key[:0]
			state = betweenKV
		case betweenKV:
			if r[0] == '}' {
				r = r[1:]
				return
			}
			if r[0] == ',' {
				state = openParen
			} else if r[0] == '"' {
				state = inKey
			}
			r = r[1:]
		}
	}
	err = errorf.E("unterminated filter: '%s'", b)
	return
invalid:
	err = errorf.E("invalid filter key '%s' in '%s'", key, b)
	return
}

// validateHexPrefix requires lowercase hex text, an even number of
// characters, at most a full 32 byte hash.
func validateHexPrefix(v []byte) (err error) {
	if len(v) == 0 || len(v) > 2*sha256.Size || len(v)%2 != 0 {
		return errorf.E("invalid hex prefix length %d: '%s'", len(v), v)
	}
	for _, c := range v {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return errorf.E("invalid hex character %c in '%s'", c, v)
		}
	}
	return
}

// Matches checks an event against the filter. All present dimensions must
// match; ids and authors match by prefix.
func (f *F) Matches(ev *event.E) bool {
	if ev == nil {
		return false
	}
	if f.Ids.Len() > 0 && !f.Ids.ContainsPrefix(hex.EncAppend(nil, ev.Id)) {
		return false
	}
	if f.Kinds.Len() > 0 && !f.Kinds.Contains(ev.Kind) {
		return false
	}
	if f.Authors.Len() > 0 &&
		!f.Authors.ContainsPrefix(hex.EncAppend(nil, ev.Pubkey)) {
		return false
	}
	if f.Tags.Len() > 0 && !ev.Tags.Intersects(f.Tags) {
		return false
	}
	if f.Since.I64() != 0 && ev.CreatedAt.I64() < f.Since.I64() {
		return false
	}
	if f.Until.I64() != 0 && ev.CreatedAt.I64() > f.Until.I64() {
		return false
	}
	return true
}

// Sort canonicalizes the field lists so Fingerprint is stable across
// equivalent filters.
func (f *F) Sort() {
	if f.Ids != nil {
		sort.Sort(f.Ids)
	}
	if f.Kinds != nil {
		sort.Sort(f.Kinds)
	}
	if f.Authors != nil {
		sort.Sort(f.Authors)
	}
}

// Fingerprint returns a truncated sha256 of the canonical marshal with the
// Limit removed, identifying equivalent filters for deduplication.
func (f *F) Fingerprint() (fp uint64) {
	lim := f.Limit
	f.Limit = nil
	b := f.Marshal(nil)
	f.Limit = lim
	h := sha256.Sum256(b)
	return binary.LittleEndian.Uint64(h[:8])
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Equal checks whether two filters select the same events, ignoring Limit.
func (f *F) Equal(other *F) bool {
	return f.Fingerprint() == other.Fingerprint()
}

// GenFilter creates a random filter for tests.
func GenFilter() (f *F) {
	f = New()
	for i := frand.Intn(4); i >= 0; i-- {
		f.Kinds.Append(kind.New(frand.Intn(40000)))
	}
	for i := frand.Intn(3); i >= 0; i-- {
		f.Authors.Append(hex.EncAppend(nil, frand.Bytes(32)))
	}
	if frand.Intn(2) == 0 {
		lim := uint(frand.Intn(64) + 1)
		f.Limit = &lim
	}
	return
}
