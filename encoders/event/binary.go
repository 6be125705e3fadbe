package event

import (
	"bytes"
	"io"

	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/tag"
	"bramble.dev/encoders/tags"
	"bramble.dev/encoders/timestamp"
	"bramble.dev/encoders/varint"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/errorf"
)

// WriteBinary writes the compact storage form of the event: fixed length
// Id, Pubkey and Sig, varint created_at and kind, then length prefixed tags
// and content.
func (ev *E) WriteBinary(w io.Writer) {
	w.Write(ev.Id)
	w.Write(ev.Pubkey)
	varint.Encode(w, ev.CreatedAt.U64())
	varint.Encode(w, uint64(ev.Kind.K))
	varint.Encode(w, uint64(ev.Tags.Len()))
	for _, t := range ev.Tags.ToSliceOfTags() {
		varint.Encode(w, uint64(t.Len()))
		for _, f := range t.ToSliceOfBytes() {
			varint.Encode(w, uint64(len(f)))
			w.Write(f)
		}
	}
	varint.Encode(w, uint64(len(ev.Content)))
	w.Write(ev.Content)
	w.Write(ev.Sig)
}

// MarshalBinary appends the compact storage form of the event to dst.
func (ev *E) MarshalBinary(dst []byte) (b []byte) {
	buf := &appendWriter{dst}
	ev.WriteBinary(buf)
	return buf.b
}

type appendWriter struct{ b []byte }

func (w *appendWriter) Write(p []byte) (n int, err error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

// ReadBinary reads the compact storage form of an event.
func (ev *E) ReadBinary(r io.Reader) (err error) {
	ev.Id = make([]byte, 32)
	if _, err = io.ReadFull(r, ev.Id); chk.E(err) {
		return
	}
	ev.Pubkey = make([]byte, 32)
	if _, err = io.ReadFull(r, ev.Pubkey); chk.E(err) {
		return
	}
	var n uint64
	if n, err = varint.Decode(r); chk.E(err) {
		return
	}
	ev.CreatedAt = timestamp.New(int64(n))
	if n, err = varint.Decode(r); chk.E(err) {
		return
	}
	if n > 65535 {
		err = errorf.E("kind %d out of range", n)
		return
	}
	ev.Kind = kind.New(uint16(n))
	var nTags uint64
	if nTags, err = varint.Decode(r); chk.E(err) {
		return
	}
	ev.Tags = tags.NewWithCap(int(nTags))
	for i := uint64(0); i < nTags; i++ {
		var nFields uint64
		if nFields, err = varint.Decode(r); chk.E(err) {
			return
		}
		t := tag.NewWithCap(int(nFields))
		for j := uint64(0); j < nFields; j++ {
			var fl uint64
			if fl, err = varint.Decode(r); chk.E(err) {
				return
			}
			f := make([]byte, fl)
			if _, err = io.ReadFull(r, f); chk.E(err) {
				return
			}
			t.Append(f)
		}
		ev.Tags.AppendTags(t)
	}
	if n, err = varint.Decode(r); chk.E(err) {
		return
	}
	ev.Content = make([]byte, n)
	if _, err = io.ReadFull(r, ev.Content); chk.E(err) {
		return
	}
	ev.Sig = make([]byte, 64)
	if _, err = io.ReadFull(r, ev.Sig); chk.E(err) {
		return
	}
	return
}

// UnmarshalBinary decodes the compact storage form of an event from b.
func (ev *E) UnmarshalBinary(b []byte) (err error) {
	return ev.ReadBinary(bytes.NewReader(b))
}
