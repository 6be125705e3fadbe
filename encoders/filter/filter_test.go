package filter

import (
	"bytes"
	"testing"

	"bramble.dev/crypto/p256k"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/kinds"
	"bramble.dev/encoders/tag"
	"bramble.dev/encoders/tags"
	"bramble.dev/encoders/timestamp"
)

func signedEvent(t *testing.T) (*event.E, *p256k.Signer) {
	t.Helper()
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := &event.E{
		Pubkey:    sign.Pub(),
		CreatedAt: timestamp.FromUnix(1700000000),
		Kind:      kind.TextNote,
		Tags:      tags.New(tag.New("t", "nostr")),
		Content:   []byte("hello"),
	}
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	return ev, sign
}

func TestMatches(t *testing.T) {
	ev, _ := signedEvent(t)
	idHex := ev.IdString()
	pkHex := ev.PubKeyString()

	f := New()
	f.Ids = f.Ids.Append([]byte(idHex))
	if !f.Matches(ev) {
		t.Fatal("full id must match")
	}

	f = New()
	f.Ids = f.Ids.Append([]byte(idHex[:8]))
	if !f.Matches(ev) {
		t.Fatal("id prefix must match")
	}

	f = New()
	f.Ids = f.Ids.Append([]byte("ffffffff"))
	if string(idHex[:8]) != "ffffffff" && f.Matches(ev) {
		t.Fatal("wrong id prefix must not match")
	}

	f = New()
	f.Authors = f.Authors.Append([]byte(pkHex[:12]))
	f.Kinds.Append(kind.TextNote)
	if !f.Matches(ev) {
		t.Fatal("author prefix and kind must match")
	}

	f = New()
	f.Kinds.Append(kind.New(7))
	if f.Matches(ev) {
		t.Fatal("wrong kind must not match")
	}

	f = New()
	f.Tags.AppendTags(tag.New("#t", "nostr", "other"))
	if !f.Matches(ev) {
		t.Fatal("tag value must match")
	}

	f = New()
	f.Tags.AppendTags(tag.New("#t", "missing"))
	if f.Matches(ev) {
		t.Fatal("absent tag value must not match")
	}

	f = New()
	f.Since = timestamp.FromUnix(1700000001)
	if f.Matches(ev) {
		t.Fatal("event older than since must not match")
	}
	f.Since = timestamp.FromUnix(1700000000)
	if !f.Matches(ev) {
		t.Fatal("since is inclusive")
	}

	f = New()
	f.Until = timestamp.FromUnix(1699999999)
	if f.Matches(ev) {
		t.Fatal("event newer than until must not match")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	f := New()
	f.Ids = f.Ids.Append([]byte("abcd12"))
	f.Authors = f.Authors.Append(
		[]byte("deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"),
	)
	f.Kinds = kinds.New(kind.New(1), kind.New(30023))
	f.Tags.AppendTags(tag.New("#e", "aabbcc"), tag.New("#p", "001122"))
	f.Since = timestamp.FromUnix(1600000000)
	f.Until = timestamp.FromUnix(1700000000)
	lim := uint(10)
	f.Limit = &lim

	b := f.Marshal(nil)
	f2 := New()
	rem, err := f2.Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal failed: %v\n%s", err, b)
	}
	if len(rem) > 0 {
		t.Fatalf("unmarshal left remainder %s", rem)
	}
	if !bytes.Equal(b, f2.Marshal(nil)) {
		t.Fatalf(
			"round trip mismatch:\n%s\n%s", b, f2.Marshal(nil),
		)
	}
}

func TestUnmarshalWhitespaceTolerance(t *testing.T) {
	raw := []byte(
		"{ \"kinds\": [1, 7],\n\t\"authors\": [\"deadbeef\"],\n" +
			"  \"limit\": 5 }",
	)
	f := New()
	if _, err := f.Unmarshal(raw); err != nil {
		t.Fatalf("whitespace-padded filter rejected: %v\n%s", err, raw)
	}
	if f.Kinds.Len() != 2 {
		t.Fatalf("kinds lost: %d", f.Kinds.Len())
	}
	if f.Limit == nil || *f.Limit != 5 {
		t.Fatal("limit lost")
	}
}

func TestUnmarshalRejectsBadPrefixes(t *testing.T) {
	for _, raw := range []string{
		`{"ids":["xyz"]}`,         // not hex
		`{"ids":["abc"]}`,         // odd length
		`{"authors":["ABCD"]}`,    // uppercase
		`{"ids":[""]}`,            // empty
	} {
		f := New()
		if _, err := f.Unmarshal([]byte(raw)); err == nil {
			t.Fatalf("expected rejection of %s", raw)
		}
	}
}

func TestFingerprintIgnoresLimit(t *testing.T) {
	f := New()
	f.Kinds.Append(kind.New(1))
	a := f.Fingerprint()
	lim := uint(5)
	f.Limit = &lim
	if f.Fingerprint() != a {
		t.Fatal("limit must not change the fingerprint")
	}
	f.Kinds.Append(kind.New(2))
	if f.Fingerprint() == a {
		t.Fatal("different filters must not share a fingerprint")
	}
}
