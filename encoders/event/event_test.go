package event

import (
	"bytes"
	"testing"

	"bramble.dev/crypto/p256k"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/tag"
	"bramble.dev/encoders/tags"
	"bramble.dev/encoders/timestamp"
)

func TestSignVerify(t *testing.T) {
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	ev, err := GenerateRandomTextNoteEvent(sign, 1024)
	if err != nil {
		t.Fatalf("failed to generate event: %v", err)
	}
	valid, err := ev.Verify()
	if err != nil {
		t.Fatalf("verify errored: %v", err)
	}
	if !valid {
		t.Fatal("freshly signed event does not verify")
	}
	// a tampered event must fail because the id no longer matches
	ev.Content = append(ev.Content, ' ')
	valid, err = ev.Verify()
	if err != nil {
		t.Fatalf("verify errored on tampered event: %v", err)
	}
	if valid {
		t.Fatal("tampered event verified")
	}
}

func TestCanonicalID(t *testing.T) {
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := &E{
		Pubkey:    sign.Pub(),
		CreatedAt: timestamp.FromUnix(1700000000),
		Kind:      kind.TextNote,
		Tags:      tags.New(tag.New("t", "nostr")),
		Content:   []byte("hello"),
	}
	canonical := ev.ToCanonical(nil)
	expected := `[0,"` + ev.PubKeyString() +
		`",1700000000,1,[["t","nostr"]],"hello"]`
	if string(canonical) != expected {
		t.Fatalf(
			"canonical form mismatch:\ngot  %s\nwant %s", canonical, expected,
		)
	}
	if !bytes.Equal(ev.GetIDBytes(), Hash(canonical)) {
		t.Fatal("id is not the hash of the canonical form")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := &E{
		Pubkey:    sign.Pub(),
		CreatedAt: timestamp.Now(),
		Kind:      kind.TextNote,
		Tags: tags.New(
			tag.New("e", "0000000000000000000000000000000000000000000000000000000000000000"),
			tag.New("t", `with "quotes" and \backslashes\`),
		),
		Content: []byte("line one\nline two\t\"quoted\""),
	}
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	b := ev.Serialize()
	ev2 := New()
	rem, err := ev2.Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal failed: %v\n%s", err, b)
	}
	if len(rem) > 0 {
		t.Fatalf("unmarshal left remainder %s", rem)
	}
	if !bytes.Equal(ev.Id, ev2.Id) ||
		!bytes.Equal(ev.Pubkey, ev2.Pubkey) ||
		!bytes.Equal(ev.Sig, ev2.Sig) ||
		!bytes.Equal(ev.Content, ev2.Content) ||
		ev.CreatedAt.I64() != ev2.CreatedAt.I64() ||
		ev.Kind.K != ev2.Kind.K {
		t.Fatalf("round trip mismatch:\n%s\n%s", b, ev2.Serialize())
	}
	if !bytes.Equal(ev.Tags.Marshal(nil), ev2.Tags.Marshal(nil)) {
		t.Fatalf(
			"tags mismatch: %s != %s", ev.Tags.Marshal(nil),
			ev2.Tags.Marshal(nil),
		)
	}
	valid, err := ev2.Verify()
	if err != nil || !valid {
		t.Fatalf("round tripped event does not verify: %v", err)
	}
}

func TestJSONWhitespaceTolerance(t *testing.T) {
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := &E{
		Pubkey:    sign.Pub(),
		CreatedAt: timestamp.FromUnix(1700000000),
		Kind:      kind.TextNote,
		Tags:      tags.New(),
		Content:   []byte("plain"),
	}
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	// re-emit with whitespace sprinkled between tokens; the content has no
	// structural characters so this only touches the JSON syntax
	b := ev.Serialize()
	var spaced []byte
	for _, c := range b {
		spaced = append(spaced, c)
		if c == ',' || c == ':' || c == '{' {
			spaced = append(spaced, ' ', '\n')
		}
	}
	ev2 := New()
	if _, err := ev2.Unmarshal(spaced); err != nil {
		t.Fatalf("whitespace tolerant parse failed: %v\n%s", err, spaced)
	}
	if !bytes.Equal(ev.Id, ev2.Id) {
		t.Fatal("id mismatch after whitespace tolerant parse")
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev, err := GenerateRandomReplaceableEvent(
		sign, kind.New(30023), "binary-test",
	)
	if err != nil {
		t.Fatal(err)
	}
	b := ev.MarshalBinary(nil)
	ev2 := New()
	if err = ev2.UnmarshalBinary(b); err != nil {
		t.Fatalf("binary unmarshal failed: %v", err)
	}
	if !bytes.Equal(ev.Serialize(), ev2.Serialize()) {
		t.Fatalf(
			"binary round trip mismatch:\n%s\n%s", ev.Serialize(),
			ev2.Serialize(),
		)
	}
}

func TestAddress(t *testing.T) {
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev, err := GenerateRandomReplaceableEvent(sign, kind.New(30000), "alpha")
	if err != nil {
		t.Fatal(err)
	}
	addr := ev.Address()
	expected := "30000:" + ev.PubKeyString() + ":alpha"
	if string(addr) != expected {
		t.Fatalf("address mismatch: %s != %s", addr, expected)
	}
	regular, err := GenerateRandomTextNoteEvent(sign, 64)
	if err != nil {
		t.Fatal(err)
	}
	if regular.Address() != nil {
		t.Fatal("regular event must have no address")
	}
}
