package database

import (
	"bytes"
	"testing"

	"bramble.dev/crypto/p256k"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/filter"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/tag"
	"bramble.dev/encoders/tags"
	"bramble.dev/encoders/timestamp"
)

func addressableAt(
	t *testing.T, sign *p256k.Signer, ts int64, dTag, content string,
) *event.E {
	t.Helper()
	ev := &event.E{
		Pubkey:    sign.Pub(),
		CreatedAt: timestamp.FromUnix(ts),
		Kind:      kind.New(30023),
		Tags:      tags.New(tag.New("d", dTag)),
		Content:   []byte(content),
	}
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	return ev
}

func metadataAt(
	t *testing.T, sign *p256k.Signer, ts int64, content string,
) *event.E {
	t.Helper()
	ev := &event.E{
		Pubkey:    sign.Pub(),
		CreatedAt: timestamp.FromUnix(ts),
		Kind:      kind.ProfileMetadata,
		Tags:      tags.New(),
		Content:   []byte(content),
	}
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestReplaceNewerWins(t *testing.T) {
	db, ctx := newTestDB(t)
	alice := newSigner(t)

	old := addressableAt(t, alice, 1000, "post", "first draft")
	replaced, err := db.ReplaceEvent(ctx, old)
	if err != nil {
		t.Fatal(err)
	}
	if !replaced {
		t.Fatal("vacant address must accept the event")
	}

	newer := addressableAt(t, alice, 2000, "post", "second draft")
	if replaced, err = db.ReplaceEvent(ctx, newer); err != nil {
		t.Fatal(err)
	}
	if !replaced {
		t.Fatal("newer event must replace the older")
	}

	f := filter.New()
	f.Kinds.Append(kind.New(30023))
	evs, err := db.QueryEvents(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 {
		t.Fatalf("expected 1 event at address, got %d", len(evs))
	}
	if !bytes.Equal(evs[0].Id, newer.Id) {
		t.Fatal("older event survived replacement")
	}
}

func TestReplaceStaleDropped(t *testing.T) {
	db, ctx := newTestDB(t)
	alice := newSigner(t)

	current := addressableAt(t, alice, 2000, "post", "current")
	if _, err := db.ReplaceEvent(ctx, current); err != nil {
		t.Fatal(err)
	}
	stale := addressableAt(t, alice, 1000, "post", "stale")
	replaced, err := db.ReplaceEvent(ctx, stale)
	if err != nil {
		t.Fatal(err)
	}
	if replaced {
		t.Fatal("stale event must not replace a newer one")
	}

	f := filter.New()
	f.Kinds.Append(kind.New(30023))
	evs, err := db.QueryEvents(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || !bytes.Equal(evs[0].Id, current.Id) {
		t.Fatal("current event must survive a stale submission")
	}
}

func TestReplaceEqualTimestampLowestIdWins(t *testing.T) {
	db, ctx := newTestDB(t)
	alice := newSigner(t)

	a := addressableAt(t, alice, 1500, "post", "candidate a")
	b := addressableAt(t, alice, 1500, "post", "candidate b")
	lower, higher := a, b
	if bytes.Compare(b.Id, a.Id) < 0 {
		lower, higher = b, a
	}

	if _, err := db.ReplaceEvent(ctx, higher); err != nil {
		t.Fatal(err)
	}
	replaced, err := db.ReplaceEvent(ctx, lower)
	if err != nil {
		t.Fatal(err)
	}
	if !replaced {
		t.Fatal("lower id must win an equal timestamp tie")
	}
	if replaced, err = db.ReplaceEvent(ctx, higher); err != nil {
		t.Fatal(err)
	}
	if replaced {
		t.Fatal("higher id must lose an equal timestamp tie")
	}

	f := filter.New()
	f.Kinds.Append(kind.New(30023))
	evs, err := db.QueryEvents(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || !bytes.Equal(evs[0].Id, lower.Id) {
		t.Fatal("lower id event must hold the address")
	}
}

func TestReplaceDistinctDTagsCoexist(t *testing.T) {
	db, ctx := newTestDB(t)
	alice := newSigner(t)

	one := addressableAt(t, alice, 1000, "alpha", "alpha draft")
	two := addressableAt(t, alice, 1000, "beta", "beta draft")
	for _, ev := range []*event.E{one, two} {
		replaced, err := db.ReplaceEvent(ctx, ev)
		if err != nil {
			t.Fatal(err)
		}
		if !replaced {
			t.Fatal("distinct d tags are distinct addresses")
		}
	}

	f := filter.New()
	f.Kinds.Append(kind.New(30023))
	evs, err := db.QueryEvents(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected both addresses populated, got %d", len(evs))
	}
}

func TestReplacePlainReplaceable(t *testing.T) {
	db, ctx := newTestDB(t)
	alice := newSigner(t)
	bob := newSigner(t)

	first := metadataAt(t, alice, 1000, `{"name":"alice"}`)
	if _, err := db.ReplaceEvent(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := metadataAt(t, alice, 2000, `{"name":"alice2"}`)
	replaced, err := db.ReplaceEvent(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if !replaced {
		t.Fatal("newer metadata must replace the older")
	}
	// another author's metadata lives at its own address
	other := metadataAt(t, bob, 500, `{"name":"bob"}`)
	if replaced, err = db.ReplaceEvent(ctx, other); err != nil {
		t.Fatal(err)
	}
	if !replaced {
		t.Fatal("different authors must not collide")
	}

	f := filter.New()
	f.Kinds.Append(kind.ProfileMetadata)
	evs, err := db.QueryEvents(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected one metadata per author, got %d", len(evs))
	}
	for _, ev := range evs {
		if bytes.Equal(ev.Id, first.Id) {
			t.Fatal("replaced metadata still present")
		}
	}
}
