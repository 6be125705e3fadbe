package database

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"bramble.dev/crypto/p256k"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/filter"
	"bramble.dev/encoders/hex"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/tag"
	"bramble.dev/encoders/tags"
	"bramble.dev/encoders/timestamp"
	"bramble.dev/interfaces/store"
	"bramble.dev/utils/context"
)

func newTestDB(t *testing.T) (*D, context.T) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "test-db-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })
	ctx, cancel := context.Cancel(context.Bg())
	t.Cleanup(cancel)
	db, err := New(ctx, cancel, tempDir, "warn")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, ctx
}

func TestCloseAndReopen(t *testing.T) {
	db, ctx := newTestDB(t)
	alice := newSigner(t)
	ev := noteAt(t, alice, 1000, "durable")
	if err := db.SaveEvent(ctx, ev); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := db.Init(); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	db.SetLogLevel("error")
	f := filter.New()
	f.Ids = f.Ids.Append([]byte(ev.IdString()))
	evs, err := db.QueryEvents(ctx, f)
	if err != nil {
		t.Fatalf("query after reopen failed: %v", err)
	}
	if len(evs) != 1 || !bytes.Equal(evs[0].Id, ev.Id) {
		t.Fatal("stored event must survive a close and reopen")
	}
}

func newSigner(t *testing.T) *p256k.Signer {
	t.Helper()
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	return sign
}

func noteAt(
	t *testing.T, sign *p256k.Signer, ts int64, content string,
	tgs ...*tag.T,
) *event.E {
	t.Helper()
	ev := &event.E{
		Pubkey:    sign.Pub(),
		CreatedAt: timestamp.FromUnix(ts),
		Kind:      kind.TextNote,
		Tags:      tags.New(tgs...),
		Content:   []byte(content),
	}
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestSaveAndQuery(t *testing.T) {
	db, ctx := newTestDB(t)
	alice := newSigner(t)
	bob := newSigner(t)
	ev1 := noteAt(t, alice, 1000, "one", tag.New("t", "nostr"))
	ev2 := noteAt(t, alice, 2000, "two")
	ev3 := noteAt(t, bob, 1500, "three")
	for _, ev := range []*event.E{ev1, ev2, ev3} {
		if err := db.SaveEvent(ctx, ev); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	// duplicate save is refused
	if err := db.SaveEvent(ctx, ev1); !errors.Is(err, store.ErrDupEvent) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	// by full id
	f := filter.New()
	f.Ids = f.Ids.Append([]byte(ev3.IdString()))
	evs, err := db.QueryEvents(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || !bytes.Equal(evs[0].Id, ev3.Id) {
		t.Fatalf("id query returned %d events", len(evs))
	}

	// by author, newest first
	f = filter.New()
	f.Authors = f.Authors.Append([]byte(hex.Enc(alice.Pub())))
	if evs, err = db.QueryEvents(ctx, f); err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 {
		t.Fatalf("author query returned %d events, want 2", len(evs))
	}
	if !bytes.Equal(evs[0].Id, ev2.Id) {
		t.Fatal("results are not newest first")
	}

	// by kind with a limit
	f = filter.New()
	f.Kinds.Append(kind.TextNote)
	lim := uint(2)
	f.Limit = &lim
	if evs, err = db.QueryEvents(ctx, f); err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 {
		t.Fatalf("limited kind query returned %d events, want 2", len(evs))
	}

	// by tag
	f = filter.New()
	f.Tags.AppendTags(tag.New("#t", "nostr"))
	if evs, err = db.QueryEvents(ctx, f); err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || !bytes.Equal(evs[0].Id, ev1.Id) {
		t.Fatalf("tag query returned %d events", len(evs))
	}

	// since/until window
	f = filter.New()
	f.Kinds.Append(kind.TextNote)
	f.Since = timestamp.FromUnix(1200)
	f.Until = timestamp.FromUnix(1800)
	if evs, err = db.QueryEvents(ctx, f); err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || !bytes.Equal(evs[0].Id, ev3.Id) {
		t.Fatalf("window query returned %d events", len(evs))
	}
}

func TestCountAndDelete(t *testing.T) {
	db, ctx := newTestDB(t)
	alice := newSigner(t)
	ev1 := noteAt(t, alice, 1000, "one")
	ev2 := noteAt(t, alice, 2000, "two")
	for _, ev := range []*event.E{ev1, ev2} {
		if err := db.SaveEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}
	f := filter.New()
	f.Kinds.Append(kind.TextNote)
	count, err := db.CountEvents(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("count returned %d, want 2", count)
	}
	if err = db.DeleteEvent(ctx, ev1.Id); err != nil {
		t.Fatal(err)
	}
	if count, err = db.CountEvents(ctx, f); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count after delete returned %d, want 1", count)
	}
	// the deleted event is gone from the id index too
	f = filter.New()
	f.Ids = f.Ids.Append([]byte(ev1.IdString()))
	evs, err := db.QueryEvents(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 0 {
		t.Fatal("deleted event still queryable")
	}
}

func TestIdPrefixQuery(t *testing.T) {
	db, ctx := newTestDB(t)
	alice := newSigner(t)
	ev := noteAt(t, alice, 1000, "prefix me")
	if err := db.SaveEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}
	f := filter.New()
	f.Ids = f.Ids.Append([]byte(ev.IdString()[:16]))
	evs, err := db.QueryEvents(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || !bytes.Equal(evs[0].Id, ev.Id) {
		t.Fatalf("id prefix query returned %d events", len(evs))
	}
}

func TestExportImport(t *testing.T) {
	db, ctx := newTestDB(t)
	alice := newSigner(t)
	var ids [][]byte
	for i := int64(0); i < 5; i++ {
		ev := noteAt(t, alice, 1000+i, "export me")
		if err := db.SaveEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, ev.Id)
	}
	var buf bytes.Buffer
	db.Export(ctx, &buf)

	db2, ctx2 := newTestDB(t)
	db2.Import(&buf)
	f := filter.New()
	f.Kinds.Append(kind.TextNote)
	evs, err := db2.QueryEvents(ctx2, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != len(ids) {
		t.Fatalf("import recovered %d events, want %d", len(evs), len(ids))
	}
}
