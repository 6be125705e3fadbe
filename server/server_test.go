package server_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"bramble.dev/config"
	"bramble.dev/crypto/p256k"
	"bramble.dev/database"
	"bramble.dev/encoders/envelopes"
	"bramble.dev/encoders/envelopes/authenvelope"
	"bramble.dev/encoders/envelopes/closedenvelope"
	"bramble.dev/encoders/envelopes/closeenvelope"
	"bramble.dev/encoders/envelopes/countenvelope"
	"bramble.dev/encoders/envelopes/eoseenvelope"
	"bramble.dev/encoders/envelopes/eventenvelope"
	"bramble.dev/encoders/envelopes/okenvelope"
	"bramble.dev/encoders/envelopes/reqenvelope"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/filter"
	"bramble.dev/encoders/filters"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/tag"
	"bramble.dev/encoders/tags"
	"bramble.dev/encoders/timestamp"
	"bramble.dev/groups"
	"bramble.dev/interfaces/store"
	"bramble.dev/policies"
	"bramble.dev/protocol/auth"
	"bramble.dev/publish"
	"bramble.dev/server"
	"bramble.dev/socketapi"
	"bramble.dev/utils/context"
)

// newRelay assembles a full relay over a throwaway database and serves it
// from an httptest server, the same wiring the binary does. Options mutate
// the configuration before the pipeline is built.
func newRelay(t *testing.T, opts ...func(*config.C)) (
	ts *httptest.Server, cfg *config.C,
) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "test-relay-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })
	ctx, cancel := context.Cancel(context.Bg())
	t.Cleanup(cancel)
	db, err := database.New(ctx, cancel, tempDir, "warn")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	cfg = &config.C{
		AppName:             "bramble-test",
		DataDir:             tempDir,
		MaxTags:             2000,
		MaxContentBytes:     262144,
		MaxFutureSeconds:    900,
		MaxLimit:            512,
		QueryTimeoutSeconds: 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	relay := &p256k.Signer{}
	if err = relay.Generate(); err != nil {
		t.Fatal(err)
	}
	pl := policies.New()
	pl.RejectEvent = policies.Standard(cfg)
	pl.RejectFilter = policies.StandardFilters(cfg)
	pl.StoreEvent = append(
		pl.StoreEvent,
		func(c context.T, ev *event.E) (accepted bool, err error) {
			if err = db.SaveEvent(c, ev); err != nil {
				return
			}
			return true, nil
		},
	)
	pl.QueryEvents = append(
		pl.QueryEvents,
		func(c context.T, f *filter.F) (evs event.S, err error) {
			return db.QueryEvents(c, f)
		},
	)
	pl.CountEvents = append(pl.CountEvents, db.CountEvents)
	pl.DeleteEvent = append(pl.DeleteEvent, db.DeleteEvent)
	pl.ReplaceEvent = append(pl.ReplaceEvent, db.ReplaceEvent)
	pub := publish.New(socketapi.NewPublisher())
	grp := groups.New(
		db, relay,
		func(gc context.T, ev *event.E) {
			if ev.Kind.IsReplaceable() {
				if _, err := pl.Replace(gc, ev); err != nil {
					return
				}
			} else if !ev.Kind.IsEphemeral() {
				if _, err := pl.Store(gc, ev); err != nil &&
					!errors.Is(err, store.ErrDupEvent) {
					return
				}
			}
			pub.Deliver(ev)
		},
		func(gc context.T, id []byte) { pl.Delete(gc, id) },
	)
	grp.AllowCreators(cfg.GroupCreators...)
	grp.Register(pl)
	s := server.New(ctx, cancel, cfg, db, pl, grp, pub, relay)
	ts = httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return
}

// client is one websocket connection with the AUTH challenge already
// consumed.
type client struct {
	conn      *websocket.Conn
	ctx       context.T
	challenge []byte
}

func dial(t *testing.T, ts *httptest.Server) (cl *client) {
	t.Helper()
	ctx, cancel := context.Timeout(context.Bg(), 15*time.Second)
	t.Cleanup(cancel)
	u := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(
		func() { _ = conn.Close(websocket.StatusNormalClosure, "done") },
	)
	cl = &client{conn: conn, ctx: ctx}
	// the relay opens with its NIP-42 challenge
	label, rem := cl.read(t)
	if label != authenvelope.L {
		t.Fatalf("expected AUTH first, got %s", label)
	}
	env := authenvelope.NewChallenge()
	if _, err = env.Unmarshal(rem); err != nil {
		t.Fatalf("bad challenge: %v", err)
	}
	if len(env.Challenge) == 0 {
		t.Fatal("challenge must not be empty")
	}
	cl.challenge = env.Challenge
	return
}

func (cl *client) read(t *testing.T) (label string, rem []byte) {
	t.Helper()
	_, data, err := cl.conn.Read(cl.ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if label, rem, err = envelopes.Identify(data); err != nil {
		t.Fatalf("unidentifiable frame: %v\n%s", err, data)
	}
	return
}

func (cl *client) write(t *testing.T, b []byte) {
	t.Helper()
	if err := cl.conn.Write(cl.ctx, websocket.MessageText, b); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func (cl *client) readOk(t *testing.T) *okenvelope.T {
	t.Helper()
	label, rem := cl.read(t)
	if label != okenvelope.L {
		t.Fatalf("expected OK, got %s %s", label, rem)
	}
	env := okenvelope.New()
	if _, err := env.Unmarshal(rem); err != nil {
		t.Fatalf("bad OK: %v", err)
	}
	return env
}

func signedNote(t *testing.T, sign *p256k.Signer, content string) *event.E {
	t.Helper()
	ev := &event.E{
		Pubkey:    sign.Pub(),
		CreatedAt: timestamp.Now(),
		Kind:      kind.TextNote,
		Tags:      tags.New(tag.New("t", "integration")),
		Content:   []byte(content),
	}
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestPublishAndQuery(t *testing.T) {
	ts, _ := newRelay(t)
	cl := dial(t, ts)
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}

	ev := signedNote(t, sign, "hello relay")
	cl.write(t, eventenvelope.NewSubmissionWith(ev).Marshal(nil))
	ok := cl.readOk(t)
	if !ok.OK {
		t.Fatalf("event refused: %s", ok.Message)
	}
	if !bytes.Equal(ok.EventID, ev.Id) {
		t.Fatal("OK names the wrong event")
	}

	// a duplicate submission is refused but still gets its OK
	cl.write(t, eventenvelope.NewSubmissionWith(ev).Marshal(nil))
	if ok = cl.readOk(t); ok.OK {
		t.Fatal("duplicate must be refused")
	}

	// stored events come back, then EOSE
	f := filter.New()
	f.Kinds.Append(kind.TextNote)
	cl.write(t, reqenvelope.NewFrom("q1", filters.New(f)).Marshal(nil))
	label, rem := cl.read(t)
	if label != eventenvelope.L {
		t.Fatalf("expected EVENT, got %s %s", label, rem)
	}
	res := eventenvelope.NewResult()
	if _, err := res.Unmarshal(rem); err != nil {
		t.Fatalf("bad EVENT frame: %v", err)
	}
	if string(res.Subscription) != "q1" {
		t.Fatalf("result names the wrong subscription: %s", res.Subscription)
	}
	if !bytes.Equal(res.Event.Id, ev.Id) {
		t.Fatal("stored event did not come back")
	}
	if label, _ = cl.read(t); label != eoseenvelope.L {
		t.Fatalf("expected EOSE, got %s", label)
	}
}

func TestRejectsMangledEvent(t *testing.T) {
	ts, _ := newRelay(t)
	cl := dial(t, ts)
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := signedNote(t, sign, "soon to be mangled")
	ev.Content = []byte("mangled")
	cl.write(t, eventenvelope.NewSubmissionWith(ev).Marshal(nil))
	ok := cl.readOk(t)
	if ok.OK {
		t.Fatal("event with a stale id must be refused")
	}
	if !bytes.HasPrefix(ok.Message, []byte("invalid:")) {
		t.Fatalf("expected an invalid: reason, got %s", ok.Message)
	}
}

func TestLiveBroadcast(t *testing.T) {
	ts, _ := newRelay(t)
	sub := dial(t, ts)
	pub := dial(t, ts)

	f := filter.New()
	f.Tags.AppendTags(tag.New("#t", "integration"))
	sub.write(t, reqenvelope.NewFrom("live", filters.New(f)).Marshal(nil))
	if label, _ := sub.read(t); label != eoseenvelope.L {
		t.Fatalf("expected EOSE on an empty store, got %s", label)
	}

	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := signedNote(t, sign, "breaking news")
	pub.write(t, eventenvelope.NewSubmissionWith(ev).Marshal(nil))
	if ok := pub.readOk(t); !ok.OK {
		t.Fatalf("event refused: %s", ok.Message)
	}

	// the subscriber gets the broadcast
	label, rem := sub.read(t)
	if label != eventenvelope.L {
		t.Fatalf("expected a live EVENT, got %s", label)
	}
	res := eventenvelope.NewResult()
	if _, err := res.Unmarshal(rem); err != nil {
		t.Fatalf("bad EVENT frame: %v", err)
	}
	if string(res.Subscription) != "live" ||
		!bytes.Equal(res.Event.Id, ev.Id) {
		t.Fatal("broadcast did not reach the subscription")
	}
}

func TestEphemeralNotStored(t *testing.T) {
	ts, _ := newRelay(t)
	cl := dial(t, ts)
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := &event.E{
		Pubkey:    sign.Pub(),
		CreatedAt: timestamp.Now(),
		Kind:      kind.New(20001),
		Tags:      tags.New(),
		Content:   []byte("here and gone"),
	}
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	cl.write(t, eventenvelope.NewSubmissionWith(ev).Marshal(nil))
	if ok := cl.readOk(t); !ok.OK {
		t.Fatalf("ephemeral event refused: %s", ok.Message)
	}
	// nothing to replay: the store never saw it
	f := filter.New()
	f.Kinds.Append(kind.New(20001))
	cl.write(t, reqenvelope.NewFrom("eph", filters.New(f)).Marshal(nil))
	if label, _ := cl.read(t); label != eoseenvelope.L {
		t.Fatalf("ephemeral event must not be stored, got %s", label)
	}
}

func TestCloseStopsBroadcast(t *testing.T) {
	ts, _ := newRelay(t)
	sub := dial(t, ts)
	pub := dial(t, ts)

	f := filter.New()
	f.Tags.AppendTags(tag.New("#t", "integration"))
	sub.write(t, reqenvelope.NewFrom("live", filters.New(f)).Marshal(nil))
	if label, _ := sub.read(t); label != eoseenvelope.L {
		t.Fatalf("expected EOSE, got %s", label)
	}
	sub.write(t, closeenvelope.NewFrom("live").Marshal(nil))
	// a follow-up REQ on the same connection proves the CLOSE was handled
	check := filter.New()
	check.Kinds.Append(kind.New(7))
	sub.write(t, reqenvelope.NewFrom("check", filters.New(check)).Marshal(nil))
	if label, _ := sub.read(t); label != eoseenvelope.L {
		t.Fatalf("expected EOSE, got %s", label)
	}

	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := signedNote(t, sign, "nobody listening")
	pub.write(t, eventenvelope.NewSubmissionWith(ev).Marshal(nil))
	if ok := pub.readOk(t); !ok.OK {
		t.Fatalf("event refused: %s", ok.Message)
	}

	// the closed subscription stays silent: the next frame the subscriber
	// sees is the reply to its own COUNT, not a stray EVENT
	cf := filter.New()
	cf.Kinds.Append(kind.TextNote)
	sub.write(
		t, countenvelope.NewRequestWith("c", filters.New(cf)).Marshal(nil),
	)
	label, _ := sub.read(t)
	if label == eventenvelope.L {
		t.Fatal("closed subscription still receives broadcasts")
	}
	if label != countenvelope.L {
		t.Fatalf("expected COUNT, got %s", label)
	}
}

func TestCount(t *testing.T) {
	ts, _ := newRelay(t)
	cl := dial(t, ts)
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	for _, content := range []string{"one", "two", "three"} {
		cl.write(
			t, eventenvelope.NewSubmissionWith(
				signedNote(t, sign, content),
			).Marshal(nil),
		)
		if ok := cl.readOk(t); !ok.OK {
			t.Fatalf("event refused: %s", ok.Message)
		}
	}
	f := filter.New()
	f.Kinds.Append(kind.TextNote)
	cl.write(
		t, countenvelope.NewRequestWith("c1", filters.New(f)).Marshal(nil),
	)
	label, rem := cl.read(t)
	if label != countenvelope.L {
		t.Fatalf("expected COUNT, got %s %s", label, rem)
	}
	env := countenvelope.NewResponse()
	if _, err := env.Unmarshal(rem); err != nil {
		t.Fatalf("bad COUNT: %v", err)
	}
	if env.Count != 3 {
		t.Fatalf("count returned %d, want 3", env.Count)
	}
}

func TestDeletion(t *testing.T) {
	ts, _ := newRelay(t)
	cl := dial(t, ts)
	alice := &p256k.Signer{}
	if err := alice.Generate(); err != nil {
		t.Fatal(err)
	}
	mallory := &p256k.Signer{}
	if err := mallory.Generate(); err != nil {
		t.Fatal(err)
	}

	ev := signedNote(t, alice, "regrettable")
	cl.write(t, eventenvelope.NewSubmissionWith(ev).Marshal(nil))
	if ok := cl.readOk(t); !ok.OK {
		t.Fatalf("event refused: %s", ok.Message)
	}

	// someone else cannot delete it
	forged := &event.E{
		Pubkey:    mallory.Pub(),
		CreatedAt: timestamp.Now(),
		Kind:      kind.Deletion,
		Tags:      tags.New(tag.New("e", ev.IdString())),
		Content:   []byte{},
	}
	if err := forged.Sign(mallory); err != nil {
		t.Fatal(err)
	}
	cl.write(t, eventenvelope.NewSubmissionWith(forged).Marshal(nil))
	if ok := cl.readOk(t); ok.OK {
		t.Fatal("deleting another author's event must be refused")
	}

	del := &event.E{
		Pubkey:    alice.Pub(),
		CreatedAt: timestamp.Now(),
		Kind:      kind.Deletion,
		Tags:      tags.New(tag.New("e", ev.IdString())),
		Content:   []byte{},
	}
	if err := del.Sign(alice); err != nil {
		t.Fatal(err)
	}
	cl.write(t, eventenvelope.NewSubmissionWith(del).Marshal(nil))
	if ok := cl.readOk(t); !ok.OK {
		t.Fatalf("deletion refused: %s", ok.Message)
	}

	// the target is gone, the deletion event itself is queryable
	f := filter.New()
	f.Ids = f.Ids.Append([]byte(ev.IdString()))
	cl.write(t, reqenvelope.NewFrom("gone", filters.New(f)).Marshal(nil))
	if label, _ := cl.read(t); label != eoseenvelope.L {
		t.Fatalf("deleted event must not come back, got %s", label)
	}
	f = filter.New()
	f.Kinds.Append(kind.Deletion)
	cl.write(t, reqenvelope.NewFrom("del", filters.New(f)).Marshal(nil))
	label, rem := cl.read(t)
	if label != eventenvelope.L {
		t.Fatalf("deletion event must be stored, got %s %s", label, rem)
	}
	if label, _ = cl.read(t); label != eoseenvelope.L {
		t.Fatalf("expected EOSE, got %s", label)
	}
}

func TestAuthRequiredGate(t *testing.T) {
	ts, _ := newRelay(t, func(c *config.C) { c.AuthRequired = true })
	cl := dial(t, ts)
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}

	// events are refused until the connection authenticates
	ev := signedNote(t, sign, "too early")
	cl.write(t, eventenvelope.NewSubmissionWith(ev).Marshal(nil))
	ok := cl.readOk(t)
	if ok.OK {
		t.Fatal("unauthenticated event must be refused")
	}
	if !bytes.HasPrefix(ok.Message, []byte("auth-required:")) {
		t.Fatalf("expected an auth-required reason, got %s", ok.Message)
	}
	// the refusal is followed by a fresh AUTH invitation
	label, _ := cl.read(t)
	if label != authenvelope.L {
		t.Fatalf("expected AUTH after the refusal, got %s", label)
	}

	// filters are gated the same way
	f := filter.New()
	f.Kinds.Append(kind.TextNote)
	cl.write(t, reqenvelope.NewFrom("q", filters.New(f)).Marshal(nil))
	label, rem := cl.read(t)
	if label != closedenvelope.L {
		t.Fatalf("expected CLOSED, got %s %s", label, rem)
	}
	closed := closedenvelope.New()
	if _, err := closed.Unmarshal(rem); err != nil {
		t.Fatalf("bad CLOSED: %v", err)
	}
	if !bytes.HasPrefix(closed.Reason, []byte("auth-required:")) {
		t.Fatalf("expected an auth-required reason, got %s", closed.Reason)
	}

	// after a NIP-42 exchange both paths open up
	relayURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	authEv := auth.CreateUnsigned(sign.Pub(), cl.challenge, relayURL)
	if err := authEv.Sign(sign); err != nil {
		t.Fatal(err)
	}
	cl.write(t, authenvelope.NewResponseWith(authEv).Marshal(nil))
	if ok = cl.readOk(t); !ok.OK {
		t.Fatalf("authentication refused: %s", ok.Message)
	}
	cl.write(t, eventenvelope.NewSubmissionWith(ev).Marshal(nil))
	if ok = cl.readOk(t); !ok.OK {
		t.Fatalf("authenticated event refused: %s", ok.Message)
	}
	cl.write(t, reqenvelope.NewFrom("q", filters.New(f)).Marshal(nil))
	if label, rem = cl.read(t); label != eventenvelope.L {
		t.Fatalf("authenticated REQ must stream, got %s %s", label, rem)
	}
}

func TestRelayInformationDocument(t *testing.T) {
	ts, cfg := newRelay(t)
	req, err := http.NewRequest("GET", ts.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Accept", "application/nostr+json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(
		ct, "application/nostr+json",
	) {
		t.Fatalf("unexpected content type %s", ct)
	}
	var doc struct {
		Name          string `json:"name"`
		SupportedNIPs []int  `json:"supported_nips"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.Name != cfg.AppName {
		t.Fatalf("document names the wrong relay: %s", doc.Name)
	}
	var hasAuth, hasGroups bool
	for _, n := range doc.SupportedNIPs {
		switch n {
		case 29:
			hasGroups = true
		case 42:
			hasAuth = true
		}
	}
	if !hasAuth || !hasGroups {
		t.Fatalf("missing advertised NIPs: %v", doc.SupportedNIPs)
	}
}
