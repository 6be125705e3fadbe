package socketapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"

	"bramble.dev/crypto/p256k"
	"bramble.dev/encoders/envelopes"
	"bramble.dev/encoders/envelopes/eventenvelope"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/filter"
	"bramble.dev/encoders/filters"
	"bramble.dev/encoders/kind"
	"bramble.dev/encoders/tags"
	"bramble.dev/encoders/timestamp"
	"bramble.dev/ws"
)

// wsPair upgrades one real websocket connection and returns the server side
// wrapped as a listener, plus the client side for reading frames back.
func wsPair(t *testing.T) (l *ws.Listener, client *websocket.Conn) {
	t.Helper()
	upgraded := make(chan *ws.Listener, 1)
	srv := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				conn, err := Upgrader.Upgrade(w, r, nil)
				if err != nil {
					return
				}
				upgraded <- ws.NewListener(conn, r)
			},
		),
	)
	t.Cleanup(srv.Close)
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	select {
	case l = <-upgraded:
	case <-time.After(5 * time.Second):
		t.Fatal("upgrade timed out")
	}
	t.Cleanup(func() { _ = l.Close() })
	return
}

func testNote(t *testing.T, content string) *event.E {
	t.Helper()
	sign := &p256k.Signer{}
	if err := sign.Generate(); err != nil {
		t.Fatal(err)
	}
	ev := &event.E{
		Pubkey:    sign.Pub(),
		CreatedAt: timestamp.Now(),
		Kind:      kind.TextNote,
		Tags:      tags.New(),
		Content:   []byte(content),
	}
	if err := ev.Sign(sign); err != nil {
		t.Fatal(err)
	}
	return ev
}

func matchAll() *filters.T { return filters.New(filter.New()) }

func TestDeliverDropsDeadListener(t *testing.T) {
	l, _ := wsPair(t)
	p := NewPublisher()
	p.Receive(&W{Listener: l, Id: "s1", Filters: matchAll()})

	// a peer whose writes fail must not wedge the fan-out: the listener is
	// removed and later deliveries skip it
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	p.Deliver(testNote(t, "into the void"))
	p.Mx.Lock()
	_, present := p.Map[l]
	p.Mx.Unlock()
	if present {
		t.Fatal("listener with a failed write must be dropped")
	}
}

func TestDeliverTracksOpeningIds(t *testing.T) {
	l, client := wsPair(t)
	p := NewPublisher()
	p.Receive(&W{Listener: l, Id: "s1", Filters: matchAll()})

	ev := testNote(t, "live during the opening query")
	p.Deliver(ev)
	if !p.Delivered(l, "s1", ev.Id) {
		t.Fatal("a live delivery during the opening phase must be recorded")
	}
	other := testNote(t, "never delivered")
	if p.Delivered(l, "s1", other.Id) {
		t.Fatal("undelivered ids must not be recorded")
	}
	if p.Delivered(l, "s2", ev.Id) {
		t.Fatal("tracking is per subscription")
	}

	// the frame actually reached the client
	if err := client.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("client read failed: %v", err)
	}
	label, _, err := envelopes.Identify(data)
	if err != nil || label != eventenvelope.L {
		t.Fatalf("expected an EVENT frame, got %s: %v", label, err)
	}

	// once settled, the tracking is gone and later deliveries are untracked
	p.Settle(l, "s1")
	if p.Delivered(l, "s1", ev.Id) {
		t.Fatal("settled subscription must not report duplicates")
	}
	later := testNote(t, "after the opening phase")
	p.Deliver(later)
	if p.Delivered(l, "s1", later.Id) {
		t.Fatal("settled subscription must not track deliveries")
	}
}
