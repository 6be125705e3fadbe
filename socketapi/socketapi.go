// Package socketapi is the websocket face of the relay: it upgrades inbound
// connections, sends the NIP-42 challenge, and runs the read loop that
// dispatches client frames. Frames on one connection are handled
// synchronously so replies keep their protocol ordering.
package socketapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/puzpuzpuz/xsync/v3"

	"bramble.dev/config"
	"bramble.dev/encoders/envelopes/authenvelope"
	"bramble.dev/groups"
	"bramble.dev/helpers"
	"bramble.dev/policies"
	"bramble.dev/protocol/auth"
	"bramble.dev/publish"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
	"bramble.dev/utils/units"
	"bramble.dev/ws"
)

const (
	DefaultPongWait       = 60 * time.Second
	DefaultPingWait       = DefaultPongWait / 2
	DefaultMaxMessageSize = 1 * units.Mb
)

// Upgrader upgrades HTTP connections to websockets; origin checking is
// permissive because nostr clients connect from anywhere.
var Upgrader = websocket.Upgrader{
	ReadBufferSize: 1024, WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// A serves one websocket connection. The server creates one per upgrade and
// hands it the shared pipeline, group machine and publisher registry.
type A struct {
	Ctx context.T
	*ws.Listener
	Config     *config.C
	Policies   *policies.P
	Groups     *groups.G
	Publishers *publish.S

	// queries tracks the cancel funcs of this connection's subscriptions so
	// a CLOSE can abort an in-flight query.
	queries *xsync.MapOf[string, context.F]
}

// Serve upgrades the request and runs the read loop until the connection or
// the server context goes away. Each frame is handled before the next is
// read.
func (a *A) Serve(w http.ResponseWriter, r *http.Request) {
	var err error
	var cancel context.F
	a.Ctx, cancel = context.Cancel(a.Ctx)
	a.queries = xsync.NewMapOf[string, context.F]()
	var conn *websocket.Conn
	if conn, err = Upgrader.Upgrade(w, r, nil); chk.E(err) {
		log.E.F("failed to upgrade websocket: %v", err)
		return
	}
	a.Listener = ws.NewListener(conn, r)
	ticker := time.NewTicker(DefaultPingWait)
	defer func() {
		cancel()
		ticker.Stop()
		a.queries.Range(
			func(_ string, qcancel context.F) bool {
				qcancel()
				return true
			},
		)
		a.Publishers.Receive(&W{Cancel: true, Listener: a.Listener})
		chk.E(a.Listener.Close())
	}()
	conn.SetReadLimit(DefaultMaxMessageSize)
	chk.E(conn.SetReadDeadline(time.Now().Add(DefaultPongWait)))
	conn.SetPongHandler(
		func(string) error {
			chk.E(conn.SetReadDeadline(time.Now().Add(DefaultPongWait)))
			return nil
		},
	)
	a.Listener.SetChallenge(auth.GenerateChallenge())
	if err = authenvelope.NewChallengeWith(a.Listener.Challenge()).
		Write(a.Listener); chk.E(err) {
		return
	}
	go a.pinger(a.Ctx, ticker, cancel)
	var message []byte
	var typ int
	for {
		select {
		case <-a.Ctx.Done():
			return
		default:
		}
		if typ, message, err = conn.ReadMessage(); err != nil {
			if strings.Contains(
				err.Error(), "use of closed network connection",
			) {
				return
			}
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
				websocket.CloseAbnormalClosure,
			) {
				log.W.F(
					"unexpected close error from %s: %v",
					helpers.GetRemoteFromReq(r), err,
				)
			}
			return
		}
		if typ == websocket.PingMessage {
			chk.E(a.Listener.WriteControl(websocket.PongMessage, nil))
			continue
		}
		a.handleMessage(message)
	}
}

// pinger keeps the connection alive, closing it when a ping cannot be
// written.
func (a *A) pinger(ctx context.T, ticker *time.Ticker, cancel context.F) {
	defer func() {
		cancel()
		ticker.Stop()
		_ = a.Listener.Close()
	}()
	for {
		select {
		case <-ticker.C:
			if err := a.Listener.WriteControl(
				websocket.PingMessage, nil,
			); err != nil {
				log.E.F("error writing ping: %v; closing websocket", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
