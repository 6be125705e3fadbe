// Package ws implements nostr websockets with their authentication state.
package ws

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"bramble.dev/helpers"
	"bramble.dev/interfaces/listener"
	"bramble.dev/utils/atomic"
)

// Listener is a websocket connection from a client, with its NIP-42 state.
// Writes are serialized by a mutex, as fasthttp/websocket permits only one
// concurrent writer.
type Listener struct {
	mutex     sync.Mutex
	Conn      *websocket.Conn
	Request   *http.Request
	remote    atomic.String
	challenge atomic.String
	authed    atomic.Bytes
}

var _ listener.I = (*Listener)(nil)

// NewListener wraps an upgraded websocket connection.
func NewListener(conn *websocket.Conn, req *http.Request) (ws *Listener) {
	ws = &Listener{Conn: conn, Request: req}
	ws.remote.Store(helpers.GetRemoteFromReq(req))
	return
}

// writeWait bounds how long a single frame write may block on a stalled
// peer before the write errors and the connection is dropped.
const writeWait = 10 * time.Second

// Write a message to send to the client.
func (ws *Listener) Write(p []byte) (n int, err error) {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	if err = ws.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	err = ws.Conn.WriteMessage(websocket.TextMessage, p)
	if err != nil {
		n = len(p)
		if strings.Contains(err.Error(), "close sent") {
			_ = ws.Close()
			err = nil
			return
		}
	}
	return
}

// WriteControl sends a websocket control frame with a short deadline.
// Control frames bypass the text frame mutex, the websocket library
// serializes them internally.
func (ws *Listener) WriteControl(messageType int, p []byte) (err error) {
	return ws.Conn.WriteControl(
		messageType, p, time.Now().Add(writeWait),
	)
}

// Remote returns the stored remote address of the client.
func (ws *Listener) Remote() string { return ws.remote.Load() }

// Req returns the http.Request the connection was upgraded from.
func (ws *Listener) Req() *http.Request { return ws.Request }

// Close the connection from the relay side.
func (ws *Listener) Close() (err error) { return ws.Conn.Close() }

// SetChallenge stores the challenge string sent to this client.
func (ws *Listener) SetChallenge(c []byte) { ws.challenge.Store(string(c)) }

// Challenge returns the challenge string sent to this client.
func (ws *Listener) Challenge() []byte { return []byte(ws.challenge.Load()) }

// SetAuthedPubkey records a successful NIP-42 authentication.
func (ws *Listener) SetAuthedPubkey(pk []byte) { ws.authed.Store(pk) }

// AuthedPubkey returns the authenticated pubkey, nil if none.
func (ws *Listener) AuthedPubkey() []byte { return ws.authed.Load() }

// IsAuthed reports whether the client has completed authentication.
func (ws *Listener) IsAuthed() bool { return len(ws.AuthedPubkey()) > 0 }
