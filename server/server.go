// Package server assembles the relay: the HTTP listener, the websocket
// endpoint, the information document, and the lifecycle of the store and
// pipeline underneath them.
package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"bramble.dev/config"
	"bramble.dev/groups"
	"bramble.dev/helpers"
	"bramble.dev/interfaces/signer"
	"bramble.dev/interfaces/store"
	"bramble.dev/policies"
	"bramble.dev/publish"
	"bramble.dev/servemux"
	"bramble.dev/socketapi"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

// S is the assembled relay.
type S struct {
	Ctx        context.T
	Cancel     context.F
	Cfg        *config.C
	Store      store.I
	Policies   *policies.P
	Groups     *groups.G
	Publishers *publish.S
	Relay      signer.I

	mux        *servemux.S
	httpServer *http.Server
}

// New wires the endpoints onto the router. The store, pipeline and group
// machine come in already connected to each other.
func New(
	c context.T, cancel context.F, cfg *config.C, sto store.I,
	pol *policies.P, grp *groups.G, pub *publish.S, relay signer.I,
) (s *S) {
	s = &S{
		Ctx:        c,
		Cancel:     cancel,
		Cfg:        cfg,
		Store:      sto,
		Policies:   pol,
		Groups:     grp,
		Publishers: pub,
		Relay:      relay,
		mux:        servemux.New(),
	}
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/nostr.json", s.HandleRelayInfo)
	return
}

// ServeHTTP makes the relay mountable as a plain http.Handler.
func (s *S) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleRoot serves the websocket upgrade or the information document,
// depending on what the client asks for.
func (s *S) handleRoot(w http.ResponseWriter, r *http.Request) {
	remote := helpers.GetRemoteFromReq(r)
	if r.Header.Get("Upgrade") == "websocket" {
		log.T.F("upgrading websocket for %s", remote)
		a := &socketapi.A{
			Ctx:        s.Ctx,
			Config:     s.Cfg,
			Policies:   s.Policies,
			Groups:     s.Groups,
			Publishers: s.Publishers,
		}
		a.Serve(w, r)
		return
	}
	s.HandleRelayInfo(w, r)
}

// Start listens and serves until Shutdown, capping concurrent connections
// at the configured maximum.
func (s *S) Start() (err error) {
	addr := fmt.Sprintf("%s:%d", s.Cfg.Listen, s.Cfg.Port)
	var listener net.Listener
	if listener, err = net.Listen("tcp", addr); chk.E(err) {
		return
	}
	if s.Cfg.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, s.Cfg.MaxConnections)
	}
	s.httpServer = &http.Server{
		Handler:           s.mux,
		Addr:              addr,
		ReadHeaderTimeout: 7 * time.Second,
		IdleTimeout:       28 * time.Second,
	}
	log.I.F("listening on %s", addr)
	var eg errgroup.Group
	eg.Go(
		func() error {
			if err := s.httpServer.Serve(listener); !errors.Is(
				err, http.ErrServerClosed,
			) {
				return err
			}
			return nil
		},
	)
	eg.Go(
		func() error {
			<-s.Ctx.Done()
			return s.httpServer.Close()
		},
	)
	return eg.Wait()
}

// Shutdown stops the listener and closes the event store.
func (s *S) Shutdown() {
	log.W.F("shutting down relay")
	s.Cancel()
	log.W.F("closing event store")
	chk.E(s.Store.Close())
}
