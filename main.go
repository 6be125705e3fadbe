// Package main is a nostr relay with relay-moderated groups. Configuration
// is via environment variables or an optional .env file.
package main

import (
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/pkg/profile"

	"bramble.dev/config"
	"bramble.dev/database"
	"bramble.dev/encoders/event"
	"bramble.dev/encoders/filter"
	"bramble.dev/encoders/kind"
	"bramble.dev/groups"
	"bramble.dev/interfaces/signer"
	"bramble.dev/interfaces/store"
	"bramble.dev/policies"
	"bramble.dev/publish"
	"bramble.dev/server"
	"bramble.dev/socketapi"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/interrupt"
	"bramble.dev/utils/log"
	"bramble.dev/utils/lol"
	"bramble.dev/version"
)

func main() {
	var err error
	var cfg *config.C
	if cfg, err = config.New(); chk.T(err) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n\n", err)
		}
		config.PrintHelp(cfg, os.Stderr)
		os.Exit(0)
	}
	log.I.F("starting %s %s", cfg.AppName, version.V)
	if config.GetEnv() {
		config.PrintEnv(cfg, os.Stdout)
		os.Exit(0)
	}
	if config.HelpRequested() {
		config.PrintHelp(cfg, os.Stderr)
		os.Exit(0)
	}
	lol.SetLogLevel(cfg.LogLevel)
	kind.SetLegacyReplaceable(cfg.LegacyReplaceable)
	if cfg.Pprof {
		defer profile.Start(profile.MemProfile).Stop()
		go func() {
			chk.E(http.ListenAndServe("127.0.0.1:6060", nil))
		}()
	}
	c, cancel := context.Cancel(context.Bg())
	var db *database.D
	if db, err = database.New(
		c, cancel, cfg.DataDir, cfg.DbLogLevel,
	); chk.E(err) {
		os.Exit(1)
	}
	var relayKeys signer.I
	if relayKeys, err = server.LoadIdentity(cfg); chk.E(err) {
		os.Exit(1)
	}
	log.I.F("relay identity %0x", relayKeys.Pub())
	pl := buildPipeline(cfg, db)
	sockPub := socketapi.NewPublisher()
	pub := publish.New(sockPub)
	grp := groups.New(
		db, relayKeys,
		func(gc context.T, ev *event.E) {
			storeRelayEvent(gc, pl, pub, ev)
		},
		func(gc context.T, id []byte) {
			pl.Delete(gc, id)
		},
	)
	grp.AllowCreators(cfg.GroupCreators...)
	grp.Register(pl)
	s := server.New(c, cancel, cfg, db, pl, grp, pub, relayKeys)
	interrupt.AddHandler(func() { s.Shutdown() })
	if err = s.Start(); chk.E(err) {
		log.F.F("server terminated: %v", err)
	}
}

// buildPipeline connects the policy chains to the standard rejection set
// and the badger store.
func buildPipeline(cfg *config.C, db *database.D) (pl *policies.P) {
	pl = policies.New()
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
	return
}

// storeRelayEvent persists and broadcasts an event the relay signed itself,
// going through the same chains client events do.
func storeRelayEvent(
	c context.T, pl *policies.P, pub *publish.S, ev *event.E,
) {
	if ev.Kind.IsReplaceable() {
		if _, err := pl.Replace(c, ev); chk.E(err) {
			return
		}
	} else if !ev.Kind.IsEphemeral() {
		if _, err := pl.Store(c, ev); err != nil &&
			!errors.Is(err, store.ErrDupEvent) {
			chk.E(err)
			return
		}
	}
	pub.Deliver(ev)
}
