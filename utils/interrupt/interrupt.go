// Package interrupt runs a registry of shutdown handlers on SIGINT/SIGTERM,
// and can restart the process in place.
package interrupt

import (
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kardianos/osext"

	"bramble.dev/utils/chk"
	"bramble.dev/utils/log"
)

var (
	mx       sync.Mutex
	handlers []func()
	started  bool
)

// AddHandler registers a function to run when an interrupt signal arrives.
// Handlers run in registration order, then the process exits.
func AddHandler(f func()) {
	mx.Lock()
	defer mx.Unlock()
	handlers = append(handlers, f)
	if !started {
		started = true
		go listen()
	}
}

func listen() {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.I.F("received %v, shutting down", s)
	mx.Lock()
	hs := make([]func(), len(handlers))
	copy(hs, handlers)
	mx.Unlock()
	for _, h := range hs {
		h()
	}
	os.Exit(0)
}

// Restart replaces the current process with a fresh copy of the same binary
// with the same arguments and environment.
func Restart() {
	var err error
	var path string
	if path, err = osext.Executable(); chk.E(err) {
		return
	}
	cmd := exec.Command(path, os.Args[1:]...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	cmd.Env = os.Environ()
	if err = cmd.Start(); chk.E(err) {
		return
	}
	os.Exit(0)
}
