// Package database is the badger backed event store. Events are stored
// under a monotonic serial, with secondary indexes keyed by hashed
// dimensions pointing back at serials, and queries post-filter candidates
// in memory.
package database

import (
	"io"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/puzpuzpuz/xsync/v3"

	"bramble.dev/interfaces/store"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
	"bramble.dev/utils/lol"
	"bramble.dev/utils/units"
)

// D is the badger event store.
type D struct {
	ctx     context.T
	cancel  context.F
	dataDir string
	Logger  *logger
	*badger.DB
	seq *badger.Sequence

	// addrLocks serializes writers to the same replaceable address.
	addrLocks *xsync.MapOf[string, *sync.Mutex]
}

var _ store.I = (*D)(nil)

// New opens (creating if necessary) the store at dataDir.
func New(ctx context.T, cancel context.F, dataDir, logLevel string) (
	d *D, err error,
) {
	d = &D{
		ctx:       ctx,
		cancel:    cancel,
		dataDir:   dataDir,
		Logger:    NewLogger(lol.GetLogLevel(logLevel)),
		addrLocks: xsync.NewMapOf[string, *sync.Mutex](),
	}
	err = d.Init()
	return
}

// Init opens the badger files and takes the event sequence lease. New calls
// it; a store shut with Close can be reopened with Init.
func (d *D) Init() (err error) {
	if err = os.MkdirAll(d.dataDir, 0755); chk.E(err) {
		return
	}
	opts := badger.DefaultOptions(d.dataDir)
	opts.BlockCacheSize = int64(units.Gb)
	opts.CompactL0OnClose = true
	opts.Logger = d.Logger
	if d.DB, err = badger.Open(opts); chk.E(err) {
		return
	}
	log.T.F("getting event sequence lease %s", d.dataDir)
	if d.seq, err = d.DB.GetSequence([]byte("EVENTS"), 1000); chk.E(err) {
		return
	}
	go func() {
		<-d.ctx.Done()
		d.cancel()
		chk.E(d.seq.Release())
		chk.E(d.DB.Close())
	}()
	return
}

// Path returns the directory the database files are stored in.
func (d *D) Path() string { return d.dataDir }

// Sync flushes the database to disk.
func (d *D) Sync() (err error) { return d.DB.Sync() }

// Close releases the sequence lease and closes the database.
func (d *D) Close() (err error) {
	if err = d.seq.Release(); chk.E(err) {
	}
	return d.DB.Close()
}

// Wipe deletes everything in the store.
func (d *D) Wipe() (err error) {
	return d.DB.DropAll()
}

// SetLogLevel changes the badger adapter's log level.
func (d *D) SetLogLevel(level string) {
	d.Logger.SetLogLevel(lol.GetLogLevel(level))
}

// addrLock returns the mutex guarding a replaceable address.
func (d *D) addrLock(addr []byte) (mx *sync.Mutex) {
	mx, _ = d.addrLocks.LoadOrCompute(
		string(addr), func() *sync.Mutex { return &sync.Mutex{} },
	)
	return
}

var _ io.Closer = (*D)(nil)
