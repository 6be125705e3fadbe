package database

import (
	"strings"

	"github.com/dgraph-io/badger/v4"

	"bramble.dev/utils/log"
	"bramble.dev/utils/lol"
)

// logger adapts the leveled logger to badger's Logger interface. Badger is
// chatty at INFO so its output maps one level down.
type logger struct {
	level *lol.L
}

var _ badger.Logger = (*logger)(nil)

// NewLogger creates a badger logger adapter at the given level.
func NewLogger(level int) (l *logger) {
	return &logger{level: lol.New(level)}
}

// SetLogLevel changes the level of the adapter.
func (l *logger) SetLogLevel(level int) { l.level.Level = level }

func (l *logger) p(f string, v ...any) string {
	return strings.TrimSpace(strings.TrimSuffix(f, "\n"))
}

func (l *logger) Errorf(f string, v ...any) {
	if l.level.Level >= lol.Error {
		log.E.F(l.p(f), v...)
	}
}

func (l *logger) Warningf(f string, v ...any) {
	if l.level.Level >= lol.Warn {
		log.W.F(l.p(f), v...)
	}
}

func (l *logger) Infof(f string, v ...any) {
	if l.level.Level >= lol.Debug {
		log.D.F(l.p(f), v...)
	}
}

func (l *logger) Debugf(f string, v ...any) {
	if l.level.Level >= lol.Trace {
		log.T.F(l.p(f), v...)
	}
}
