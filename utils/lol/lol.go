// Package lol (log of location) is a leveled logger that prints a timestamp,
// the log level, and the code location of the call site, with levels colored
// for quick scanning in a terminal.
package lol

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

// Log levels, lowest to highest verbosity.
const (
	Off = iota
	Fatal
	Error
	Warn
	Info
	Debug
	Trace
)

// LevelNames are the string forms of the log levels as used in configuration.
var LevelNames = []string{"off", "fatal", "error", "warn", "info", "debug", "trace"}

var (
	mx      sync.Mutex
	level   = Info
	writer  io.Writer = os.Stderr
	colours           = []func(a ...any) string{
		nil,
		color.New(color.FgRed, color.Bold).SprintFunc(),
		color.New(color.FgRed).SprintFunc(),
		color.New(color.FgYellow).SprintFunc(),
		color.New(color.FgGreen).SprintFunc(),
		color.New(color.FgBlue).SprintFunc(),
		color.New(color.FgMagenta).SprintFunc(),
	}
)

// SetLogLevel sets the global log level from its name. Unknown names leave
// the level unchanged.
func SetLogLevel(name string) {
	mx.Lock()
	defer mx.Unlock()
	for i, v := range LevelNames {
		if strings.ToLower(name) == v {
			level = i
		}
	}
}

// GetLogLevel returns the level number for a level name, defaulting to Info.
func GetLogLevel(name string) (l int) {
	l = Info
	for i, v := range LevelNames {
		if strings.ToLower(name) == v {
			l = i
		}
	}
	return
}

// SetWriter redirects log output, mainly for tests.
func SetWriter(w io.Writer) {
	mx.Lock()
	defer mx.Unlock()
	writer = w
}

// L is one log level printer, accessed via the short names in utils/log.
type L struct {
	Level int
}

// New creates a printer bound to a level.
func New(l int) *L { return &L{Level: l} }

func (l *L) enabled() bool {
	mx.Lock()
	defer mx.Unlock()
	return level >= l.Level
}

func (l *L) print(text string) {
	loc := "???"
	if _, file, line, ok := runtime.Caller(3); ok {
		// trim to the last two path segments, enough to find the file
		parts := strings.Split(file, "/")
		if len(parts) > 2 {
			parts = parts[len(parts)-2:]
		}
		loc = fmt.Sprintf("%s:%d", strings.Join(parts, "/"), line)
	}
	name := LevelNames[l.Level]
	if c := colours[l.Level]; c != nil {
		name = c(name)
	}
	mx.Lock()
	defer mx.Unlock()
	fmt.Fprintf(
		writer, "%s %s %s %s\n",
		time.Now().Format("2006-01-02T15:04:05.000000"), name,
		strings.TrimRight(text, "\n"), loc,
	)
}

// F prints a formatted log line.
func (l *L) F(format string, a ...any) {
	if !l.enabled() {
		return
	}
	l.print(fmt.Sprintf(format, a...))
}

// Ln prints the arguments space separated.
func (l *L) Ln(a ...any) {
	if !l.enabled() {
		return
	}
	l.print(strings.TrimRight(fmt.Sprintln(a...), "\n"))
}

// S dumps values with spew for debugging structures.
func (l *L) S(a ...any) {
	if !l.enabled() {
		return
	}
	l.print(strings.TrimRight(spew.Sdump(a...), "\n"))
}

// Err logs an error value if it is not nil and reports whether it was.
func (l *L) Err(err error) (is bool) {
	if err == nil {
		return
	}
	if l.enabled() {
		l.print(err.Error())
	}
	return true
}
