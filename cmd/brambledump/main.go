// Command brambledump exports and imports the relay's event store as
// line-delimited JSON events, for backup and migration.
package main

import (
	"os"

	"github.com/alexflint/go-arg"

	"bramble.dev/database"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/context"
	"bramble.dev/utils/log"
)

type ExportCmd struct {
	Out string `arg:"-o,--out" help:"file to write events to, stdout when empty"`
}

type ImportCmd struct {
	In string `arg:"-i,--in" help:"file to read events from, stdin when empty"`
}

type Args struct {
	Export   *ExportCmd `arg:"subcommand:export" help:"write the event store as line delimited JSON"`
	Import   *ImportCmd `arg:"subcommand:import" help:"read line delimited JSON events into the store"`
	DataDir  string     `arg:"-d,--datadir,required" help:"location of the badger event store"`
	LogLevel string     `arg:"--loglevel" default:"warn" help:"log level: fatal error warn info debug trace"`
}

func main() {
	var args Args
	p := arg.MustParse(&args)
	c, cancel := context.Cancel(context.Bg())
	defer cancel()
	db, err := database.New(c, cancel, args.DataDir, args.LogLevel)
	if chk.E(err) {
		os.Exit(1)
	}
	defer func() { chk.E(db.Close()) }()
	switch {
	case args.Export != nil:
		w := os.Stdout
		if args.Export.Out != "" {
			if w, err = os.Create(args.Export.Out); chk.E(err) {
				os.Exit(1)
			}
			defer func() { chk.E(w.Close()) }()
		}
		db.Export(c, w)
	case args.Import != nil:
		r := os.Stdin
		if args.Import.In != "" {
			if r, err = os.Open(args.Import.In); chk.E(err) {
				os.Exit(1)
			}
			defer func() { chk.E(r.Close()) }()
		}
		db.Import(r)
		log.I.F("import complete")
	default:
		p.WriteHelp(os.Stderr)
	}
}
