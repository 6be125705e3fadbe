// Package config provides a go-simpler.org/env configuration table and
// helpers for working with the key/value lists stored in .env files.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"go-simpler.org/env"

	env2 "bramble.dev/utils/env"

	"bramble.dev/utils/apputil"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/log"
	"bramble.dev/utils/lol"
	"bramble.dev/version"
)

// C is the relay configuration. Values are read from the environment, and a
// .env file in the config dir overrides the environment if present.
type C struct {
	AppName    string `env:"BRAMBLE_APP_NAME" default:"bramble"`
	Config     string `env:"BRAMBLE_CONFIG_DIR" usage:"location of the .env configuration file"`
	DataDir    string `env:"BRAMBLE_DATA_DIR" usage:"storage location for the badger event store"`
	Listen     string `env:"BRAMBLE_LISTEN" default:"0.0.0.0" usage:"network listen address"`
	Port       int    `env:"BRAMBLE_PORT" default:"3334" usage:"port to listen on"`
	LogLevel   string `env:"BRAMBLE_LOG_LEVEL" default:"info" usage:"log level: fatal error warn info debug trace"`
	DbLogLevel string `env:"BRAMBLE_DB_LOG_LEVEL" default:"info" usage:"badger log level: fatal error warn info debug trace"`
	Pprof      bool   `env:"BRAMBLE_PPROF" default:"false" usage:"enable pprof profiles, written to the data dir"`

	RelayURL         string `env:"BRAMBLE_RELAY_URL" usage:"canonical websocket URL of this relay, used for NIP-42 when set; derived from the request otherwise"`
	RelayName        string `env:"BRAMBLE_RELAY_NAME" usage:"relay name for the NIP-11 document; defaults to the app name"`
	RelayDescription string `env:"BRAMBLE_RELAY_DESCRIPTION" usage:"relay description for the NIP-11 document"`
	RelayContact     string `env:"BRAMBLE_RELAY_CONTACT" usage:"relay operator contact for the NIP-11 document"`
	RelayIcon        string `env:"BRAMBLE_RELAY_ICON" usage:"relay icon URL for the NIP-11 document"`
	RelaySec         string `env:"BRAMBLE_RELAY_SEC" usage:"hex secret key the relay signs group state events with; generated and stored in the data dir when empty"`

	AuthRequired        bool     `env:"BRAMBLE_AUTH_REQUIRED" default:"false" usage:"demand NIP-42 authentication before accepting any message"`
	AuthRequiredKinds   []int    `env:"BRAMBLE_AUTH_REQUIRED_KINDS" usage:"comma separated kinds that demand NIP-42 authentication even when auth is otherwise optional"`
	LegacyReplaceable   bool     `env:"BRAMBLE_LEGACY_REPLACEABLE" default:"false" usage:"narrow plain replaceable handling to kind 0 only"`
	ForbiddenKinds      []int    `env:"BRAMBLE_FORBIDDEN_KINDS" usage:"comma separated kinds that are never accepted"`
	RequiredTags        []string `env:"BRAMBLE_REQUIRED_TAGS" usage:"comma separated kind:tag pairs, each kind demanding the named tag, e.g. 30023:d"`
	RequireContentKinds []int    `env:"BRAMBLE_REQUIRE_CONTENT_KINDS" usage:"comma separated kinds whose content must not be empty"`
	BlockedTagValues    []string `env:"BRAMBLE_BLOCKED_TAG_VALUES" usage:"comma separated name:value tag pairs that are never accepted"`
	BlockedPubkeys      []string `env:"BRAMBLE_BLOCKED_PUBKEYS" usage:"comma separated hex pubkeys whose events are rejected"`
	AllowedPubkeys      []string `env:"BRAMBLE_ALLOWED_PUBKEYS" usage:"comma separated hex pubkeys; when set, only their events are accepted"`
	GroupCreators       []string `env:"BRAMBLE_GROUP_CREATORS" usage:"comma separated hex pubkeys permitted to create groups; the relay key always may"`

	MaxTags             int `env:"BRAMBLE_MAX_TAGS" default:"2000" usage:"maximum number of tags an accepted event may carry"`
	MaxContentBytes     int `env:"BRAMBLE_MAX_CONTENT_BYTES" default:"262144" usage:"maximum content field length of an accepted event"`
	MaxFutureSeconds    int `env:"BRAMBLE_MAX_FUTURE_SECONDS" default:"900" usage:"how far in the future an event created_at may be"`
	MaxPastSeconds      int `env:"BRAMBLE_MAX_PAST_SECONDS" default:"0" usage:"how far in the past an event created_at may be, 0 for no bound"`
	MaxLimit            int `env:"BRAMBLE_MAX_LIMIT" default:"512" usage:"cap on the limit field of filters"`
	QueryTimeoutSeconds int `env:"BRAMBLE_QUERY_TIMEOUT_SECONDS" default:"10" usage:"stored-event query watchdog timeout"`
	MaxConnections      int `env:"BRAMBLE_MAX_CONNECTIONS" default:"1024" usage:"cap on concurrent TCP connections"`
}

// New creates a config.C, loading the environment and any .env file found
// in the config dir.
func New() (cfg *C, err error) {
	cfg = &C{}
	if err = env.Load(cfg, &env.Options{SliceSep: ","}); chk.T(err) {
		return
	}
	if cfg.Config == "" {
		cfg.Config = filepath.Join(xdg.ConfigHome, cfg.AppName)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(xdg.DataHome, cfg.AppName)
	}
	envPath := filepath.Join(cfg.Config, ".env")
	if apputil.FileExists(envPath) {
		var e env2.Env
		if e, err = env2.GetEnv(envPath); chk.T(err) {
			return
		}
		if err = env.Load(
			cfg, &env.Options{SliceSep: ",", Source: e},
		); chk.E(err) {
			return
		}
		lol.SetLogLevel(cfg.LogLevel)
		log.I.F("loaded configuration from %s", envPath)
	}
	return
}

// HelpRequested returns true if any common help invocation is the first
// command line parameter.
func HelpRequested() (help bool) {
	if len(os.Args) > 1 {
		switch strings.ToLower(os.Args[1]) {
		case "help", "-h", "--h", "-help", "--help", "?":
			help = true
		}
	}
	return
}

// GetEnv reports whether the first command line parameter asks for the
// current settings as environment variable key/values.
func GetEnv() (requested bool) {
	if len(os.Args) > 1 {
		switch strings.ToLower(os.Args[1]) {
		case "env":
			requested = true
		}
	}
	return
}

// KV is a key/value pair.
type KV struct{ Key, Value string }

// KVSlice is a sortable collection of key/value pairs.
type KVSlice []KV

func (kv KVSlice) Len() int           { return len(kv) }
func (kv KVSlice) Less(i, j int) bool { return kv[i].Key < kv[j].Key }
func (kv KVSlice) Swap(i, j int)      { kv[i], kv[j] = kv[j], kv[i] }

// Compose merges two KVSlice together, values of later keys replacing
// earlier ones with the same name.
func (kv KVSlice) Compose(kv2 KVSlice) (out KVSlice) {
	out = append(out, kv...)
out:
	for i, p := range kv2 {
		for j, q := range out {
			if p.Key == q.Key {
				out[j].Value = kv2[i].Value
				continue out
			}
		}
		out = append(out, p)
	}
	return
}

// EnvKV turns a struct with `env` tags into a KVSlice. Dereference pointer
// types before passing.
func EnvKV(cfg any) (m KVSlice) {
	t := reflect.TypeOf(cfg)
	for i := 0; i < t.NumField(); i++ {
		k := t.Field(i).Tag.Get("env")
		if k == "" {
			continue
		}
		v := reflect.ValueOf(cfg).Field(i).Interface()
		var val string
		switch x := v.(type) {
		case string:
			val = x
		case int, bool, time.Duration:
			val = fmt.Sprint(x)
		case []string:
			val = strings.Join(x, ",")
		case []int:
			var parts []string
			for _, n := range x {
				parts = append(parts, fmt.Sprint(n))
			}
			val = strings.Join(parts, ",")
		}
		m = append(m, KV{k, val})
	}
	return
}

// PrintEnv renders the key/values of a config.C to a writer.
func PrintEnv(cfg *C, printer io.Writer) {
	kvs := EnvKV(*cfg)
	sort.Sort(kvs)
	for _, v := range kvs {
		_, _ = fmt.Fprintf(printer, "%s=%s\n", v.Key, v.Value)
	}
}

// PrintHelp outputs a help text listing the configuration options and their
// current values.
func PrintHelp(cfg *C, printer io.Writer) {
	_, _ = fmt.Fprintf(printer, "%s %s\n\n", cfg.AppName, version.V)
	_, _ = fmt.Fprintf(
		printer,
		"Environment variables that configure %s:\n\n", cfg.AppName,
	)
	env.Usage(cfg, printer, &env.Options{SliceSep: ","})
	_, _ = fmt.Fprintf(
		printer,
		"\nCLI parameter 'help' also prints this information\n"+
			"\na .env file at %s/.env is loaded automatically and "+
			"overrides the environment\n\n"+
			"use the parameter 'env' to print the current configuration:\n\n"+
			"\t%s env > %s/.env\n",
		cfg.Config, os.Args[0], cfg.Config,
	)
	_, _ = fmt.Fprintf(printer, "\ncurrent configuration:\n\n")
	PrintEnv(cfg, printer)
	fmt.Fprintln(printer)
}
