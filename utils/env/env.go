// Package env reads .env style files into a lookup source usable with
// go-simpler.org/env.
package env

import (
	"bufio"
	"os"
	"strings"

	"bramble.dev/utils/chk"
)

// Env is a set of KEY=value pairs from a .env file.
type Env map[string]string

// LookupEnv implements the env.Source interface of go-simpler.org/env.
func (e Env) LookupEnv(key string) (s string, ok bool) {
	s, ok = e[key]
	return
}

// GetEnv loads a .env file. Lines starting with # and lines without an =
// are skipped.
func GetEnv(path string) (e Env, err error) {
	var f *os.File
	if f, err = os.Open(path); chk.E(err) {
		return
	}
	defer f.Close()
	e = make(Env)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 1 {
			continue
		}
		e[strings.TrimSpace(line[:eq])] = strings.TrimSpace(line[eq+1:])
	}
	err = sc.Err()
	return
}
