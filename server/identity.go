package server

import (
	"os"
	"path/filepath"
	"strings"

	"bramble.dev/config"
	"bramble.dev/crypto/p256k"
	"bramble.dev/encoders/hex"
	"bramble.dev/interfaces/signer"
	"bramble.dev/utils/apputil"
	"bramble.dev/utils/chk"
	"bramble.dev/utils/log"
)

const secKeyFile = "relay.sec"

// LoadIdentity returns the relay's signing key: the configured hex secret
// when set, otherwise one loaded from the data dir, generated and persisted
// on first run. The relay signs group state events with it.
func LoadIdentity(cfg *config.C) (keys signer.I, err error) {
	s := &p256k.Signer{}
	if cfg.RelaySec != "" {
		var sec []byte
		if sec, err = hex.Dec(cfg.RelaySec); chk.E(err) {
			return
		}
		if err = s.InitSec(sec); chk.E(err) {
			return
		}
		return s, nil
	}
	path := filepath.Join(cfg.DataDir, secKeyFile)
	if apputil.FileExists(path) {
		var b []byte
		if b, err = os.ReadFile(path); chk.E(err) {
			return
		}
		var sec []byte
		if sec, err = hex.Dec(strings.TrimSpace(string(b))); chk.E(err) {
			return
		}
		if err = s.InitSec(sec); chk.E(err) {
			return
		}
		return s, nil
	}
	if err = s.Generate(); chk.E(err) {
		return
	}
	if err = apputil.EnsureDir(path); chk.E(err) {
		return
	}
	if err = os.WriteFile(
		path, []byte(hex.Enc(s.Sec())), 0600,
	); chk.E(err) {
		return
	}
	log.I.F("generated relay identity %0x, stored in %s", s.Pub(), path)
	return s, nil
}
