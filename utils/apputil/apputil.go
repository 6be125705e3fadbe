// Package apputil has small helpers for files and directories.
package apputil

import (
	"os"
	"path/filepath"

	"bramble.dev/utils/chk"
)

// EnsureDir creates the parent directories of a file path if they do not
// exist yet.
func EnsureDir(fileName string) (err error) {
	dirName := filepath.Dir(fileName)
	if _, e := os.Stat(dirName); e != nil {
		if err = os.MkdirAll(dirName, 0755); chk.E(err) {
			return
		}
	}
	return
}

// FileExists reports whether the named file or directory exists.
func FileExists(filePath string) bool {
	_, e := os.Stat(filePath)
	return e == nil
}
