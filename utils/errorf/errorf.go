// Package errorf provides formatted error constructors that also log the
// error at the matching level, so the site of creation appears in the log.
package errorf

import (
	"fmt"

	"bramble.dev/utils/log"
)

// E creates a new error and logs it at error level.
func E(format string, a ...any) (err error) {
	err = fmt.Errorf(format, a...)
	log.E.Err(err)
	return
}

// W creates a new error and logs it at warn level.
func W(format string, a ...any) (err error) {
	err = fmt.Errorf(format, a...)
	log.W.Err(err)
	return
}

// D creates a new error and logs it at debug level.
func D(format string, a ...any) (err error) {
	err = fmt.Errorf(format, a...)
	log.D.Err(err)
	return
}
