// Package chk provides one-character error check helpers that log a non-nil
// error at a given level and return whether it was non-nil, enabling the
// idiom:
//
//	if err = thing(); chk.E(err) {
//		return
//	}
package chk

import (
	"bramble.dev/utils/log"
)

// E logs a non-nil error at error level and reports whether it was non-nil.
func E(err error) bool { return log.E.Err(err) }

// W logs at warn level.
func W(err error) bool { return log.W.Err(err) }

// D logs at debug level.
func D(err error) bool { return log.D.Err(err) }

// T logs at trace level.
func T(err error) bool { return log.T.Err(err) }

// F logs at fatal level.
func F(err error) bool { return log.F.Err(err) }
