// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package astimewheel

import (
	"github.com/intuitivelabs/slog"
)

// Log is the logger used by the whole package.
// Use slog.SetLevel(&Log, ...) to change the log level
// (e.g. slog.SetLevel(&Log, slog.LDBG) to enable debug logging).
var Log slog.Log = slog.New(slog.LNOTICE, slog.LOptNone, slog.LStdErr)

// DBGon returns true if debug logging is enabled.
func DBGon() bool {
	return Log.DBGon()
}

// WARNon returns true if warning logging is enabled.
func WARNon() bool {
	return Log.WARNon()
}

// ERRon returns true if error logging is enabled.
func ERRon() bool {
	return Log.ERRon()
}

// DBG is a shorthand for logging a debug message.
func DBG(f string, a ...interface{}) {
	Log.LLog(slog.LDBG, 1, "DBG: astimewheel: ", f, a...)
}

// WARN is a shorthand for logging a warning message.
func WARN(f string, a ...interface{}) {
	Log.LLog(slog.LWARN, 1, "WARNING: astimewheel: ", f, a...)
}

// ERR is a shorthand for logging an error message.
func ERR(f string, a ...interface{}) {
	Log.LLog(slog.LERR, 1, "ERROR: astimewheel: ", f, a...)
}

// BUG is a shorthand for logging a bug message.
func BUG(f string, a ...interface{}) {
	Log.LLog(slog.LBUG, 1, "BUG: astimewheel: ", f, a...)
}

// PANIC logs a critical message and panics.
func PANIC(f string, a ...interface{}) {
	Log.LLog(slog.LCRIT, 1, "PANIC: astimewheel: ", f, a...)
	panic("astimewheel: internal invariant violated")
}
