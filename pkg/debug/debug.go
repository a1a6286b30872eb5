// Package debug provides conditional debug logging for cardtree.
//
// Set CARDTREE_DEBUG to any non-empty value, or pass -debug, to turn it on:
//
//	CARDTREE_DEBUG=1 cardtree -dump
//
// Lines carry a [CARDTREE_DEBUG] prefix and a timestamp. The TUI sends them
// to the log file instead of stderr. While disabled every call returns
// immediately.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

const prefix = "[CARDTREE_DEBUG] "

var (
	enabled = os.Getenv("CARDTREE_DEBUG") != ""
	logger  = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
)

// Enabled reports whether debug output is on.
func Enabled() bool {
	return enabled
}

// SetEnabled turns debug output on or off.
func SetEnabled(e bool) {
	enabled = e
}

// SetOutput redirects debug output.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Log writes a printf-style line.
func Log(format string, args ...any) {
	if enabled {
		logger.Printf(format, args...)
	}
}

// LogIf writes a line only when cond holds.
func LogIf(cond bool, format string, args ...any) {
	if enabled && cond {
		logger.Printf(format, args...)
	}
}

// LogTiming reports how long name took.
func LogTiming(name string, d time.Duration) {
	if enabled {
		logger.Printf("%s took %v", name, d)
	}
}

// Dump writes v with its type.
func Dump(name string, v any) {
	if enabled {
		logger.Printf("%s: %T = %+v", name, v, v)
	}
}

// Section writes a header line that groups the lines after it.
func Section(name string) {
	if enabled {
		logger.Printf("=== %s ===", name)
	}
}

// Assert panics when cond is false. It is a no-op unless debugging is on.
func Assert(cond bool, format string, args ...any) {
	if !enabled || cond {
		return
	}
	msg := fmt.Sprintf(format, args...)
	logger.Printf("ASSERTION FAILED: %s", msg)
	panic("debug assertion failed: " + msg)
}
