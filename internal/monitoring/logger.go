// Package monitoring holds the process-wide log and diagnostic sinks.
//
// Logf carries operator logging (timestamps, request lines, migrations).
// Diagf carries the short user-facing diagnostics the explorer prints while
// loading batches and rendering selections: skipped files, missing
// coordinates and selection hints. Both may be swapped out by tests.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var (
	diagMu  sync.Mutex
	diagOut io.Writer = os.Stdout
)

// Diagf writes one user-facing diagnostic line to the diagnostics writer
// (stdout unless replaced with SetDiagnostics). A trailing newline is added.
func Diagf(format string, v ...interface{}) {
	diagMu.Lock()
	defer diagMu.Unlock()
	fmt.Fprintf(diagOut, format+"\n", v...)
}

// SetDiagnostics redirects Diagf output and returns the previous writer.
// Passing nil discards diagnostics.
func SetDiagnostics(w io.Writer) io.Writer {
	diagMu.Lock()
	defer diagMu.Unlock()
	prev := diagOut
	if w == nil {
		w = io.Discard
	}
	diagOut = w
	return prev
}
