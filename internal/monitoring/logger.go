package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or embedding hosts can redirect or mute
// it without touching the pipeline packages.
var Logf func(format string, v ...interface{}) = log.Printf

// Warnf logs a non-fatal condition (dropped bone mapping, discarded tracker
// line) through the same sink as Logf with a recognisable prefix.
func Warnf(format string, v ...interface{}) {
	Logf("warn: "+format, v...)
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
