// Package netlog provides leveled logging for the stack's drop
// diagnostics (RouteMiss, TTLExhausted, malformed frames, expired ARP
// resolutions) and startup failures.
package netlog

import (
	"fmt"

	"github.com/pterm/pterm"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "15:04:05.000"
}

// Debugf logs a debug-level message (RouteMiss, TTLExhausted, parse
// failures — all of it equivalent to packet loss from the upper layers'
// perspective, per the error handling design).
func Debugf(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

// Infof logs an info-level message.
func Infof(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a warn-level message.
func Warnf(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

// EnableDebug turns on debug-level output.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}
