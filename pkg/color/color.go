// Package color provides terminal color output for the sumerian CLI.
// It respects the NO_COLOR environment variable (https://no-color.org/).
package color

import (
	"os"
	"sync"
	"sync/atomic"
)

var state struct {
	once       sync.Once
	enabled    atomic.Bool
	overridden atomic.Bool
}

// Init decides once whether color is on, from NO_COLOR, TERM=dumb and
// the --no-color flag. Enable and Disable override it.
func Init(noColorFlag bool) {
	state.once.Do(func() {
		if state.overridden.Load() {
			return
		}
		_, noColorEnv := os.LookupEnv("NO_COLOR")
		state.enabled.Store(!noColorEnv && os.Getenv("TERM") != "dumb" && !noColorFlag)
	})
}

// Enabled reports whether color output is on.
func Enabled() bool {
	Init(false)
	return state.enabled.Load()
}

// Disable turns color output off.
func Disable() {
	state.overridden.Store(true)
	state.enabled.Store(false)
}

// Enable turns color output on.
func Enable() {
	state.overridden.Store(true)
	state.enabled.Store(true)
}

const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	DimCode = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Cyan    = "\033[36m"
)

func wrap(code, s string) string {
	if !Enabled() {
		return s
	}
	return code + s + Reset
}

// Success formats allowed and completed outcomes.
func Success(s string) string { return wrap(Green, s) }

// Error formats denials and failures.
func Error(s string) string { return wrap(Red, s) }

// Warning formats skipped items.
func Warning(s string) string { return wrap(Yellow, s) }

// ID formats snapshot and checkpoint ids.
func ID(s string) string { return wrap(Cyan, s) }

// Dir formats directory names in listings.
func Dir(s string) string { return wrap(Blue+Bold, s) }

// Header formats table headers.
func Header(s string) string { return wrap(Bold, s) }

// Dim formats secondary information.
func Dim(s string) string { return wrap(DimCode, s) }
