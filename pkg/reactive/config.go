package reactive

import (
	"log/slog"
	"sync/atomic"
)

// DevMode enables development-time checks and panics for invalid operations.
// When true:
//   - Reads and writes of nodes owned by a disposed Scope panic with
//     *StaleAccessError
//   - OnCleanup outside any reactive context panics
//
// When false (production) the same operations are silently ignored.
//
// Set this at application startup:
//
//	func main() {
//	    reactive.DevMode = os.Getenv("REACTIVE_DEV") == "1"
//	    // ...
//	}
var DevMode = false

// DebugMode enables debug logging of transaction boundaries (TxNamed).
// This should be set at startup and not changed during runtime.
var DebugMode bool

// StrictEffectMode controls how signal writes made by an effect body are
// handled. Writes from effects cause cascading flushes and are usually a
// sign that a Computed was intended.
type StrictEffectMode int

const (
	// StrictEffectOff disables effect-time write detection.
	StrictEffectOff StrictEffectMode = iota

	// StrictEffectWarn logs a warning when an effect writes to a signal
	// without the AllowWrites() option.
	StrictEffectWarn

	// StrictEffectPanic panics when an effect writes to a signal without
	// the AllowWrites() option.
	StrictEffectPanic
)

// String returns the configuration name of the mode.
func (m StrictEffectMode) String() string {
	switch m {
	case StrictEffectWarn:
		return "warn"
	case StrictEffectPanic:
		return "panic"
	default:
		return "off"
	}
}

// ParseStrictEffectMode parses "off", "warn" or "panic".
func ParseStrictEffectMode(s string) (StrictEffectMode, bool) {
	switch s {
	case "", "off":
		return StrictEffectOff, true
	case "warn":
		return StrictEffectWarn, true
	case "panic":
		return StrictEffectPanic, true
	default:
		return StrictEffectOff, false
	}
}

// EffectStrictMode controls global effect-time write detection.
var EffectStrictMode = StrictEffectOff

// DebugConfig controls debugging features for development.
type DebugConfig struct {
	// LogEffectRuns logs each effect run with timing information.
	// Default: false.
	LogEffectRuns bool

	// LogStaleAccess logs reads and writes of disposed nodes when DevMode
	// is off. Default: false.
	LogStaleAccess bool

	// LogFlushBudget logs when the flush budget is exceeded in addition to
	// reporting ErrFlushBudgetExceeded. Default: true.
	LogFlushBudget bool
}

// DefaultDebugConfig returns a DebugConfig with run logging disabled.
func DefaultDebugConfig() DebugConfig {
	return DebugConfig{
		LogEffectRuns:  false,
		LogStaleAccess: false,
		LogFlushBudget: true,
	}
}

// Debug is the global debug configuration.
// Modify this at application startup to enable debugging features.
var Debug = DefaultDebugConfig()

var packageLogger atomic.Pointer[slog.Logger]

// SetLogger sets the logger used by the engine. A nil logger restores
// slog.Default().
func SetLogger(l *slog.Logger) {
	packageLogger.Store(l)
}

// Logger returns the logger used by the engine.
func Logger() *slog.Logger {
	if l := packageLogger.Load(); l != nil {
		return l
	}
	return slog.Default()
}
