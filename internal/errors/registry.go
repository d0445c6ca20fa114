package errors

import (
	"sort"
	"sync"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	DocURL     string
}

const docBase = "https://vango.dev/docs/reactive/errors/"

var registryMu sync.RWMutex

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Engine Errors (E001-E019)
	// ============================================

	"E001": {
		Category:   CategoryEngine,
		Message:    "Circular dependency detected",
		Detail:     "A computed was read while it was already computing. Computeds must form an acyclic graph.",
		Suggestion: "Break the cycle by reading one of the values with Peek() or Untrack().",
		DocURL:     docBase + "E001",
	},
	"E002": {
		Category: CategoryEngine,
		Message:  "Effect execution failed",
		Detail:   "An effect body panicked. The failure was delivered to the nearest Scope error handler, or to the unhandled error handler.",
		DocURL:   docBase + "E002",
	},
	"E003": {
		Category:   CategoryEngine,
		Message:    "Access to a disposed node",
		Detail:     "A signal or computed owned by a disposed Scope was read or written. Reads return the last value and writes are dropped.",
		Suggestion: "Stop timers and goroutines in an OnCleanup registered on the owning scope.",
		DocURL:     docBase + "E003",
	},
	"E004": {
		Category:   CategoryEngine,
		Message:    "Signal written from an effect body",
		Detail:     "Writing signals from effects causes cascading flushes and usually means a Computed was intended.",
		Suggestion: "Derive the value with NewComputed, or mark the effect with AllowWrites().",
		DocURL:     docBase + "E004",
	},
	"E005": {
		Category:   CategoryEngine,
		Message:    "Flush budget exceeded",
		Detail:     "A single flush ran more effects than the configured budget allows. Two or more effects are probably re-triggering each other.",
		Suggestion: "Look for effects that write signals they (indirectly) read, or raise engine.maxEffectRunsPerFlush.",
		DocURL:     docBase + "E005",
	},
	"E006": {
		Category: CategoryEngine,
		Message:  "Computed evaluation failed",
		Detail:   "A compute function panicked. The computed stays stale and is retried on the next read.",
		DocURL:   docBase + "E006",
	},
	"E007": {
		Category: CategoryEngine,
		Message:  "OnCleanup called outside a reactive context",
		Detail:   "OnCleanup needs a running effect, a computing computed or a current Scope to attach to.",
		DocURL:   docBase + "E007",
	},

	// ============================================
	// Devtools Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryDevtools,
		Message:  "Devtools server failed",
		Detail:   "The devtools HTTP server could not start or stopped unexpectedly.",
		DocURL:   docBase + "E100",
	},
	"E101": {
		Category: CategoryDevtools,
		Message:  "WebSocket upgrade failed",
		Detail:   "The devtools event stream could not be opened.",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryDevtools,
		Message:  "Recording upload failed",
		Detail:   "The recorded event trace could not be written to its destination.",
		DocURL:   docBase + "E102",
	},
	"E103": {
		Category:   CategoryDevtools,
		Message:    "Invalid recording destination",
		Detail:     "Recording destinations are file paths or s3://bucket/key URLs.",
		Suggestion: "Use --record trace.jsonl or --record s3://my-bucket/traces/run.jsonl.",
		DocURL:     docBase + "E103",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category:   CategoryConfig,
		Message:    "reactive.json not found",
		Detail:     "No configuration file was found in this directory or any parent.",
		Suggestion: "Run 'reactive config init' to create one.",
		DocURL:     docBase + "E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or not recognised.",
		DocURL:   docBase + "E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Configuration watch failed",
		Detail:   "The configuration file could not be watched for changes.",
		DocURL:   docBase + "E123",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Configuration file could not be written",
		DocURL:   docBase + "E124",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category:   CategoryCLI,
		Message:    "Unknown benchmark scenario",
		Suggestion: "Run 'reactive bench --list' to see the available scenarios.",
		DocURL:     docBase + "E140",
	},
	"E141": {
		Category:   CategoryCLI,
		Message:    "Configuration already exists",
		Suggestion: "Use --force to overwrite it.",
		DocURL:     docBase + "E141",
	},
}

// GetAllCodes returns all registered error codes in ascending order.
func GetAllCodes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[code] = template
}
