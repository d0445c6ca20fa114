// Package errors provides structured, actionable error messages for the
// reactive engine, its configuration loader, devtools and CLI.
//
// # Error Categories
//
// Errors are organized into categories:
//   - engine: failures raised by pkg/reactive (cycles, effect panics, stale access)
//   - config: configuration loading, validation and watching
//   - devtools: devtools server and event recording
//   - cli: command line usage errors
//
// # Error Codes
//
// Each error has a unique code (e.g., "E001") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// The engine error types in pkg/reactive expose the same codes through a
// Code() method, so FromError keeps them when wrapping.
//
// # Usage
//
//	err := errors.New("E122").
//	    WithLocation("reactive.json", 0, 0).
//	    WithDetail("engine.strictEffects must be off, warn or panic")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E122: Invalid configuration value
//	//
//	//   reactive.json
//	//
//	//   engine.strictEffects must be off, warn or panic
//	//
//	//   Learn more: https://vango.dev/docs/reactive/errors/E122
package errors
