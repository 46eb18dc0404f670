// Package errors provides structured, coded errors for ripple.
//
// Every failure the runtime reports outside of a plain return value (a
// computation unit that panicked, a next-tick callback that failed, an
// update loop that never settles, a template that will not parse) is
// described by an *Error carrying a registered code:
//
//	err := errors.New("R001").
//	    WithDetail(`unit "render:counter" panicked`).
//	    Wrap(cause)
//
//	fmt.Fprint(os.Stderr, err.Format())
//	// ERROR R001: Computation unit failed
//	//
//	//   unit "render:counter" panicked
//	//
//	//   Hint: The unit was skipped for this flush; other units still ran.
//
// # Error Categories
//
//   - runtime: scheduler and reactivity failures
//   - reconcile: tree reconciliation diagnostics
//   - template: template parse and directive errors
//   - config: configuration loading and validation
//   - storage: snapshot backends
//   - transport: live websocket transport
package errors
