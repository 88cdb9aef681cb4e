// Package errors provides structured error types for the notify-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: field path, discriminator
// tag, offending value, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindInvalidField).
//		Path("details", "cost").
//		Tag("AsyncCallInfo").
//		Detail("cost must be a non-negative integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MalformedEnvelope("missing id", nil)
//	err := errors.StaleToken(uint64(token))
//
// All errors implement the standard error interface and support errors.Is/As.
// Matching with errors.Is compares Phase and Kind only, so sentinel values
// like &Error{Phase: PhaseParse, Kind: KindMalformedEnvelope} match every
// malformed envelope regardless of detail.
package errors
