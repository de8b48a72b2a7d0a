// Package types defines the shared vocabulary of the excavation core:
// typed errors with stable categories, diagnostics attached to artifacts,
// and the options and limits that tune a run.
//
// Design goals:
//   - Typed errors so callers branch on intent rather than text.
//   - Malformed input becomes a Diagnostic, never a panic or an abort.
//   - Small value types that are cheap to copy and safe to serialize.
//
// This package has no dependencies beyond the standard library.
package types
