// Package perrors provides classified, type-safe error primitives used
// across pankat.
//
// This package contains classified error types and helpers for robust error
// handling, including a fluent builder API for constructing ClassifiedError
// values with context.
//
// Key features:
//   - ErrorCategory: broad error classification (directive, render, index,
//     output, watcher, config, sentinel, internal)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: retry behavior (never, immediate, backoff, user)
//   - ClassifiedError: structured error with category, severity, and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter for error presentation and exit-code determination
//
// Example usage:
//
//	err := perrors.NewError(perrors.CategoryIndex, "upsert failed").
//		WithSeverity(perrors.SeverityError).
//		WithRetry(perrors.RetryBackoff).
//		WithContext("src_rel_path", relPath).
//		Build()
package perrors
