// Package errors provides standardized error handling patterns for PlayKit.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable),
// and Fatal (unrecoverable, stop processing).
//
// Classification lets the task queue and store make informed decisions about
// retries and graceful degradation without error string matching. It
// integrates with Go's standard error handling, supporting errors.Is(),
// errors.As(), and wrapping chains.
//
// # Error Taxonomy
//
// PlayKit distinguishes four error situations, each with its own routing:
//
//   - Construction errors (ErrDuplicateRequest, ErrDuplicateFeature,
//     ErrInvalidConfig): returned synchronously when a descriptor is built
//     or combined. Fatal to setup.
//   - Attach-time errors: a single feature's subscribe failing is reported
//     through the store's error hook and marks that feature degraded; it
//     never prevents sibling features from attaching.
//   - Task errors: a request handler's failure settles its task rejected
//     and surfaces to the caller; it is also reported through the store's
//     error hook for centralized logging.
//   - Usage errors (ErrNotAttached, ErrUnknownRequest): returned as
//     rejected tasks rather than panics, so calling UI code can surface
//     feedback without crashing.
//
// # Quick Start
//
// Return standard error variables for known conditions:
//
//	if !attached {
//	    return errors.ErrNotAttached
//	}
//
// Wrap errors with component context for debugging:
//
//	if err := member.Subscribe(sc); err != nil {
//	    return errors.Wrap(err, "Store", "Attach", "feature subscribe")
//	}
//
// Check classification for retry logic:
//
//	if errors.IsTransient(err) {
//	    // schedule another attempt
//	}
package errors
