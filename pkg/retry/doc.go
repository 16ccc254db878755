// Package retry provides exponential backoff retry logic for PlayKit
// request handlers.
//
// A request declares an optional retry Policy; the task queue wraps the
// handler invocation with Do so transient target failures (a media engine
// that is momentarily busy, a source that has not finished loading) are
// retried with backoff while the task stays pending. Cancellation of the
// task's context aborts both in-progress backoff sleeps and further
// attempts.
//
// Handlers mark unrecoverable failures with NonRetryable to fail fast:
//
//	if pos > duration {
//	    return nil, retry.NonRetryable(fmt.Errorf("seek past end: %v", pos))
//	}
package retry
