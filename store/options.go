package store

import (
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/c360/playkit/metric"
	"github.com/c360/playkit/task"
)

// Option represents a configuration option for the store. Options that
// concern the task queue return the queue options to forward.
type Option[T comparable] func(*Store[T]) []task.Option

// WithLogger sets the logger used for lifecycle and error events
func WithLogger[T comparable](logger *slog.Logger) Option[T] {
	return func(s *Store[T]) []task.Option {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithOnError sets the hook invoked with every request failure,
// subscribe failure and invalid dispatch. The default logs at error
// level. Request cancellations are not reported.
func WithOnError[T comparable](fn func(error)) Option[T] {
	return func(s *Store[T]) []task.Option {
		if fn != nil {
			s.onError = fn
		}
		return nil
	}
}

// WithMetrics registers store and task metrics with the given registry
func WithMetrics[T comparable](registry *metric.Registry) Option[T] {
	return func(s *Store[T]) []task.Option {
		if registry == nil {
			return nil
		}
		s.metrics = registry.Metrics
		return []task.Option{task.WithMetrics(registry)}
	}
}

// WithRateLimit bounds the request dispatch rate; starts beyond it are
// rejected immediately with ErrRateLimited.
func WithRateLimit[T comparable](limit rate.Limit, burst int) Option[T] {
	return func(s *Store[T]) []task.Option {
		return []task.Option{task.WithRateLimit(limit, burst)}
	}
}
