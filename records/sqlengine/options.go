package sqlengine

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/yriy-kuskov/cakereact-core/records"
)

// Option defines a functional option for configuring Engine.
type Option func(*Engine) error

// WithDialect selects the SQL dialect the statements are rendered in (default "postgres").
func WithDialect(name string) Option {
	return func(e *Engine) error {
		if !knownDialect(name) {
			return fmt.Errorf("%w: %q", ErrUnknownDialect, name)
		}

		e.dialectName = name
		e.dialect = goqu.Dialect(name)

		return nil
	}
}

// WithLogger sets the logger for the Engine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: Row counts and durations per operation (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger records.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger. It takes precedence over WithLogger.
func WithContextualLogger(logger records.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
func WithMetrics(collector records.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine.
func WithTracing(collector records.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}
