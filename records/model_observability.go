package records

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	operationFind     = "find"
	operationFindByID = "find_by_id"
	operationSave     = "save"
	operationDelete   = "delete"
)

const (
	spanNamePrefixModel = "records.model."

	metricModelOperationDuration = "records_model_operation_duration_seconds"
	metricModelOperationErrors   = "records_model_operation_errors_total"
)

const (
	logMsgOperationCancelled = "model operation cancelled: "
	logMsgOperationFailed    = "model operation failed: "
	logMsgOperationCompleted = "model operation completed: "

	logAttrTable      = "table"
	logAttrOperation  = "operation"
	logAttrError      = "error"
	logAttrErrorType  = "error_type"
	logAttrDurationMS = "duration_ms"
	logAttrStatus     = "status"
)

const (
	errorTypeValidation = "validation"
	errorTypeListener   = "listener"
	errorTypeHook       = "hook"
	errorTypeConnection = "connection"
	errorTypeRelation   = "relation"
	errorTypeBackend    = "backend"
)

// classifyError maps an error returned by a Model operation to a low-cardinality label.
func classifyError(err error) string {
	switch {
	case errors.Is(err, ErrValidationFailed):
		return errorTypeValidation
	case errors.Is(err, ErrListenerFailed):
		return errorTypeListener
	case errors.Is(err, ErrHookFailed):
		return errorTypeHook
	case errors.Is(err, ErrUnknownConnection):
		return errorTypeConnection
	case errors.Is(err, ErrUnknownRelation):
		return errorTypeRelation
	default:
		return errorTypeBackend
	}
}

// startOperation starts a span for a Model operation if the tracing collector is configured.
func (m *Model) startOperation(ctx context.Context, operation string) (context.Context, SpanContext) {
	if m.tracingCollector == nil {
		return ctx, nil
	}

	return m.tracingCollector.StartSpan(ctx, spanNamePrefixModel+operation, map[string]string{
		logAttrTable:     m.table,
		logAttrOperation: operation,
	})
}

// finishOperation closes the span, records the duration and error metrics, and logs cancellations and failures.
func (m *Model) finishOperation(
	ctx context.Context,
	span SpanContext,
	operation string,
	start time.Time,
	status string,
	err error,
) {
	duration := time.Since(start)
	labels := map[string]string{
		logAttrTable:     m.table,
		logAttrOperation: operation,
		logAttrStatus:    status,
	}

	spanAttrs := map[string]string{}

	switch status {
	case StatusError:
		errorType := classifyError(err)
		spanAttrs[logAttrErrorType] = errorType
		m.incrementErrorCounter(ctx, operation, errorType)
		m.logError(ctx, logMsgOperationFailed+operation, err, logAttrTable, m.table)

	case StatusCancelled:
		m.logInfo(ctx, logMsgOperationCancelled+operation, logAttrTable, m.table)

	default:
		m.logDebug(ctx, logMsgOperationCompleted+operation,
			logAttrTable, m.table, logAttrDurationMS, toMilliseconds(duration))
	}

	m.recordDuration(ctx, duration, labels)

	if m.tracingCollector != nil && span != nil {
		m.tracingCollector.FinishSpan(span, status, spanAttrs)
	}
}

func (m *Model) recordDuration(ctx context.Context, duration time.Duration, labels map[string]string) {
	if m.metricsCollector == nil {
		return
	}

	if contextual, ok := m.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricModelOperationDuration, duration, labels)
		return
	}

	m.metricsCollector.RecordDuration(metricModelOperationDuration, duration, labels)
}

func (m *Model) incrementErrorCounter(ctx context.Context, operation, errorType string) {
	if m.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		logAttrTable:     m.table,
		logAttrOperation: operation,
		logAttrErrorType: errorType,
	}

	if contextual, ok := m.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metricModelOperationErrors, labels)
		return
	}

	m.metricsCollector.IncrementCounter(metricModelOperationErrors, labels)
}

func (m *Model) logDebug(ctx context.Context, msg string, args ...any) {
	switch {
	case m.contextualLogger != nil:
		m.contextualLogger.DebugContext(ctx, msg, args...)
	case m.logger != nil:
		m.logger.Debug(msg, args...)
	}
}

func (m *Model) logInfo(ctx context.Context, msg string, args ...any) {
	switch {
	case m.contextualLogger != nil:
		m.contextualLogger.InfoContext(ctx, msg, args...)
	case m.logger != nil:
		m.logger.Info(msg, args...)
	}
}

func (m *Model) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	switch {
	case m.contextualLogger != nil:
		m.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	case m.logger != nil:
		m.logger.Error(msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
