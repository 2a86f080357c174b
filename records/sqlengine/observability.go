package sqlengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/yriy-kuskov/cakereact-core/records"
)

const (
	spanNamePrefix = "records.sql."

	metricQueryDuration = "records_sql_query_duration_seconds"
	metricErrors        = "records_sql_errors_total"
	metricRows          = "records_sql_rows"

	spanAttrTable     = "table"
	spanAttrOperation = "operation"
	spanAttrErrorType = "error_type"
	spanAttrRows      = "rows"
	spanAttrDialect   = "dialect"

	labelStatus = "status"

	errorTypeBuild = "build_error"
	errorTypeQuery = "query_error"
	errorTypeExec  = "exec_error"
	errorTypeScan  = "scan_error"
)

// logQueryWithDuration logs SQL statements with execution time at debug level if a logger is configured.
func (e *Engine) logQueryWithDuration(ctx context.Context, sqlQuery, operation string, duration time.Duration) {
	e.logDebug(ctx, logMsgSQLExecuted+operation, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
}

// logOperation logs operational information at info level if a logger is configured.
func (e *Engine) logOperation(ctx context.Context, operation string, args ...any) {
	switch {
	case e.contextualLogger != nil:
		e.contextualLogger.InfoContext(ctx, logMsgOperation+operation, args...)
	case e.logger != nil:
		e.logger.Info(logMsgOperation+operation, args...)
	}
}

func (e *Engine) logDebug(ctx context.Context, msg string, args ...any) {
	switch {
	case e.contextualLogger != nil:
		e.contextualLogger.DebugContext(ctx, msg, args...)
	case e.logger != nil:
		e.logger.Debug(msg, args...)
	}
}

func (e *Engine) logWarn(ctx context.Context, msg string, err error) {
	switch {
	case e.contextualLogger != nil:
		e.contextualLogger.WarnContext(ctx, msg, logAttrError, err.Error())
	case e.logger != nil:
		e.logger.Warn(msg, logAttrError, err.Error())
	}
}

// logError logs error information at the error level if a logger is configured.
func (e *Engine) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	switch {
	case e.contextualLogger != nil:
		e.contextualLogger.ErrorContext(ctx, message, allArgs...)
	case e.logger != nil:
		e.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordDurationMetrics records statement duration if a metrics collector is configured.
func (e *Engine) recordDurationMetrics(ctx context.Context, operation, status string, duration time.Duration) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       status,
	}

	if contextual, ok := e.metricsCollector.(records.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricQueryDuration, duration, labels)
		return
	}

	e.metricsCollector.RecordDuration(metricQueryDuration, duration, labels)
}

// recordErrorMetrics counts failed statements if a metrics collector is configured.
func (e *Engine) recordErrorMetrics(ctx context.Context, operation, errorType string) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrErrorType: errorType,
	}

	if contextual, ok := e.metricsCollector.(records.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metricErrors, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metricErrors, labels)
}

// recordRowsMetrics records the number of rows an operation returned or affected.
func (e *Engine) recordRowsMetrics(ctx context.Context, operation string, rows int) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
	}

	if contextual, ok := e.metricsCollector.(records.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metricRows, float64(rows), labels)
		return
	}

	e.metricsCollector.RecordValue(metricRows, float64(rows), labels)
}

// startSpan starts a tracing span for an adapter operation if a tracing collector is configured.
func (e *Engine) startSpan(ctx context.Context, operation, table string) (context.Context, records.SpanContext) {
	if e.tracingCollector == nil {
		return ctx, nil
	}

	return e.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, map[string]string{
		spanAttrOperation: operation,
		spanAttrTable:     table,
		spanAttrDialect:   e.dialectName,
	})
}

// finishSpan finishes a tracing span with the row count or the error type.
func (e *Engine) finishSpan(span records.SpanContext, err error, rows int) {
	if e.tracingCollector == nil || span == nil {
		return
	}

	if err != nil {
		e.tracingCollector.FinishSpan(span, records.StatusError, map[string]string{
			spanAttrErrorType: classifyError(err),
		})
		return
	}

	e.tracingCollector.FinishSpan(span, records.StatusSuccess, map[string]string{
		spanAttrRows: fmt.Sprintf("%d", rows),
	})
}
