// Package observability carries request-scoped logging state through context.
package observability

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	assessmentIDKey
)

// ContextWithLogger attaches a non-nil logger to the context.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, lg)
}

// LoggerFromContext returns the stored logger, enriched with any request and
// assessment ids found in ctx, or slog.Default when none is stored.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	lg, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok || lg == nil {
		lg = slog.Default()
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		lg = lg.With(slog.String("request_id", rid))
	}
	if aid := AssessmentIDFromContext(ctx); aid != "" {
		lg = lg.With(slog.String("assessment_id", aid))
	}
	return lg
}

// ContextWithRequestID stores the originating HTTP request id.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, requestIDKey)
}

// ContextWithAssessmentID tags everything downstream with the assessment being processed.
func ContextWithAssessmentID(ctx context.Context, id string) context.Context {
	return withString(ctx, assessmentIDKey, id)
}

// AssessmentIDFromContext returns the assessment id or "".
func AssessmentIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, assessmentIDKey)
}

func withString(ctx context.Context, k ctxKey, v string) context.Context {
	if ctx == nil || v == "" {
		return ctx
	}
	return context.WithValue(ctx, k, v)
}

func stringFrom(ctx context.Context, k ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(k).(string)
	return s
}
