package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"academihub.org/internal/auth"
	"academihub.org/internal/course"
	"academihub.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit line enriched with request and caller context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	attrs := []slog.Attr{
		slog.String("type", "audit"),
		slog.String("event", event),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if id, ok := auth.IdentityFromContext(ctx); ok {
		attrs = append(attrs, slog.Int64("user_id", id.UserID), slog.String("role", string(id.Role)))
	}
	group := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		group = append(group, slog.Any(k, v))
	}
	attrs = append(attrs, slog.Group("fields", group...))

	obs.Logger().LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	return nil
}

// CourseTransitions records every lifecycle attempt, rejected ones included.
func CourseTransitions(ctx context.Context, r course.Result) {
	fields := map[string]any{
		"course_id": r.CourseID,
		"action":    string(r.Action),
		"from":      string(r.From),
		"to":        string(r.To),
		"outcome":   r.Outcome(),
	}
	if r.Err != nil {
		fields["error"] = r.Err.Error()
	}
	_ = LogEvent(ctx, "course.transition", fields)
}
