package logging

import (
	"context"
	"log"
)

type requestIDKey struct{}

type clientKey struct{}

type client struct {
	ip        string
	userAgent string
}

// WithRequestID stores a request id on ctx for later log lines.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request id set by WithRequestID.
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// WithClient records the caller's address and user agent on ctx.
func WithClient(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, client{ip: ip, userAgent: userAgent})
}

// Client returns the values stored by WithClient.
func Client(ctx context.Context) (ip, userAgent string) {
	if c, ok := ctx.Value(clientKey{}).(client); ok {
		return c.ip, c.userAgent
	}
	return "", ""
}

// Logger provides key=value logging for a component
type Logger struct {
	component string
}

// New creates a logger tagged with component
func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) prefix(ctx context.Context, level, operation string) string {
	rid := "-"
	if ctx != nil {
		if v := RequestID(ctx); v != "" {
			rid = v
		}
	}
	return "[" + level + "] component=" + l.component + " request_id=" + rid + " operation=" + operation + " "
}

// Error logs an error with context
func (l *Logger) Error(ctx context.Context, operation string, err error) {
	log.Printf(l.prefix(ctx, "error", operation)+"error=%v", err)
}

// Errorf logs a formatted error
func (l *Logger) Errorf(ctx context.Context, operation string, format string, args ...interface{}) {
	log.Printf(l.prefix(ctx, "error", operation)+format, args...)
}

// Warnf logs a formatted warning
func (l *Logger) Warnf(ctx context.Context, operation string, format string, args ...interface{}) {
	log.Printf(l.prefix(ctx, "warn", operation)+format, args...)
}

// Infof logs a formatted info message
func (l *Logger) Infof(ctx context.Context, operation string, format string, args ...interface{}) {
	log.Printf(l.prefix(ctx, "info", operation)+format, args...)
}
