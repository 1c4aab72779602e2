package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"

	// HeaderRequestID carries the correlation id of an outbound call.
	HeaderRequestID = "X-Request-ID"
)

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// RequestIDTransport stamps outbound requests that lack an id with newID().
func RequestIDTransport(newID func() string, next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get(HeaderRequestID) != "" {
			return next.RoundTrip(r)
		}
		clone := r.Clone(r.Context())
		clone.Header.Set(HeaderRequestID, newID())
		return next.RoundTrip(clone)
	})
}

// Transport logs the outcome of every outbound request.
func Transport(logger *Logger, next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)
		elapsed := time.Since(start).Milliseconds()

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		fields := NewFields().WithHTTP(r.Method, r.URL.Path, status, elapsed)
		fields[FieldRequestID] = r.Header.Get(HeaderRequestID)

		if err != nil {
			logger.WarnContext(r.Context(), "Outbound request failed", fields.WithError(err).ToSlice()...)
			return resp, err
		}

		level := slog.LevelDebug
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.Logger.Log(r.Context(), level, "Outbound request completed", logger.attrs(fields.ToSlice())...)
		return resp, nil
	})
}
