// Package middleware holds the HTTP middleware applied by the router.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// scrubPatterns mark query parameter names whose values never belong in a
// log line. Matched case-insensitively as substrings, so api_key, apiKey
// and X-Api-Key all hit.
var scrubPatterns = []string{
	"api_key",
	"apikey",
	"authorization",
	"password",
	"secret",
	"token",
}

// Logging logs one line per request: method, path, scrubbed query,
// status, duration, remote address.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", scrubQuery(r.URL.RawQuery)),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			)
		})
	}
}

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// scrubQuery replaces the value of any sensitive-looking query parameter
// with REDACTED, leaving the rest of the query intact.
func scrubQuery(raw string) string {
	if raw == "" {
		return ""
	}

	parts := strings.Split(raw, "&")
	for i, part := range parts {
		name, _, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		if sensitiveParam(name) {
			parts[i] = name + "=REDACTED"
		}
	}
	return strings.Join(parts, "&")
}

func sensitiveParam(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range scrubPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
