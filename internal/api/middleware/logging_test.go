package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggingScrubsSensitiveQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test?api_key=verysecret&limit=5", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	out := buf.String()
	if strings.Contains(out, "verysecret") {
		t.Error("expected api_key value to be redacted")
	}
	if !strings.Contains(out, "REDACTED") {
		t.Error("expected REDACTED marker in log output")
	}
	if !strings.Contains(out, "limit=5") {
		t.Error("expected benign query params to survive")
	}
	if !strings.Contains(out, "status=204") {
		t.Error("expected response status in log output")
	}
}

func TestScrubQuery(t *testing.T) {
	tests := []struct {
		in  string
		out string
	}{
		{"", ""},
		{"limit=5", "limit=5"},
		{"apikey=abc", "apikey=REDACTED"},
		{"token=abc&limit=5", "token=REDACTED&limit=5"},
		{"Authorization=Bearer+x", "Authorization=REDACTED"},
	}
	for _, tt := range tests {
		if got := scrubQuery(tt.in); got != tt.out {
			t.Errorf("scrubQuery(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}
