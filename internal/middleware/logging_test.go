package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func loggedRequest(t *testing.T, target string, status int, setup func(*http.Request)) string {
	t.Helper()

	var buf bytes.Buffer
	mw := NewRequestLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest("GET", target, nil)
	req.RemoteAddr = "192.168.1.1:12345"
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return buf.String()
}

func TestRequestLogging_BasicFields(t *testing.T) {
	out := loggedRequest(t, "/api/conversations", http.StatusOK, nil)

	for _, want := range []string{"GET", "/api/conversations", "200", "duration"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q, got: %s", want, out)
		}
	}
}

func TestRequestLogging_ClientIPFromForwardedHeader(t *testing.T) {
	out := loggedRequest(t, "/api/chat", http.StatusOK, func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", "203.0.113.195")
	})

	if !strings.Contains(out, "203.0.113.195") {
		t.Errorf("log should use X-Forwarded-For address, got: %s", out)
	}
}

func TestRequestLogging_ServerErrorLogsAtWarn(t *testing.T) {
	out := loggedRequest(t, "/api/chat", http.StatusInternalServerError, nil)

	if !strings.Contains(out, "500") {
		t.Errorf("log missing 500 status, got: %s", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("5xx responses should log at WARN, got: %s", out)
	}
}

func TestRequestLogging_UserAgent(t *testing.T) {
	out := loggedRequest(t, "/api/agents", http.StatusOK, func(r *http.Request) {
		r.Header.Set("User-Agent", "kairos-cli/1.2")
	})

	if !strings.Contains(out, "kairos-cli/1.2") {
		t.Errorf("log missing user agent, got: %s", out)
	}
}

func TestRequestLogging_RedactsSensitiveQueryParams(t *testing.T) {
	out := loggedRequest(t, "/api/attachments/fetch?token=secrettoken123&limit=5", http.StatusOK, nil)

	if strings.Contains(out, "secrettoken123") {
		t.Errorf("log leaked token value: %s", out)
	}
	if !strings.Contains(out, "token=[REDACTED]") {
		t.Errorf("token param should be redacted, got: %s", out)
	}
	if !strings.Contains(out, "limit=5") {
		t.Errorf("benign params should survive, got: %s", out)
	}
}

func TestRequestLogging_CapturesWrittenStatus(t *testing.T) {
	out := loggedRequest(t, "/api/conversations/missing", http.StatusNotFound, nil)

	if !strings.Contains(out, "404") {
		t.Errorf("log missing 404 status, got: %s", out)
	}
}

func TestRequestLogging_PassesResponseThrough(t *testing.T) {
	var buf bytes.Buffer
	mw := NewRequestLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "value")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"abc"}`))
	}))

	req := httptest.NewRequest("POST", "/api/projects", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if rec.Header().Get("X-Custom") != "value" {
		t.Error("custom header should be preserved")
	}
	if rec.Body.String() != `{"id":"abc"}` {
		t.Errorf("body should be preserved, got: %s", rec.Body.String())
	}
}

func TestRequestLogging_SkipsNoisyEndpoints(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		out := loggedRequest(t, path, http.StatusOK, nil)
		if out != "" {
			t.Errorf("%s should not be logged, got: %s", path, out)
		}
	}
}
