package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kairoshq/kairos/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.ESSRF, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EQUOTA, http.StatusTooManyRequests},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EPROVIDER, http.StatusBadGateway},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := ErrorCodeToHTTPStatus(tc.code); got != tc.status {
			t.Errorf("%s: expected %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestErrorResponseQuotaPayload(t *testing.T) {
	err := domain.QuotaExceeded("test.op", domain.ActionCustomAgents, 3, 3)

	req := httptest.NewRequest("POST", "/api/agents", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, testLogger(), err)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if body.Error.Code != domain.EQUOTA {
		t.Errorf("expected code %q, got %q", domain.EQUOTA, body.Error.Code)
	}
	if body.Error.Quota == nil {
		t.Fatal("expected quota detail in response")
	}
	if body.Error.Quota.Action != string(domain.ActionCustomAgents) {
		t.Errorf("expected action custom_ais, got %s", body.Error.Quota.Action)
	}
	if body.Error.Quota.Used != 3 || body.Error.Quota.Limit != 3 {
		t.Errorf("expected used/limit 3/3, got %d/%d", body.Error.Quota.Used, body.Error.Quota.Limit)
	}
	if body.Error.Quota.UpgradeURL == "" {
		t.Error("expected upgrade URL in quota detail")
	}
	if body.Error.Quota.Title == "" {
		t.Error("expected human-facing title in quota detail")
	}
}

func TestErrorResponseHidesInternalDetails(t *testing.T) {
	inner := domain.Internal(io.ErrUnexpectedEOF, "test.op", "connection pool exhausted on db-3")

	req := httptest.NewRequest("GET", "/api/projects", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, testLogger(), inner)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error.Message == "connection pool exhausted on db-3" {
		t.Error("internal error details leaked to the client")
	}
}

func TestErrorResponseValidationFields(t *testing.T) {
	err := domain.NewValidationError("test.op", "email", "Email is required")

	req := httptest.NewRequest("POST", "/api/auth/register", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, testLogger(), err)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error.Code != domain.EINVALID {
		t.Errorf("expected code %q, got %q", domain.EINVALID, body.Error.Code)
	}
	if body.Error.Fields["email"] != "Email is required" {
		t.Errorf("expected field error for email, got %v", body.Error.Fields)
	}
}
