package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/finwise/advisor/internal/auth"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestIDMiddleware(t *testing.T) {
	var ctxID string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if ctxID == "" {
		t.Fatal("request id missing from context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != ctxID {
		t.Errorf("X-Request-ID header = %q, want %q", got, ctxID)
	}
}

func TestRateLimitHeaderMiddleware(t *testing.T) {
	h := RateLimitHeaderMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetRateLimits(r.Context(), 5, 3)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if got := rec.Header().Get("x-ratelimit-limit-requests"); got != "5" {
		t.Errorf("limit header = %q, want 5", got)
	}
	if got := rec.Header().Get("x-ratelimit-remaining-requests"); got != "3" {
		t.Errorf("remaining header = %q, want 3", got)
	}
}

func TestRateLimitHeaderMiddleware_NoQuotaRecorded(t *testing.T) {
	h := RateLimitHeaderMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := rec.Header().Get("x-ratelimit-limit-requests"); got != "" {
		t.Errorf("limit header = %q, want unset when handler records nothing", got)
	}
}

func TestAuthMiddleware(t *testing.T) {
	authenticator := auth.NewAuthenticator(map[string]string{
		auth.HashToken("fin_good"): "user-1",
	})

	var gotUser *auth.User
	h := AuthMiddleware(authenticator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUser(r.Context())
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUserID string
	}{
		{name: "valid token", header: "Bearer fin_good", wantStatus: http.StatusOK, wantUserID: "user-1"},
		{name: "unknown token", header: "Bearer fin_bad", wantStatus: http.StatusUnauthorized},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if gotUser == nil || gotUser.ID != tt.wantUserID {
					t.Errorf("user = %+v, want ID %q", gotUser, tt.wantUserID)
				}
				return
			}

			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("rejection body not JSON: %v", err)
			}
			if body["error"] == "" {
				t.Error("rejection body missing error field")
			}
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONError(rec, http.StatusTooManyRequests, "rate limit exceeded, try again tomorrow")

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if body["error"] != "rate limit exceeded, try again tomorrow" {
		t.Errorf("error = %q", body["error"])
	}
}
