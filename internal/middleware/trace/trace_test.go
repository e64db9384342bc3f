package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareInjectsRequestID(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("handler should see a request id")
	}
	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
}

func TestClientIPPrefersProxyHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := ClientIP(req); got != req.RemoteAddr {
		t.Fatalf("ClientIP = %q, want RemoteAddr", got)
	}

	req.Header.Set("X-Real-IP", "10.0.0.2")
	if got := ClientIP(req); got != "10.0.0.2" {
		t.Fatalf("ClientIP = %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("ClientIP = %q", got)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == b {
		t.Fatal("ids should differ")
	}
}
