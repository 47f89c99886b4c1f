package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogger_RecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/stories", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "req-42" {
		t.Errorf("Expected request id echoed, got %q", got)
	}
	out := buf.String()
	for _, want := range []string{"status=418", "request_id=req-42", "path=/v1/stories", "bytes=15"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in log line %q", want, out)
		}
	}
}

func TestLogger_KeepsFlusher(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	var flushErr error
	h := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flushErr = http.NewResponseController(w).Flush()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if flushErr != nil {
		t.Errorf("Expected flush through wrapper, got %v", flushErr)
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("wildcard", func(t *testing.T) {
		w := httptest.NewRecorder()
		CORS([]string{"*"})(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Expected *, got %q", got)
		}
	})

	t.Run("listed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://app.example")
		w := httptest.NewRecorder()
		CORS([]string{"https://app.example"})(next).ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Errorf("Expected preflight 204, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
			t.Errorf("Expected origin echoed, got %q", got)
		}
	})

	t.Run("unlisted origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		CORS([]string{"https://app.example"})(next).ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Expected no allow header, got %q", got)
		}
	})
}

func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"https://app.example"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if !check(req) {
		t.Error("Requests without Origin should pass")
	}
	req.Header.Set("Origin", "https://evil.example")
	if check(req) {
		t.Error("Unlisted origin should be rejected")
	}
}
