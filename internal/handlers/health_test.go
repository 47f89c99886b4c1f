package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jwebster45206/storyarc/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name            string
		pingErr         error
		expectedStatus  int
		expectedHealth  string
		expectedStorage string
	}{
		{
			name:            "all healthy",
			expectedStatus:  http.StatusOK,
			expectedHealth:  "healthy",
			expectedStorage: "healthy",
		},
		{
			name:            "unhealthy storage",
			pingErr:         errors.New("connection failed"),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "degraded",
			expectedStorage: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMockStorage()
			store.SetPingError(tt.pingErr)
			handler := NewHealthHandler(store, testLogger())

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			var response HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}
			if response.Status != tt.expectedHealth {
				t.Errorf("Expected status %q, got %q", tt.expectedHealth, response.Status)
			}
			if response.Service != "storyarc" {
				t.Errorf("Expected service storyarc, got %q", response.Service)
			}
			if response.Components["storage"] != tt.expectedStorage {
				t.Errorf("Expected storage %q, got %v", tt.expectedStorage, response.Components["storage"])
			}
		})
	}
}
