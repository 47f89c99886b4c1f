package telemetry

import (
	"context"
	"testing"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "storyarc-test", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Expected no-op shutdown, got %v", err)
	}
}

func TestSetup_WithEndpoint(t *testing.T) {
	// The exporter connects lazily, so an unreachable collector is fine.
	shutdown, err := Setup(context.Background(), "storyarc-test", "http://127.0.0.1:4318")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
