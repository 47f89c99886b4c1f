package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

const (
	DefaultMaxTokens   = 1200
	DefaultTemperature = 0.8

	msgNoResponse = "(no response)"
)

// GenerationRequest is a single prompt sent to a text generation backend.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

func (r GenerationRequest) withDefaults() GenerationRequest {
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if r.Temperature <= 0 {
		r.Temperature = DefaultTemperature
	}
	return r
}

// TextGenerator turns a prompt into raw story text.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// GenerationError describes a failed call to a generation backend.
// Transient errors are worth retrying; everything else is returned to the
// caller as is.
type GenerationError struct {
	Provider    string
	StatusCode  int
	Transient   bool
	RateLimited bool
	Err         error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s generation failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a GenerationError worth retrying.
func IsTransient(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge) && ge.Transient
}

// IsRateLimited reports whether err came from a 429 response.
func IsRateLimited(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge) && ge.RateLimited
}

// newGenerationError classifies err using the HTTP status when there is one
// and the network error otherwise.
func newGenerationError(provider string, status int, err error) *GenerationError {
	ge := &GenerationError{Provider: provider, StatusCode: status, Err: err}
	switch {
	case status == http.StatusTooManyRequests:
		ge.Transient = true
		ge.RateLimited = true
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		ge.Transient = true
	case status == 0:
		ge.Transient = isNetworkError(err)
	}
	return ge
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "rate limit")
}
