package services

import (
	"context"
	"sync"
)

// MockResponse is the default text returned by MockGenerator. It follows
// the [STORY]/[CHOICES] format and passes a strict parse.
const MockResponse = `[STORY]
The mist parts over the mountain gate as the morning bell rings across the outer courtyard. Disciples hurry past with buckets and brooms, and somewhere above, an elder's voice calls the roll. You steady your breathing and step forward into the line.
[/STORY]
[CHOICES]
1. Answer the elder's call and step out of the line
2. Slip away toward the quiet library pavilion
3. Ask the nervous disciple beside you what happens next
[/CHOICES]`

// MockGenerator is a scriptable TextGenerator for tests and the mock
// provider. Scripted responses are consumed in order; once exhausted,
// GenerateFunc or MockResponse is used.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, req GenerationRequest) (string, error)

	// Track calls for testing
	GenerateCalls []GenerationRequest

	script []scripted
	mu     sync.Mutex // protects all fields above
}

type scripted struct {
	text string
	err  error
}

// NewMockGenerator creates a new mock generator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		GenerateCalls: make([]GenerationRequest, 0),
	}
}

// Generate mocks text generation
func (m *MockGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, req)
	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		m.mu.Unlock()
		return next.text, next.err
	}
	fn := m.GenerateFunc
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fn != nil {
		return fn(ctx, req)
	}
	return MockResponse, nil
}

// QueueResponse appends a response to the script.
func (m *MockGenerator) QueueResponse(text string) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{text: text})
	return m
}

// QueueError appends a failure to the script.
func (m *MockGenerator) QueueError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
	return m
}

// SetGenerateError sets up the mock to fail every unscripted call
func (m *MockGenerator) SetGenerateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = func(ctx context.Context, req GenerationRequest) (string, error) {
		return "", err
	}
}

// CallCount returns how many times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GenerateCalls)
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockGenerator) GetCalls() []GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]GenerationRequest, len(m.GenerateCalls))
	copy(calls, m.GenerateCalls)
	return calls
}

// Reset clears the script and call tracking
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateCalls = make([]GenerationRequest, 0)
	m.script = nil
	m.GenerateFunc = nil
}
