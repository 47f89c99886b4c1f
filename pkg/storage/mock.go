package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/jwebster45206/storyarc/pkg/story"
)

// MockStorage is an in-memory Storage. Stories are copied on the way in and
// out so callers cannot mutate stored state by accident. It also backs the
// "memory" storage backend.
type MockStorage struct {
	mu        sync.RWMutex
	stories   map[string][]byte
	pingError error
	saveError error
	saves     int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		stories: make(map[string][]byte),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every later SaveStory fail with err.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SaveCount returns how many saves succeeded.
func (m *MockStorage) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveStory stores a copy of s.
func (m *MockStorage) SaveStory(ctx context.Context, s *story.Story) error {
	if s == nil {
		return errors.New("story cannot be nil")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.stories[s.ID] = data
	m.saves++
	return nil
}

// LoadStory returns a copy of the stored story.
func (m *MockStorage) LoadStory(ctx context.Context, id string) (*story.Story, error) {
	m.mu.RLock()
	data, ok := m.stories[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var s story.Story
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteStory removes a story.
func (m *MockStorage) DeleteStory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stories[id]; !ok {
		return ErrNotFound
	}
	delete(m.stories, id)
	return nil
}

// ListStories returns metadata for userID's stories, newest first.
func (m *MockStorage) ListStories(ctx context.Context, userID string) ([]story.Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []story.Metadata{}
	for _, data := range m.stories {
		var md story.Metadata
		if err := json.Unmarshal(data, &md); err != nil {
			return nil, err
		}
		if md.UserID == userID {
			out = append(out, md)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out, nil
}

// LoadStoryByShareToken finds a shareable story by token.
func (m *MockStorage) LoadStoryByShareToken(ctx context.Context, token string) (*story.Story, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	m.mu.RLock()
	var id string
	for sid, data := range m.stories {
		var probe struct {
			ShareToken  string `json:"share_token"`
			IsShareable bool   `json:"is_shareable"`
		}
		if err := json.Unmarshal(data, &probe); err == nil && probe.IsShareable && probe.ShareToken == token {
			id = sid
			break
		}
	}
	m.mu.RUnlock()
	if id == "" {
		return nil, ErrNotFound
	}
	return m.LoadStory(ctx, id)
}
