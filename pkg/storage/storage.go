package storage

import (
	"context"
	"errors"

	"github.com/jwebster45206/storyarc/pkg/story"
)

// ErrNotFound is returned when a story does not exist.
var ErrNotFound = errors.New("story not found")

// Storage persists whole story records. A story is always saved and loaded
// as one unit, memory and nodes included.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Story operations
	SaveStory(ctx context.Context, s *story.Story) error
	LoadStory(ctx context.Context, id string) (*story.Story, error)
	DeleteStory(ctx context.Context, id string) error
	// ListStories returns metadata for a user's stories, most recently
	// updated first.
	ListStories(ctx context.Context, userID string) ([]story.Metadata, error)
	// LoadStoryByShareToken returns a story only while it is shareable.
	LoadStoryByShareToken(ctx context.Context, token string) (*story.Story, error)
}
