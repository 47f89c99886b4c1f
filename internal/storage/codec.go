package storage

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/storyarc/pkg/story"
)

func encodeStory(s *story.Story) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal story: %w", err)
	}
	return data, nil
}

func decodeStory(data []byte) (*story.Story, error) {
	var s story.Story
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}
	return &s, nil
}
