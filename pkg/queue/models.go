package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Request asks a worker to advance a story by one choice.
type Request struct {
	RequestID string `json:"request_id"`
	StoryID   string `json:"story_id"`
	ChoiceID  string `json:"choice_id"`
	UserID    string `json:"user_id,omitempty"`

	// NodeID is the node the choice was made on. A worker refuses the
	// request once the story has moved past it. Empty means the current
	// node at processing time.
	NodeID string `json:"node_id,omitempty"`

	// Requeues counts how often a worker put the request back because the
	// story was busy.
	Requeues int `json:"requeues,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewRequest creates a request with a fresh id.
func NewRequest(storyID, choiceID, userID string) *Request {
	return &Request{
		RequestID:  uuid.New().String(),
		StoryID:    storyID,
		ChoiceID:   choiceID,
		UserID:     userID,
		EnqueuedAt: time.Now(),
	}
}

// Validate checks the fields a worker needs.
func (r *Request) Validate() error {
	if r.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	if r.StoryID == "" {
		return fmt.Errorf("story_id is required")
	}
	if r.ChoiceID == "" {
		return fmt.Errorf("choice_id is required")
	}
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}
