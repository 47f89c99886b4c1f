package runner

import (
	"time"

	"github.com/jwebster45206/storyarc/pkg/story"
)

// TestSuite defines a complete integration test scenario.
// Can either be a regular test with Steps, or a suite that references other Cases.
type TestSuite struct {
	Name   string               `json:"name"`
	Params story.CreationParams `json:"params,omitempty"` // Used for regular tests
	Steps  []TestStep           `json:"steps,omitempty"`  // Used for regular tests
	Cases  []string             `json:"cases,omitempty"`  // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep picks one choice of the current node.
// With Async set the step goes through the queue and waits on the event stream.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	ChoiceID     string       `json:"choice_id"`
	Async        bool         `json:"async,omitempty"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a step (or after story creation
// for the suite's Opening checks).
type Expectations struct {
	// Memory counters
	CurrentArcIndex   *int `json:"current_arc_index,omitempty"`
	ChaptersCompleted *int `json:"chapters_completed,omitempty"`
	TotalArcs         *int `json:"total_arcs,omitempty"`
	MinCharacters     *int `json:"min_characters,omitempty"`

	// Node checks
	Source           string   `json:"source,omitempty"`
	ChoiceCount      *int     `json:"choice_count,omitempty"`
	ContentContains  []string `json:"content_contains,omitempty"`
	ContentExcludes  []string `json:"content_not_contains,omitempty"`
	ContentRegex     string   `json:"content_regex,omitempty"`
	ContentMinLength *int     `json:"content_min_length,omitempty"`

	// StatusCode expects the step to fail with this HTTP status.
	StatusCode int `json:"status_code,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	StoryID  string // ID of the story created for this run
}
