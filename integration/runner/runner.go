package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jwebster45206/storyarc/internal/handlers"
	"github.com/jwebster45206/storyarc/pkg/story"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// StatusError is an unexpected HTTP status from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.Code, e.Body)
}

// Runner executes integration tests against a running StoryArc API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
	SettingOverride   string // If set, overrides the setting for all test cases
	UserID            string
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 120 * time.Second},
		Timeout:           90 * time.Second,
		ErrorHandlingMode: ErrorHandlingContinue,
		UserID:            "integration",
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		subJobs, err := LoadTestSuiteWithExpansion(filepath.Join(casesDir, caseFile), casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

// RunSuite creates a story and plays each step in order
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	params := suite.Params
	if r.SettingOverride != "" {
		params.Setting = r.SettingOverride
	}
	created, err := r.createStory(ctx, params)
	if err != nil {
		result.Error = fmt.Errorf("failed to create story: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.StoryID = created.Story.ID
	r.logf("Created story %s (%s)", created.Story.ID, created.Story.Title)

	for i, step := range suite.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("Step %d", i+1)
		}
		stepStart := time.Now()
		st, node, err := r.runStep(ctx, created.Story.ID, step)
		tr := TestResult{TestName: suite.Name, StepName: name, Duration: time.Since(stepStart)}

		if err == nil {
			err = validate(step.Expectations, st, node)
		} else if se, ok := err.(*StatusError); ok && step.Expectations.StatusCode == se.Code {
			err = nil
		}
		if node != nil {
			tr.ResponseText = node.Content
		}
		tr.Success = err == nil
		tr.Error = err
		result.Results = append(result.Results, tr)

		if err != nil {
			r.logf("FAIL %s: %v", name, err)
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
		} else {
			r.logf("PASS %s (%s)", name, tr.Duration.Round(time.Millisecond))
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) runStep(ctx context.Context, storyID string, step TestStep) (*story.Story, *story.StoryNode, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	if !step.Async {
		var resp handlers.StoryResponse
		if err := r.do(ctx, http.MethodPost, fmt.Sprintf("/v1/stories/%s/choices/%s", storyID, step.ChoiceID), nil, http.StatusOK, &resp); err != nil {
			return nil, nil, err
		}
		return resp.Story, resp.Node, nil
	}

	stream, err := StreamEvents(ctx, r.Client, r.BaseURL, storyID)
	if err != nil {
		return nil, nil, err
	}
	requestID, err := PostAdvanceAsync(ctx, r.Client, r.BaseURL, storyID, step.ChoiceID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := WaitForCompletion(ctx, stream, requestID); err != nil {
		return nil, nil, err
	}

	var st story.Story
	if err := r.do(ctx, http.MethodGet, "/v1/stories/"+storyID, nil, http.StatusOK, &st); err != nil {
		return nil, nil, err
	}
	node, _ := st.CurrentNode()
	return &st, node, nil
}

func (r *Runner) createStory(ctx context.Context, params story.CreationParams) (*handlers.StoryResponse, error) {
	var resp handlers.StoryResponse
	if err := r.do(ctx, http.MethodPost, "/v1/stories", params, http.StatusCreated, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *Runner) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handlers.UserIDHeader, r.UserID)

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func validate(exp Expectations, st *story.Story, node *story.StoryNode) error {
	var errs []string
	if exp.StatusCode != 0 {
		errs = append(errs, fmt.Sprintf("expected status %d, request succeeded", exp.StatusCode))
	}
	mem := st.Memory
	if exp.CurrentArcIndex != nil && mem.CurrentArcIndex != *exp.CurrentArcIndex {
		errs = append(errs, fmt.Sprintf("current_arc_index: expected %d, got %d", *exp.CurrentArcIndex, mem.CurrentArcIndex))
	}
	if exp.ChaptersCompleted != nil && mem.ChaptersCompleted != *exp.ChaptersCompleted {
		errs = append(errs, fmt.Sprintf("chapters_completed: expected %d, got %d", *exp.ChaptersCompleted, mem.ChaptersCompleted))
	}
	if exp.TotalArcs != nil && len(mem.Arcs) != *exp.TotalArcs {
		errs = append(errs, fmt.Sprintf("arcs: expected %d, got %d", *exp.TotalArcs, len(mem.Arcs)))
	}
	if exp.MinCharacters != nil && len(mem.Characters) < *exp.MinCharacters {
		errs = append(errs, fmt.Sprintf("characters: expected at least %d, got %d", *exp.MinCharacters, len(mem.Characters)))
	}

	if node == nil {
		errs = append(errs, "no current node")
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	if exp.Source != "" && string(node.Source) != exp.Source {
		errs = append(errs, fmt.Sprintf("source: expected %s, got %s", exp.Source, node.Source))
	}
	if exp.ChoiceCount != nil && len(node.Choices) != *exp.ChoiceCount {
		errs = append(errs, fmt.Sprintf("choices: expected %d, got %d", *exp.ChoiceCount, len(node.Choices)))
	}
	lower := strings.ToLower(node.Content)
	for _, s := range exp.ContentContains {
		if !strings.Contains(lower, strings.ToLower(s)) {
			errs = append(errs, fmt.Sprintf("content missing %q", s))
		}
	}
	for _, s := range exp.ContentExcludes {
		if strings.Contains(lower, strings.ToLower(s)) {
			errs = append(errs, fmt.Sprintf("content contains %q", s))
		}
	}
	if exp.ContentRegex != "" {
		re, err := regexp.Compile(exp.ContentRegex)
		if err != nil {
			errs = append(errs, fmt.Sprintf("bad content_regex: %v", err))
		} else if !re.MatchString(node.Content) {
			errs = append(errs, fmt.Sprintf("content does not match %q", exp.ContentRegex))
		}
	}
	if exp.ContentMinLength != nil && len(node.Content) < *exp.ContentMinLength {
		errs = append(errs, fmt.Sprintf("content length: expected at least %d, got %d", *exp.ContentMinLength, len(node.Content)))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger(format, args...)
		return
	}
	log.Printf(format, args...)
}
