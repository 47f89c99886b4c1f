//go:build integration

package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/storyarc/integration/runner"
)

var caseFlag = flag.String("case", "", "Name of test case to run (from integration/cases/)")
var errFlag = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")
var settingFlag = flag.String("setting", "", "Override setting for all test cases (e.g., 'academy')")

func TestMain(m *testing.M) {
	flag.Parse()
	fmt.Printf("Running StoryArc Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", baseURL())
	os.Exit(m.Run())
}

func baseURL() string {
	if u := os.Getenv("API_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func newRunner(t *testing.T) *runner.Runner {
	if *errFlag != "exit" && *errFlag != "continue" {
		t.Fatalf("Invalid -err flag value: %s (must be 'exit' or 'continue')", *errFlag)
	}
	r := runner.NewRunner(baseURL())
	r.Timeout = time.Duration(getIntEnv("TEST_TIMEOUT_SECONDS", 90)) * time.Second
	r.ErrorHandlingMode = runner.ErrorHandlingMode(*errFlag)
	r.SettingOverride = *settingFlag
	r.Logger = func(format string, args ...any) {
		t.Logf(format, args...)
	}
	return r
}

// TestIntegrationSuites runs every case, or only those named by -case
// (comma-separated).
func TestIntegrationSuites(t *testing.T) {
	var files []string
	if *caseFlag != "" {
		for _, name := range strings.Split(*caseFlag, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if !strings.HasSuffix(name, ".json") {
				name += ".json"
			}
			files = append(files, filepath.Join("cases", name))
		}
	} else {
		var err error
		files, err = discoverTestFiles("cases")
		if err != nil {
			t.Fatalf("Failed to discover test files: %v", err)
		}
	}
	if len(files) == 0 {
		t.Fatal("No test files found in cases directory")
	}

	var jobs []runner.TestJob
	for _, file := range files {
		expanded, err := runner.LoadTestSuiteWithExpansion(file, "cases")
		if err != nil {
			t.Errorf("Failed to load test suite %s: %v", file, err)
			continue
		}
		jobs = append(jobs, expanded...)
	}
	if len(jobs) == 0 {
		t.Fatal("No valid test suites loaded")
	}

	r := newRunner(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Minute)
	defer cancel()

	var failed []string
	for i, job := range jobs {
		t.Logf("[%d/%d] Starting test suite: %s (%d steps)", i+1, len(jobs), job.Name, len(job.Suite.Steps))

		result, err := r.RunSuite(ctx, job.Suite)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", job.Name, err))
			continue
		}
		t.Logf("Story ID: %s", result.StoryID)

		for _, step := range result.Results {
			if step.Success {
				t.Logf("   ✓ %s (%v)", step.StepName, step.Duration)
				continue
			}
			t.Errorf("   ✗ %s: %v", step.StepName, step.Error)
			failed = append(failed, fmt.Sprintf("%s / %s: %v", job.Name, step.StepName, step.Error))
		}
	}

	t.Logf("Integration Test Summary: %d suites, %d failures", len(jobs), len(failed))
	if len(failed) > 0 {
		for _, f := range failed {
			t.Logf("   - %s", f)
		}
		t.Fatalf("Integration tests failed")
	}
}

func discoverTestFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func getIntEnv(name string, defaultValue int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}
