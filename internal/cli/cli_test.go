package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func run(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sky_pirates.yaml", "theme: pirates\nkeywords: [sky]\npremises:\n  - Board the merchant zeppelin\n")

	out, err := run(t, ValidateCmd(), "", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "sky_pirates.yaml")
	assert.Contains(t, out, `extends "pirates": 1 premises`)
	assert.Contains(t, out, "All 1 theme packs are valid.")

	writeFile(t, dir, "Bad-Name.yaml", "theme: x\npremises: [a]\n")
	writeFile(t, dir, "empty_premises.yaml", "theme: x\npremises: []\n")
	out, err = run(t, ValidateCmd(), "", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 theme packs invalid")
	assert.Contains(t, out, "must be lowercase snake_case")
	assert.Contains(t, out, "at least one premise is required")
}

func TestValidateCmd_SamplePacks(t *testing.T) {
	_, err := run(t, ValidateCmd(), "", filepath.Join("..", "..", "data", "themes"))
	assert.NoError(t, err)
}

const sampleResponse = `[STORY]
Rain lashes the harbor as Captain Idris waves you aboard, grinning through a broken tooth.
[NEW CHARACTERS]
Name: Captain Idris
Relationship: Ally
Role: Smuggler
[/NEW CHARACTERS]
[/STORY]
[CHOICES]
1. Climb aboard and ask about the cargo
2. Refuse and walk back toward the city
[/CHOICES]`

func TestParseCmd_JSON(t *testing.T) {
	out, err := run(t, ParseCmd(), sampleResponse, "--json", "--protagonist", "Mara")
	require.NoError(t, err)

	var got parseOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "lenient", got.Mode)
	assert.Contains(t, got.Content, "Rain lashes the harbor")
	assert.NotContains(t, got.Content, "NEW CHARACTERS")
	require.Len(t, got.Choices, 3)
	assert.Equal(t, 2, got.RealChoices)
	assert.Equal(t, 1, got.Padded)
	require.Len(t, got.Characters, 1)
	assert.Equal(t, "Captain Idris", got.Characters[0].Name)
}

func TestParseCmd_StrictFailure(t *testing.T) {
	_, err := run(t, ParseCmd(), sampleResponse, "--mode", "strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse failure")

	_, err = run(t, ParseCmd(), sampleResponse, "--mode", "fuzzy")
	assert.Error(t, err)
}

func TestParseCmd_Text(t *testing.T) {
	out, err := run(t, ParseCmd(), sampleResponse)
	require.NoError(t, err)
	assert.Contains(t, out, "1. Climb aboard and ask about the cargo")
	assert.Contains(t, out, "(placeholder)")
	assert.Contains(t, out, "Captain Idris (Ally)")
}

func TestPlanCmd(t *testing.T) {
	out, err := run(t, PlanCmd(), "", "--goal", "Pull off the heist of the century", "--arcs", "2", "--chapters", "4", "--open-ended=false", "--walk", "5")
	require.NoError(t, err)

	assert.Contains(t, out, "Goal: Pull off the heist of the century")
	assert.Contains(t, out, "Plan: 2 arcs x 2 chapters")
	assert.Contains(t, out, "arc 1 chapter 1/2  opening")
	assert.Contains(t, out, "arc 2 chapter 2/2  finale")
	assert.Contains(t, out, "plan exhausted")
}

func TestQueueCmd(t *testing.T) {
	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr()

	out, err := run(t, QueueCmd(), "", "enqueue", "story-1", "2", "--redis", url, "--user", "u1", "--node", "node-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Enqueued request")
	assert.Contains(t, out, "queue depth: 1")

	out, err = run(t, QueueCmd(), "", "depth", "--redis", url)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	raw, err := mr.Lpop("requests")
	require.NoError(t, err)
	assert.Contains(t, raw, `"story_id":"story-1"`)
	assert.Contains(t, raw, `"user_id":"u1"`)
	assert.Contains(t, raw, `"node_id":"node-1"`)
}
