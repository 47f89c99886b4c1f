package prompts

import (
	"strings"
	"testing"

	"github.com/jwebster45206/storyarc/pkg/arcs"
	"github.com/jwebster45206/storyarc/pkg/story"
)

func testMemory() *story.StoryMemory {
	return &story.StoryMemory{
		CharacterName:    "Li Wei",
		CharacterGender:  "female",
		CharacterOrigin:  "fallen",
		Setting:          "cultivation",
		BigStoryGoal:     "Revenge on the Sect Leader who betrayed their family.",
		Arcs:             []string{"Win the internal sect tournament to rise in rank.", "Gain the title of Core Disciple."},
		ChaptersPerArc:   7,
		TotalArcsPlanned: 2,
		Characters: []story.Character{
			{Name: "Rhea", Relationship: "Rival", Sect: story.StrPtr("Iron Fist")},
		},
	}
}

func testDirective(mem *story.StoryMemory) arcs.Directive {
	return arcs.NewPlanner(nil, arcs.DefaultConfig()).Directive(mem)
}

func TestNew(t *testing.T) {
	builder := New()
	if builder == nil {
		t.Fatal("Expected builder to be created, got nil")
	}
	if builder.rosterLimit != 12 {
		t.Errorf("Expected default roster limit of 12, got %d", builder.rosterLimit)
	}
}

func TestBuilder_FluentInterface(t *testing.T) {
	mem := testMemory()
	builder := New().
		WithMemory(mem).
		WithStyle("drama", "simple").
		WithPrevious("The gate closes.", "Climb the wall").
		WithRosterLimit(3).
		Simplified(true)

	if builder.mem != mem {
		t.Error("WithMemory did not set memory")
	}
	if builder.tone != "drama" || builder.complexity != "simple" {
		t.Error("WithStyle did not set tone and complexity")
	}
	if builder.choice != "Climb the wall" {
		t.Error("WithPrevious did not set choice")
	}
	if builder.rosterLimit != 3 {
		t.Error("WithRosterLimit did not set limit")
	}
	if !builder.simplified {
		t.Error("Simplified did not set flag")
	}
	if !builder.IsContinuation() {
		t.Error("Expected continuation")
	}
}

func TestBuilder_Build_RequiresMemory(t *testing.T) {
	_, err := New().Build()
	if err == nil || err.Error() != "memory is required" {
		t.Errorf("Expected 'memory is required' error, got: %v", err)
	}

	_, err = New().WithMemory(&story.StoryMemory{}).Build()
	if err == nil || err.Error() != "character name is required" {
		t.Errorf("Expected 'character name is required' error, got: %v", err)
	}

	_, err = New().WithMemory(testMemory()).WithPrevious("Something happened.", "").Build()
	if err == nil {
		t.Error("Expected error for continuation without a choice")
	}
}

func TestBuilder_Opening(t *testing.T) {
	mem := testMemory()
	p, err := New().
		WithVoice(Voice{Persona: "You are a manhua storyteller.", Rules: []string{"Describe every technique visually."}}).
		WithMemory(mem).
		WithStyle("epic", "complex").
		WithDirective(testDirective(mem)).
		Build()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, want := range []string{
		"You are a manhua storyteller.",
		"CHARACTER ORIGIN: Fallen - Once powerful",
		"she/her/hers",
		"grand scale",
		"rich, sophisticated language",
		"Describe every technique visually.",
		"[STORY]",
		"[NEW CHARACTERS]",
	} {
		if !strings.Contains(p.System, want) {
			t.Errorf("System prompt missing %q", want)
		}
	}
	if !strings.HasPrefix(p.System, "You are a manhua storyteller.") {
		t.Error("Expected persona to open the system prompt")
	}

	for _, want := range []string{
		"Win the internal sect tournament",
		"Rhea (Rival, Iron Fist)",
		"opening chapter of Li Wei's story",
	} {
		if !strings.Contains(p.User, want) {
			t.Errorf("User prompt missing %q", want)
		}
	}
	if strings.Contains(p.User, "CHOSEN ACTION") {
		t.Error("Opening prompt should not contain a chosen action")
	}
}

func TestBuilder_Continuation(t *testing.T) {
	mem := testMemory()
	p, err := New().
		WithMemory(mem).
		WithPrevious("First paragraph.\n\nThe elder turns away.", "Follow the elder").
		Build()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(p.User, "PREVIOUS CHAPTER:\nFirst paragraph.\n\nThe elder turns away.") {
		t.Errorf("Expected full previous chapter, got %q", p.User)
	}
	if !strings.Contains(p.User, "CHOSEN ACTION: Follow the elder") {
		t.Error("Expected chosen action in user prompt")
	}
}

func TestBuilder_Simplified(t *testing.T) {
	mem := testMemory()
	full, _ := New().WithMemory(mem).WithStyle("epic", "complex").WithPrevious("First paragraph.\n\nThe elder turns away.", "Follow the elder").Build()
	simple, _ := New().WithMemory(mem).WithStyle("epic", "complex").WithPrevious("First paragraph.\n\nThe elder turns away.", "Follow the elder").Simplified(true).Build()

	if len(simple.System) >= len(full.System) {
		t.Errorf("Expected simplified system prompt to be shorter (%d >= %d)", len(simple.System), len(full.System))
	}
	if strings.Contains(simple.System, "[NEW CHARACTERS]") {
		t.Error("Simplified prompt should not request a character block")
	}
	if !strings.Contains(simple.System, "[CHOICES]") {
		t.Error("Simplified prompt must keep format instructions")
	}
	if strings.Contains(simple.User, "First paragraph.") {
		t.Error("Simplified prompt should only keep the last paragraph")
	}
	if strings.Contains(simple.User, "KNOWN CHARACTERS") {
		t.Error("Simplified prompt should drop the roster")
	}
}
