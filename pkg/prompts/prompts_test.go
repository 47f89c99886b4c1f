package prompts

import (
	"strings"
	"testing"

	"github.com/jwebster45206/storyarc/pkg/story"
)

func TestPronouns(t *testing.T) {
	tests := []struct {
		gender   string
		expected string
	}{
		{"male", "he/him/his"},
		{"Female", "she/her/hers"},
		{"non-binary", "they/them/their"},
		{"", "they/them/their"},
		{"unspecified", "they/them/their"},
	}
	for _, tt := range tests {
		if got := Pronouns(tt.gender); got != tt.expected {
			t.Errorf("Pronouns(%q) = %q, want %q", tt.gender, got, tt.expected)
		}
	}
}

func TestOriginProfile(t *testing.T) {
	got := OriginProfile("reincarnated", "cultivation")
	want := "CHARACTER ORIGIN: Reincarnated - Retaining memories of past life as a powerful cultivator"
	if got != want {
		t.Errorf("OriginProfile = %q, want %q", got, want)
	}

	got = OriginProfile("genius", "scifi")
	if got != "CHARACTER ORIGIN: Genius - A genius character in a scifi world" {
		t.Errorf("Unexpected generic profile: %q", got)
	}

	if !strings.HasPrefix(OriginProfile("", "fantasy"), "CHARACTER ORIGIN: Normal") {
		t.Error("Expected empty origin to default to normal")
	}
}

func TestDirectives(t *testing.T) {
	if LanguageDirective("simple") == "" || LanguageDirective("unknown") != "" {
		t.Error("Unexpected language directive lookup")
	}
	if ToneDirective("horror") == "" || ToneDirective("") != "" {
		t.Error("Unexpected tone directive lookup")
	}
	for _, s := range story.KnownSettings() {
		if SettingDirective(s) == "" {
			t.Errorf("Missing setting directive for %q", s)
		}
	}
}

func TestRoster(t *testing.T) {
	if Roster(nil, 5) != "" {
		t.Error("Expected empty roster for no characters")
	}

	chars := []story.Character{
		{Name: "Mo", Relationship: "Mentor", Role: story.StrPtr("Elder")},
		{Name: "Rhea", Relationship: "Rival"},
		{Name: "Oren", Relationship: "Ally", Sect: story.StrPtr("Azure Cloud")},
	}
	got := Roster(chars, 2)
	want := "- Rhea (Rival)\n- Oren (Ally, Azure Cloud)"
	if got != want {
		t.Errorf("Roster = %q, want %q", got, want)
	}
	if !strings.Contains(Roster(chars, 0), "- Mo (Mentor, Elder)") {
		t.Error("Expected unlimited roster to include all characters")
	}
}
