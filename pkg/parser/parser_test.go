package parser

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longContent = "Mist coils around the broken pagoda as the bell tolls thrice, and every disciple in the courtyard turns to watch."

func TestParse_ColonLabelsExample(t *testing.T) {
	raw := "STORY:\nHello world this is plenty long.\nCHOICES:\n1. Do the first thing in detail\n2. Do the second thing in detail\n3. Do the third thing in detail"

	res, err := Parse(raw, Lenient)
	require.NoError(t, err)
	assert.Equal(t, "Hello world this is plenty long.", res.Content)
	assert.Equal(t, []string{
		"Do the first thing in detail",
		"Do the second thing in detail",
		"Do the third thing in detail",
	}, res.Choices)
	assert.Equal(t, 3, res.RealChoices)
	assert.Equal(t, []string{"colon-labels"}, res.Strategies)
}

func TestParse_TwoChoicesShortContent(t *testing.T) {
	raw := "STORY:\nToo short.\nCHOICES:\n1. Walk into the dark forest\n2. Return to the village gate"

	_, err := Parse(raw, Strict)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParseFailure))
	var pf *ParseFailure
	require.True(t, errors.As(err, &pf))

	res, err := Parse(raw, Lenient)
	require.NoError(t, err)
	require.Len(t, res.Choices, 3)
	assert.Equal(t, "Walk into the dark forest", res.Choices[0])
	assert.Equal(t, "Return to the village gate", res.Choices[1])
	assert.Contains(t, res.Choices[2], "Option 3")
	assert.True(t, IsPlaceholder(res.Choices[2]))
	assert.Equal(t, 2, res.RealChoices)
	assert.Equal(t, 1, res.Padded())
}

func TestParse_BracketTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "closed tags",
			raw: "[STORY]\n" + longContent + "\n[/STORY]\n\n[CHOICES]\n1. Climb the pagoda to find the bell ringer\n" +
				"2. Slip away toward the herb garden unseen\n3) Question the gatekeeper about the visitors\n[/CHOICES]",
		},
		{
			name: "missing closing tags",
			raw: "[STORY]\n" + longContent + "\n[CHOICES]\n1. Climb the pagoda to find the bell ringer\n" +
				"2. Slip away toward the herb garden unseen\n3) Question the gatekeeper about the visitors",
		},
		{
			name: "stray closing tag inside content",
			raw: "[STORY]\n" + longContent + " [/STORY] [/STORY]\n[CHOICES]\n1. Climb the pagoda to find the bell ringer\n" +
				"2. Slip away toward the herb garden unseen\n3. Question the gatekeeper about the visitors\n[/CHOICES]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, mode := range []Mode{Strict, Lenient} {
				res, err := Parse(tt.raw, mode)
				require.NoError(t, err, mode.String())
				assert.Equal(t, longContent, res.Content)
				require.Len(t, res.Choices, 3)
				assert.Equal(t, "Question the gatekeeper about the visitors", res.Choices[2])
				for _, c := range res.Choices {
					assert.NotRegexp(t, `^\d`, c, "choice must not keep its ordinal")
					assert.NotContains(t, c, "[")
				}
			}
		})
	}
}

func TestParse_NumberedLinesWithoutMarkers(t *testing.T) {
	raw := longContent + "\nThe elder's gaze settles on you.\n\n1) Bow low and ask for the elder's guidance\n2) Hold your ground and meet the elder's eyes\n3) Point out the figure lurking behind the gate"

	res, err := Parse(raw, Strict)
	require.NoError(t, err)
	assert.Equal(t, longContent+"\nThe elder's gaze settles on you.", res.Content)
	assert.Equal(t, "Bow low and ask for the elder's guidance", res.Choices[0])
	assert.Contains(t, res.Strategies, "numbered-lines")
}

func TestParse_TailScanFindsUnnumberedChoices(t *testing.T) {
	raw := "STORY:\n" + longContent + "\nCHOICES:\n- Chase the fleeing courier across the rooftops\n- Report the theft to the inner court\n- Search the courier's abandoned satchel"

	res, err := Parse(raw, Strict)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Chase the fleeing courier across the rooftops",
		"Report the theft to the inner court",
		"Search the courier's abandoned satchel",
	}, res.Choices)
	assert.Contains(t, res.Strategies, "tail-scan")
}

func TestParse_SalvageProse(t *testing.T) {
	raw := "Ok.\n1. Follow the drumbeat upstream toward the light\nThe river glows with a pale blue light that hums in your bones.\nSomewhere upstream, a drum begins to beat in slow measured time."

	res, err := Parse(raw, Lenient)
	require.NoError(t, err)
	assert.Equal(t, "The river glows with a pale blue light that hums in your bones. Somewhere upstream, a drum begins to beat in slow measured time.", res.Content)
	assert.Contains(t, res.Strategies, "salvage-prose")
	require.Len(t, res.Choices, 3)
}

func TestParse_StrictRejectsGenericChoices(t *testing.T) {
	raw := fmt.Sprintf("STORY:\n%s\nCHOICES:\n1. Continue your journey\n2. Seek the hermit in the bamboo grove\n3. Return to the sect to report", longContent)

	_, err := Parse(raw, Strict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "continue your journey")

	res, err := Parse(raw, Lenient)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Repaired)
	assert.NotContains(t, strings.ToLower(res.Choices[0]), "continue your journey")
	assert.NotEmpty(t, res.Choices[0])
	assert.Equal(t, "Seek the hermit in the bamboo grove", res.Choices[1])
}

func TestParse_StrictRejectsShortContent(t *testing.T) {
	raw := "STORY:\nA short scene here.\nCHOICES:\n1. Seek the hermit in the bamboo grove\n2. Return to the sect to report\n3. Follow the river to the waterfall"
	_, err := Parse(raw, Strict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content too short")
}

func TestParse_LenientNeverFails(t *testing.T) {
	inputs := []string{
		"x",
		"1. 2. 3.",
		"[STORY][/STORY][CHOICES][/CHOICES]",
		"STORY:\nCHOICES:",
		"\n\n\n   \n",
		"1. Only a numbered line that is long enough",
		"Just one paragraph of prose without any structure whatsoever, told plainly.",
		strings.Repeat("word ", 400),
		"[NEW CHARACTERS]\nName: Rhea\nRelationship: Rival\n[/NEW CHARACTERS]",
	}
	for _, in := range inputs {
		res, err := Parse(in, Lenient)
		require.NoError(t, err, in)
		require.Len(t, res.Choices, 3, in)
		assert.NotEmpty(t, res.Content, in)
		for _, c := range res.Choices {
			assert.NotEmpty(t, c)
		}
	}
}

func TestParse_ChoicesAreDistinct(t *testing.T) {
	raw := "STORY:\n" + longContent + "\nCHOICES:\n1. Seek the hermit in the bamboo grove\n2. Seek the hermit in the bamboo grove\n3. Return to the sect to report"
	res, err := Parse(raw, Lenient)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RealChoices)
	assert.True(t, IsPlaceholder(res.Choices[2]))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("STRICT")
	require.NoError(t, err)
	assert.Equal(t, Strict, m)
	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Lenient, m)
	_, err = ParseMode("loose")
	assert.Error(t, err)
}

const threeBracketChoices = "[CHOICES]\n1. Climb the pagoda to find the bell ringer\n" +
	"2. Slip away toward the herb garden unseen\n3. Question the gatekeeper about the visitors\n[/CHOICES]"

func TestParse_BracketTagsAfterWidthChangingText(t *testing.T) {
	tests := map[string]string{
		"invalid utf-8":  strings.Repeat("\xff", 10),
		"dotless i":      strings.Repeat("ı", 16),
		"long s":         strings.Repeat("ſ", 8),
		"mixed prefixes": "\xffıſ\xfe ",
	}
	for name, prefix := range tests {
		t.Run(name, func(t *testing.T) {
			raw := prefix + "[STORY]\n" + longContent + "\n[/STORY]\n" + threeBracketChoices
			for _, mode := range []Mode{Strict, Lenient} {
				res, err := Parse(raw, mode)
				if err != nil {
					t.Fatalf("%s: unexpected error: %v", mode, err)
				}
				if res.Content != longContent {
					t.Errorf("%s: Expected content %q, got %q", mode, longContent, res.Content)
				}
				if res.Choices[2] != "Question the gatekeeper about the visitors" {
					t.Errorf("%s: Expected third choice from the text, got %q", mode, res.Choices[2])
				}
			}
		})
	}
}

func TestParse_TruncatedTagsAfterInvalidUTF8(t *testing.T) {
	res, err := Parse(strings.Repeat("\xff", 10)+"[STORY]x[CHOICES]", Lenient)
	if err != nil {
		t.Fatalf("Lenient parse returned error: %v", err)
	}
	if len(res.Choices) != ChoiceCount {
		t.Errorf("Expected %d choices, got %d", ChoiceCount, len(res.Choices))
	}
}

func TestParse_CharacterBlockNeverBecomesChoice(t *testing.T) {
	twoChoices := "1. Climb the pagoda to find the bell ringer\n2. Slip away toward the herb garden unseen\n"
	tests := []struct {
		name        string
		raw         string
		strictValid bool
	}{
		{
			name: "closed block after two labelled choices",
			raw: "STORY:\n" + longContent + "\nCHOICES:\n" + twoChoices +
				"\n[NEW CHARACTERS]\nName: Rhea\nRelationship: Childhood friend\n[/NEW CHARACTERS]",
		},
		{
			name: "unclosed block after two labelled choices",
			raw:  "STORY:\n" + longContent + "\nCHOICES:\n" + twoChoices + "[NEW CHARACTERS]\nName: Rhea\nRelationship: Childhood friend",
		},
		{
			name: "stray roster fields after two choices",
			raw:  "STORY:\n" + longContent + "\nCHOICES:\n" + twoChoices + "\nName: Rhea the wandering swordswoman\nRelationship: Childhood friend from the village",
		},
		{
			name:        "unclosed block inside story section",
			raw:         "[STORY]\n" + longContent + "\n[NEW CHARACTERS]\nName: Rhea\nRelationship: Rival\n[/STORY]\n" + threeBracketChoices,
			strictValid: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw, Strict)
			if tt.strictValid && err != nil {
				t.Errorf("Expected strict parse to succeed, got %v", err)
			}
			if !tt.strictValid && !errors.Is(err, ErrParseFailure) {
				t.Errorf("Expected strict parse failure, got %v", err)
			}

			res, err := Parse(tt.raw, Lenient)
			if err != nil {
				t.Fatalf("Lenient parse returned error: %v", err)
			}
			if res.Content != longContent {
				t.Errorf("Expected content %q, got %q", longContent, res.Content)
			}
			for i, c := range res.Choices {
				if strings.Contains(strings.ToUpper(c), "NEW CHARACTERS") || strings.Contains(c, "Relationship") || strings.HasPrefix(c, "Name:") {
					t.Errorf("Choice %d leaked roster text: %q", i+1, c)
				}
			}
			if !tt.strictValid && !IsPlaceholder(res.Choices[2]) {
				t.Errorf("Expected third choice to be padded, got %q", res.Choices[2])
			}
		})
	}
}

func FuzzParse(f *testing.F) {
	seeds := []string{
		"x",
		"[STORY]\n" + longContent + "\n[/STORY]\n" + threeBracketChoices,
		strings.Repeat("\xff", 10) + "[STORY]x[CHOICES]",
		strings.Repeat("ı", 16) + "[story]" + longContent + "[choices]\n1. Walk the long road north",
		"ſ[STORY]\xe2\x80[/STORY][CHOICES][/CHOICES]",
		"STORY:\n" + longContent + "\nCHOICES:\n1. Climb the pagoda to find the bell ringer\n[NEW CHARACTERS]\nName: Rhea",
		"[NEW [STORY]CHARACTERS]\n1. [NEW [CHOICES]CHARACTERS] is here now",
		"[NEW CHARACTERS][NEW CHARACTERS][/NEW CHARACTERS][CHOICES]\n1) **Bold choice text here**",
		"CHOICES:\nSTORY:\n[/CHOICES][CHOICES]",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		if strings.TrimSpace(raw) == "" {
			return
		}
		res, err := Parse(raw, Lenient)
		if err != nil {
			t.Fatalf("Lenient parse returned error: %v", err)
		}
		if len(res.Choices) != ChoiceCount {
			t.Fatalf("Expected %d choices, got %d", ChoiceCount, len(res.Choices))
		}
		if res.Content == "" {
			t.Error("Expected non-empty content")
		}
		for i, c := range res.Choices {
			if c == "" {
				t.Errorf("Choice %d is empty", i+1)
			}
		}

		strict, err := Parse(raw, Strict)
		if err != nil {
			return
		}
		for i, c := range strict.Choices {
			if bracketTagRe.MatchString(c) {
				t.Errorf("Strict choice %d carries a section tag: %q", i+1, c)
			}
		}
	})
}
