package prompts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/storyarc/pkg/arcs"
	"github.com/jwebster45206/storyarc/pkg/story"
)

// Prompt is a system/user prompt pair for one generation call.
type Prompt struct {
	System string
	User   string
}

// Voice is the genre-specific part of the system prompt.
type Voice struct {
	// Persona opens the system prompt, e.g. "You are a master storyteller..."
	Persona string
	// Rules are genre-specific writing rules.
	Rules []string
}

// Builder assembles prompts from fragment tables using a fluent interface.
type Builder struct {
	voice       Voice
	mem         *story.StoryMemory
	tone        string
	complexity  string
	directive   *arcs.Directive
	prevContent string
	choice      string
	simplified  bool
	rosterLimit int
}

// New creates a new prompt builder with default settings.
func New() *Builder {
	return &Builder{rosterLimit: 12}
}

// WithVoice sets the genre persona and rules.
func (b *Builder) WithVoice(v Voice) *Builder {
	b.voice = v
	return b
}

// WithMemory sets the story memory (protagonist, setting, goal, roster).
func (b *Builder) WithMemory(mem *story.StoryMemory) *Builder {
	b.mem = mem
	return b
}

// WithStyle sets tone and language complexity.
func (b *Builder) WithStyle(tone, complexity string) *Builder {
	b.tone = tone
	b.complexity = complexity
	return b
}

// WithDirective sets the pacing directive.
func (b *Builder) WithDirective(d arcs.Directive) *Builder {
	b.directive = &d
	return b
}

// WithPrevious sets the previous chapter and the choice the player made.
// Without it the builder produces an opening prompt.
func (b *Builder) WithPrevious(content, selectedChoice string) *Builder {
	b.prevContent = content
	b.choice = selectedChoice
	return b
}

// Simplified drops optional sections so a retry focuses on the format.
func (b *Builder) Simplified(s bool) *Builder {
	b.simplified = s
	return b
}

// WithRosterLimit caps how many known characters are listed.
func (b *Builder) WithRosterLimit(limit int) *Builder {
	b.rosterLimit = limit
	return b
}

// IsContinuation reports whether a previous chapter was supplied.
func (b *Builder) IsContinuation() bool {
	return b.choice != ""
}

// Build constructs the prompt pair.
func (b *Builder) Build() (Prompt, error) {
	if b.mem == nil {
		return Prompt{}, errors.New("memory is required")
	}
	if strings.TrimSpace(b.mem.CharacterName) == "" {
		return Prompt{}, errors.New("character name is required")
	}
	if b.prevContent != "" && b.choice == "" {
		return Prompt{}, errors.New("selected choice is required for a continuation")
	}

	return Prompt{
		System: b.system(),
		User:   b.user(),
	}, nil
}

func (b *Builder) system() string {
	var sections []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sections = append(sections, s)
		}
	}

	add(b.voice.Persona)
	add(SettingDirective(b.mem.Setting))
	add(OriginProfile(b.mem.CharacterOrigin, b.mem.Setting))
	add(PronounDirective(b.mem.CharacterName, b.mem.CharacterGender))

	if !b.simplified {
		add(ToneDirective(b.tone))
		add(LanguageDirective(b.complexity))
		if len(b.voice.Rules) > 0 {
			add("- " + strings.Join(b.voice.Rules, "\n- "))
		}
		add(ClarityRules)
	}

	add(FormatInstructions)
	if !b.simplified {
		add(CharacterBlockInstructions)
	}
	return strings.Join(sections, "\n\n")
}

func (b *Builder) user() string {
	var sb strings.Builder
	name := b.mem.CharacterName

	if b.directive != nil {
		sb.WriteString("STORY PLAN:\n")
		sb.WriteString(b.directive.Text())
		sb.WriteString("\n\n")
	}

	if !b.simplified {
		if roster := Roster(b.mem.Characters, b.rosterLimit); roster != "" {
			sb.WriteString("KNOWN CHARACTERS (keep them consistent):\n")
			sb.WriteString(roster)
			sb.WriteString("\n\n")
		}
	}

	if b.IsContinuation() {
		prev := b.prevContent
		if b.simplified {
			prev = lastParagraph(prev)
		}
		if prev != "" {
			fmt.Fprintf(&sb, "PREVIOUS CHAPTER:\n%s\n\n", prev)
		}
		fmt.Fprintf(&sb, "CHOSEN ACTION: %s\n\n", b.choice)
		fmt.Fprintf(&sb, "Continue the story for %s following the chosen action. Show its consequences clearly and end at a new decision point with exactly three choices.", name)
	} else {
		fmt.Fprintf(&sb, "Write the opening chapter of %s's story. Introduce the world, the protagonist and their situation, and end at a decision point with exactly three choices.", name)
	}

	if b.simplified {
		sb.WriteString("\n\nFollow the response format exactly.")
	}
	return sb.String()
}

func lastParagraph(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n\n"); i >= 0 {
		return strings.TrimSpace(s[i+2:])
	}
	return s
}
