package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/storyarc/pkg/story"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FormatInstructions tells the model how to lay out its answer. The parser
// accepts this layout and the colon-label variant.
const FormatInstructions = `Respond in exactly this format:

[STORY]
The chapter text, in several paragraphs.
[/STORY]

[CHOICES]
1. First choice, a concrete action grounded in the scene
2. Second choice, a concrete action grounded in the scene
3. Third choice, a concrete action grounded in the scene
[/CHOICES]

Choices must be specific to what just happened. Never write generic choices such as "continue your journey", "choose your path" or "see what happens".`

// CharacterBlockInstructions asks the model to announce newcomers in a
// machine-readable block that is stripped before the reader sees it.
const CharacterBlockInstructions = `If a named supporting character appears for the first time, list them after the choices:

[NEW CHARACTERS]
Name: <name>
Relationship: <relationship to the protagonist>
Sect: <sect or organization, optional>
Role: <role or title, optional>
[/NEW CHARACTERS]

Separate multiple characters with a blank line. Omit the block when nobody new appears.`

// ClarityRules are the continuity rules every chapter must follow.
const ClarityRules = `Every chapter must follow these rules:
- Every event has a clear cause and effect.
- Scene transitions explain where the protagonist is and why they moved there.
- Completed challenges end with a concrete reward or consequence.
- Character motivations are made clear; no repeated cryptic dialogue.`

var toneFragments = map[string]string{
	"adventure":     "Keep the pace brisk and the sense of discovery strong.",
	"romantic":      "Let relationships and emotional tension drive the scenes.",
	"mystery":       "Plant clues carefully and keep the reader guessing.",
	"thriller":      "Keep tension high and danger close.",
	"comedy":        "Keep it light and let situations turn absurd.",
	"drama":         "Focus on difficult choices and their emotional weight.",
	"horror":        "Build dread slowly and make the unknown frightening.",
	"slice-of-life": "Find meaning in small everyday moments.",
	"epic":          "Paint on a grand scale, with the fate of many at stake.",
	"philosophical": "Let the protagonist wrestle with questions of meaning and choice.",
	"shonen":        "Emphasize rivalry, perseverance and hard-won growth.",
}

var settingFragments = map[string]string{
	"cultivation": "A world of sects, qi cultivation realms, spirit beasts and ancient inheritances.",
	"fantasy":     "A world of kingdoms, magic, guilds and monsters.",
	"academy":     "A prestigious magic academy of rankings, rivalries and forbidden knowledge.",
	"modern":      "A contemporary city whose ordinary surface hides dangerous secrets.",
	"scifi":       "A far future of starships, colonies and uneasy interstellar powers.",
	"historical":  "A richly detailed historical era of courts, wars and shifting loyalties.",
	"gamelike":    "A world that runs on levels, skills and system notifications.",
	"apocalypse":  "A ruined world where survivors fight over what remains.",
}

var complexityFragments = map[string]string{
	"simple":   "Use simple, clear language that is easy to understand. Avoid complex vocabulary or long sentences.",
	"moderate": "Use moderate language complexity with some advanced vocabulary, but keep it accessible.",
	"complex":  "Use rich, sophisticated language with advanced vocabulary and complex sentence structures.",
}

// originProfiles maps origin to per-setting descriptions.
var originProfiles = map[string]map[string]string{
	"weak": {
		"cultivation": "Starting with minimal qi sensitivity, often mocked by sect members",
		"fantasy":     "Possessing little magical talent initially, overlooked by most",
		"academy":     "Struggling with basic magical concepts, ranked at the bottom of class",
	},
	"normal": {
		"cultivation": "Average cultivation potential with steady, unremarkable progress",
		"fantasy":     "Typical magical abilities, neither gifted nor hindered",
		"academy":     "Standard magical aptitude, blending in with most students",
	},
	"hidden": {
		"cultivation": "Concealing true cultivation level or possessing secret techniques",
		"fantasy":     "Hiding powerful magical bloodline or ancient knowledge",
		"academy":     "Masking exceptional abilities to avoid unwanted attention",
	},
	"reincarnated": {
		"cultivation": "Retaining memories of past life as a powerful cultivator",
		"fantasy":     "Carrying knowledge from previous existence in this world",
		"academy":     "Remembering advanced magical theory from past incarnation",
	},
	"genius": {
		"cultivation": "Exceptional qi comprehension and rapid cultivation advancement",
		"fantasy":     "Extraordinary magical talent that surpasses peers",
		"academy":     "Prodigious magical abilities that astound teachers",
	},
	"fallen": {
		"cultivation": "Once powerful but now reduced to lowest cultivation levels",
		"fantasy":     "Former magical prodigy who lost abilities due to tragedy",
		"academy":     "Previously top student now struggling after mysterious incident",
	},
}

// Pronouns returns the pronoun set for a gender.
func Pronouns(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "male":
		return "he/him/his"
	case "female":
		return "she/her/hers"
	default:
		return "they/them/their"
	}
}

// PronounDirective tells the model how to refer to the protagonist.
func PronounDirective(name, gender string) string {
	return fmt.Sprintf("Refer to %s using %s pronouns.", name, Pronouns(gender))
}

// OriginProfile describes the protagonist's background.
func OriginProfile(origin, setting string) string {
	origin = strings.ToLower(strings.TrimSpace(origin))
	if origin == "" {
		origin = "normal"
	}
	desc, ok := originProfiles[origin][setting]
	if !ok {
		desc = fmt.Sprintf("A %s character in a %s world", origin, setting)
	}
	return fmt.Sprintf("CHARACTER ORIGIN: %s - %s", cases.Title(language.English).String(origin), desc)
}

// LanguageDirective returns the language-complexity fragment, or "".
func LanguageDirective(complexity string) string {
	return complexityFragments[strings.ToLower(strings.TrimSpace(complexity))]
}

// ToneDirective returns the tone fragment, or "".
func ToneDirective(tone string) string {
	return toneFragments[strings.ToLower(strings.TrimSpace(tone))]
}

// SettingDirective returns the world description for a setting, or "".
func SettingDirective(setting string) string {
	return settingFragments[strings.ToLower(strings.TrimSpace(setting))]
}

// Roster summarizes known characters, most recent last, capped at limit.
func Roster(chars []story.Character, limit int) string {
	if len(chars) == 0 {
		return ""
	}
	if limit > 0 && len(chars) > limit {
		chars = chars[len(chars)-limit:]
	}
	var b strings.Builder
	for _, c := range chars {
		fmt.Fprintf(&b, "- %s (%s", c.Name, c.Relationship)
		if c.Role != nil {
			fmt.Fprintf(&b, ", %s", *c.Role)
		}
		if c.Sect != nil {
			fmt.Fprintf(&b, ", %s", *c.Sect)
		}
		b.WriteString(")\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
