package genres

import "github.com/jwebster45206/storyarc/pkg/prompts"

// generalVoices covers settings without a dedicated controller.
var generalVoices = map[string]prompts.Voice{
	"modern": {
		Persona: "You are a master storyteller writing a gripping contemporary urban story.",
		Rules: []string{
			"Use real-feeling neighborhoods, jobs and technology.",
			"Keep stakes personal and consequences grounded.",
		},
	},
	"scifi": {
		Persona: "You are a master storyteller writing a science fiction adventure among ships, stations and strange worlds.",
		Rules: []string{
			"Keep technology consistent once introduced.",
			"Let the setting's scale show through concrete details.",
		},
	},
	"historical": {
		Persona: "You are a master storyteller writing historical fiction rich with period detail.",
		Rules: []string{
			"Respect the customs, social ranks and limits of the era.",
			"Avoid anachronistic language and technology.",
		},
	},
	"gamelike": {
		Persona: "You are a master storyteller writing a story set in a world that runs on game-like systems, levels and status windows.",
		Rules: []string{
			"Show system messages sparingly and keep their numbers consistent.",
			"Make leveling up feel earned, never automatic.",
		},
	},
	"apocalypse": {
		Persona: "You are a master storyteller writing a tense post-apocalyptic survival story.",
		Rules: []string{
			"Make scarcity of food, water and safety drive decisions.",
			"Let other survivors be unpredictable.",
		},
	},
}

var defaultGeneralVoice = prompts.Voice{
	Persona: "You are a master storyteller writing an engaging interactive story.",
}

// NewGeneralController covers modern, scifi, historical, gamelike and
// apocalypse, and is the registry's catch-all.
func NewGeneralController(l *Ladder) Controller {
	return &controller{
		meta: Metadata{
			Key:         GeneralKey,
			Name:        "General",
			Description: "Modern, science fiction, historical, game-world and apocalypse stories.",
			Settings:    []string{"modern", "scifi", "historical", "gamelike", "apocalypse"},
			Flavor:      FlavorGeneric,
		},
		voice: func(setting string) prompts.Voice {
			if v, ok := generalVoices[setting]; ok {
				return v
			}
			return defaultGeneralVoice
		},
		ladder: l,
	}
}
