package genres

import "github.com/jwebster45206/storyarc/pkg/prompts"

var fantasyVoice = prompts.Voice{
	Persona: "You are a master storyteller writing an immersive high fantasy adventure with the momentum of a serialized web novel.",
	Rules: []string{
		"Ground magic in clear rules and visible costs.",
		"Let companions and rivals act on their own goals.",
		"Use concrete places, creatures and artifacts rather than generic ones.",
	},
}

// NewFantasyController handles the fantasy setting.
func NewFantasyController(l *Ladder) Controller {
	return &controller{
		meta: Metadata{
			Key:         "fantasy",
			Name:        "Fantasy Adventure",
			Description: "Quests, magic and old legends in a world of kingdoms and ruins.",
			Settings:    []string{"fantasy"},
			Flavor:      FlavorFantasy,
		},
		voice:  staticVoice(fantasyVoice),
		ladder: l,
	}
}
