package genres

import "github.com/jwebster45206/storyarc/pkg/prompts"

var academyVoice = prompts.Voice{
	Persona: "You are a master storyteller writing a magic academy story full of rankings, rivalries and secrets, paced like a serialized manhwa.",
	Rules: []string{
		"Track class rankings, exams and tournaments as stakes the protagonist cares about.",
		"Give professors and classmates recognizable personalities.",
		"Reveal the academy's hidden history a little at a time.",
	},
}

// NewAcademyController handles the academy setting.
func NewAcademyController(l *Ladder) Controller {
	return &controller{
		meta: Metadata{
			Key:         "academy",
			Name:        "Magic Academy",
			Description: "Climb the rankings of an elite academy where every lesson is a contest.",
			Settings:    []string{"academy"},
			Flavor:      FlavorAcademy,
		},
		voice:  staticVoice(academyVoice),
		ladder: l,
	}
}
