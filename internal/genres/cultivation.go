package genres

import "github.com/jwebster45206/storyarc/pkg/prompts"

var cultivationVoice = prompts.Voice{
	Persona: "You are a master storyteller writing an addictive cultivation progression story in the style of a serialized manhwa. Every chapter should feel like a page-turner.",
	Rules: []string{
		"Name specific cultivation techniques and describe qi vividly.",
		"Show realm breakthroughs as hard-won, with a cost or a witness.",
		"Give sect elders, rivals and seniors distinct voices and agendas.",
		"Keep the sect hierarchy and cultivation stages consistent between chapters.",
	},
}

// NewCultivationController handles the cultivation setting.
func NewCultivationController(l *Ladder) Controller {
	return &controller{
		meta: Metadata{
			Key:         "cultivation",
			Name:        "Cultivation Progression",
			Description: "Rise through the realms of a martial sect, from outer disciple to legend.",
			Settings:    []string{"cultivation"},
			Flavor:      FlavorCultivation,
		},
		voice:  staticVoice(cultivationVoice),
		ladder: l,
	}
}
