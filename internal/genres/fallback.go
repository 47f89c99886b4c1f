package genres

import (
	"fmt"
	"regexp"
	"strings"
)

// Flavor selects the wording of fallback content.
type Flavor string

const (
	FlavorCultivation Flavor = "cultivation"
	FlavorFantasy     Flavor = "fantasy"
	FlavorAcademy     Flavor = "academy"
	FlavorGeneric     Flavor = "generic"
)

// Category is the coarse intent of a selected choice.
type Category string

const (
	CategoryConflict    Category = "conflict"
	CategoryTraining    Category = "training"
	CategoryExploration Category = "exploration"
	CategorySocial      Category = "social"
	CategoryGeneric     Category = "generic"
)

// Checked in order; the first match wins.
var categoryPatterns = []struct {
	category Category
	re       *regexp.Regexp
}{
	{CategoryConflict, regexp.MustCompile(`(?i)\b(confront|fight|fought|attack|challeng|duel)`)},
	{CategoryTraining, regexp.MustCompile(`(?i)\b(train|practi[cs]|meditat|cultivat|study|studies|studying)`)},
	{CategoryExploration, regexp.MustCompile(`(?i)\b(explor|investigat|search|examin|scout)`)},
	{CategorySocial, regexp.MustCompile(`(?i)\b(talk|allian|allies|ally\b|ask|negotiat|befriend|persuad)`)},
}

// Categorize maps a choice to a fallback category.
func Categorize(choice string) Category {
	for _, p := range categoryPatterns {
		if p.re.MatchString(choice) {
			return p.category
		}
	}
	return CategoryGeneric
}

var flavorContext = map[Flavor]string{
	FlavorCultivation: "world of sects and cultivation",
	FlavorFantasy:     "realm of magic and old legends",
	FlavorAcademy:     "academy where every lesson is a contest",
	FlavorGeneric:     "unfolding story",
}

var categoryBeats = map[Category]string{
	CategoryConflict:    "Tension sharpens the air as the opposition takes notice, and there is no easy way back from this.",
	CategoryTraining:    "Hours blur together in focused effort, and something small but real begins to shift.",
	CategoryExploration: "Details that others overlooked start to fit together, pointing somewhere unexpected.",
	CategorySocial:      "Words carry weight here, and the answers given reveal as much as they hide.",
	CategoryGeneric:     "The path ahead remains uncertain, but resolve grows stronger with each step.",
}

var fallbackChoices = map[Flavor]map[Category][]string{
	FlavorCultivation: {
		CategoryConflict: {
			"Meet the challenge head on with your strongest technique",
			"Study your opponent's stance before striking",
			"Call a senior disciple to witness the duel",
		},
		CategoryTraining: {
			"Push your meridians past their limit in secluded practice",
			"Ask an elder to correct the flaws in your breathing method",
			"Test your progress against a rival disciple",
		},
		CategoryExploration: {
			"Follow the faint qi trail deeper into the mountains",
			"Search the sect archives for records of this place",
			"Examine the strange formation carved into the stone",
		},
		CategorySocial: {
			"Offer the outer disciple a pill in exchange for information",
			"Seek an audience with the sect elder",
			"Share tea with the wandering cultivator at the gate",
		},
		CategoryGeneric: {
			"Focus on inner spiritual energy and meditation",
			"Seek wisdom from experienced cultivators",
			"Challenge yourself with intensive training",
		},
	},
	FlavorFantasy: {
		CategoryConflict: {
			"Draw your blade and hold the narrow bridge",
			"Circle around to strike from the treeline",
			"Shout a warning to rally your companions",
		},
		CategoryTraining: {
			"Drill sword forms with the veteran knight until dusk",
			"Practice the warding spell from the battered grimoire",
			"Spar with your companions by the campfire",
		},
		CategoryExploration: {
			"Explore the magical energies humming in the ruins",
			"Investigate the source of the flickering lights",
			"Map the tunnels beneath the old watchtower",
		},
		CategorySocial: {
			"Search for allies among the traveling merchants",
			"Bargain with the innkeeper for rumors",
			"Earn the trust of the wary village elder",
		},
		CategoryGeneric: {
			"Explore the magical energies in this realm",
			"Search for allies in this mystical world",
			"Investigate the source of mysterious phenomena",
		},
	},
	FlavorAcademy: {
		CategoryConflict: {
			"Accept the formal duel in the academy arena",
			"Report the rival's sabotage to the headmaster",
			"Outmaneuver the rival during tomorrow's practical exam",
		},
		CategoryTraining: {
			"Study advanced magical theory in the restricted library",
			"Practice spellwork in the empty lecture hall after curfew",
			"Join the senior students' dawn training session",
		},
		CategoryExploration: {
			"Sneak into the sealed wing of the academy",
			"Investigate the missing pages in the enchantment textbook",
			"Follow the professor who keeps vanishing after class",
		},
		CategorySocial: {
			"Build relationships with fellow students in your dormitory",
			"Ask your mentor about the academy's hidden history",
			"Form a study group with the transfer student",
		},
		CategoryGeneric: {
			"Study advanced magical theory and techniques",
			"Build relationships with fellow students",
			"Participate in academy challenges and competitions",
		},
	},
	FlavorGeneric: {
		CategoryConflict: {
			"Stand your ground and face the threat directly",
			"Fall back to a safer position and regroup",
			"Look for leverage that could end this without a fight",
		},
		CategoryTraining: {
			"Spend the day sharpening the skills you will need",
			"Find someone more experienced to learn from",
			"Test what you have learned in a real situation",
		},
		CategoryExploration: {
			"Follow the clue to where it leads",
			"Search the area more carefully for anything missed",
			"Check the records for what happened here before",
		},
		CategorySocial: {
			"Ask the stranger what they really want",
			"Reach out to an old contact for help",
			"Offer a deal that benefits both sides",
		},
		CategoryGeneric: {
			"Carefully analyze the current situation",
			"Take action based on instinct and courage",
			"Seek additional information before proceeding",
		},
	},
}

// ContextualFallback returns deterministic content and three choices for a
// continuation, keyed by the selected choice's category and the flavor.
func ContextualFallback(flavor Flavor, name, selectedChoice string) (string, []string) {
	flavor = knownFlavor(flavor)
	category := Categorize(selectedChoice)

	action := strings.ToLower(strings.TrimRight(strings.TrimSpace(selectedChoice), ".!?"))
	content := fmt.Sprintf("%s takes a deep breath and decides to %s. %s In this %s, every choice shapes the journey that lies ahead...",
		name, action, categoryBeats[category], flavorContext[flavor])

	return content, append([]string(nil), fallbackChoices[flavor][category]...)
}

var openingFallbacks = map[Flavor]struct {
	scene   string
	choices []string
}{
	FlavorCultivation: {
		scene: "%s stands in the training grounds of the Iron Will Sect, watching senior disciples move through techniques far beyond their reach. As a %s disciple at the very start of the cultivation path, a crucial decision waits.",
		choices: []string{
			"Challenge a rival disciple to test your current abilities",
			"Seek guidance from an elder about cultivation techniques",
			"Attempt to learn a forbidden technique in secret",
		},
	},
	FlavorFantasy: {
		scene: "%s arrives at the crossroads town of Emberfall as the bells ring out a warning. Smoke rises beyond the hills, and for a %s traveler with little more than a pack and a name, the road ahead splits three ways.",
		choices: []string{
			"Answer the captain's call for volunteers at the gate",
			"Slip into the tavern to learn what the bells mean",
			"Head toward the smoke before anyone else does",
		},
	},
	FlavorAcademy: {
		scene: "%s steps through the gates of the academy on entrance day, clutching an acceptance letter that still feels unreal. Ranked students watch the newcomers closely, and a %s first year will need to make an impression quickly.",
		choices: []string{
			"Introduce yourself to the top-ranked student in your year",
			"Find the library before the crowds arrive",
			"Volunteer for the placement duel everyone is avoiding",
		},
	},
	FlavorGeneric: {
		scene: "%s wakes to a day that will not go as planned. A message waits that should not exist, and for someone with a %s background, ignoring it is not really an option.",
		choices: []string{
			"Follow the instructions in the message",
			"Track down whoever sent it",
			"Tell someone you trust before doing anything",
		},
	},
}

// OpeningFallback returns deterministic opening content for a flavor.
func OpeningFallback(flavor Flavor, name, origin string) (string, []string) {
	flavor = knownFlavor(flavor)
	if strings.TrimSpace(origin) == "" {
		origin = "normal"
	}
	o := openingFallbacks[flavor]
	return fmt.Sprintf(o.scene, name, origin), append([]string(nil), o.choices...)
}

func knownFlavor(f Flavor) Flavor {
	if _, ok := fallbackChoices[f]; ok {
		return f
	}
	return FlavorGeneric
}
