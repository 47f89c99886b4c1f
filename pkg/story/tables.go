package story

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var toneTitles = map[string]string{
	"romantic":      "Love Story",
	"mystery":       "Mystery",
	"adventure":     "Adventure",
	"thriller":      "Thriller",
	"comedy":        "Comedy",
	"drama":         "Story",
	"horror":        "Horror Tale",
	"slice-of-life": "Story",
	"epic":          "Epic",
	"philosophical": "Journey",
	"shonen":        "Saga",
}

var settingTitles = map[string]string{
	"modern":      "Urban",
	"fantasy":     "Fantasy",
	"scifi":       "Space",
	"academy":     "Academy",
	"historical":  "Historical",
	"gamelike":    "Game",
	"cultivation": "Cultivation",
	"apocalypse":  "Survival",
}

var progressStages = map[string]string{
	"cultivation": "Qi Condensation Stage (Level 1)",
	"fantasy":     "Novice Adventurer (Level 1)",
	"academy":     "First Year Student (Rank F)",
	"gamelike":    "Level 1 Adventurer",
	"apocalypse":  "Rookie Survivor",
	"scifi":       "Cadet",
	"modern":      "Rookie Investigator",
	"historical":  "Aspiring Apprentice",
}

// GenerateTitle builds a display title such as "Lin's Cultivation Adventure".
func GenerateTitle(name, setting, tone string) string {
	toneTitle, ok := toneTitles[tone]
	if !ok {
		toneTitle = "Story"
	}
	name = cases.Title(language.English, cases.NoLower).String(name)
	if settingTitle, ok := settingTitles[setting]; ok {
		return name + "'s " + settingTitle + " " + toneTitle
	}
	return name + "'s " + toneTitle
}

// InitialProgressStage returns the starting progress label for a setting.
// Settings without progression return "".
func InitialProgressStage(setting string) string {
	return progressStages[setting]
}

// KnownSettings lists settings with title and progress tables.
func KnownSettings() []string {
	return []string{"cultivation", "fantasy", "academy", "modern", "scifi", "historical", "gamelike", "apocalypse"}
}
