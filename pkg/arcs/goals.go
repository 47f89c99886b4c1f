package arcs

import "strings"

// DefaultBigGoal is used for settings without a goal table.
const DefaultBigGoal = "Become the strongest cultivator."

var bigGoals = map[string][]string{
	"cultivation": {
		"Revenge on the Sect Leader who betrayed their family.",
		"Seek immortality and uncover ancient cultivation secrets.",
		"Regain lost memories from a past life.",
		"Unite the fractured martial clans under one rule.",
		"Recover the legendary artifact sealed by ancient cultivators.",
		"Protect the hidden valley where their family sheltered.",
		"Forge a unique Dao that defies the heavens.",
	},
	"fantasy": {
		"Avenge the fallen order of knights betrayed by the crown.",
		"Recover the shattered relic blade of the first war.",
		"Unite the scattered kingdoms against the coming dark.",
		"Protect the last free city from the lich's armies.",
	},
	"academy": {
		"Protect classmates from the conspiracy within the academy.",
		"Recover the lost artifact of the academy's founder.",
		"Unravel the mystery of their lost memories before graduation.",
	},
	"scifi": {
		"Avenge the colony destroyed by a corporate betrayal.",
		"Recover the alien relic hidden in the outer belt.",
		"Unite the rival fleets against the machine incursion.",
	},
	"modern": {
		"Expose the betrayal that framed their family.",
		"Protect the neighborhood from the syndicate moving in.",
	},
	"historical": {
		"Avenge the betrayal that cost their house its lands.",
		"Unite the warring provinces before the invasion.",
		"Recover the imperial treasure lost in the rebellion.",
	},
	"gamelike": {
		"Reach the top of the tower and claim the legendary relic.",
		"Protect the starting town from the monster waves.",
		"Unite the guilds to clear the final raid.",
	},
	"apocalypse": {
		"Protect the last settlement through the long winter.",
		"Unite the scattered survivor clans.",
		"Recover the seed vault relic that can restore the land.",
	},
}

// BigGoals returns the goal table for a setting.
func BigGoals(setting string) []string {
	return bigGoals[strings.ToLower(strings.TrimSpace(setting))]
}
