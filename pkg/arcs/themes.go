package arcs

import (
	"slices"
	"strings"
)

// Theme keys.
const (
	ThemeRevenge     = "revenge"
	ThemeImmortality = "immortality"
	ThemePastLife    = "past_life"
	ThemeUniteClans  = "unite_martial_clans"
	ThemeArtifact    = "recover_legendary_artifact"
	ThemeProtection  = "protection"
	ThemeUniqueDao   = "unique_dao"
)

// DefaultPremise keeps the state machine moving when planning fails.
const DefaultPremise = "Survive the sect's brutal outer disciple training."

// Pool is the premise list and classification keywords for one theme.
type Pool struct {
	Theme    string   `yaml:"theme"`
	Keywords []string `yaml:"keywords"`
	Premises []string `yaml:"premises"`
}

// Pools holds theme pools in classification order.
type Pools struct {
	order   []string
	byTheme map[string]*Pool
}

// NewPools creates an empty pool set.
func NewPools() *Pools {
	return &Pools{byTheme: make(map[string]*Pool)}
}

// DefaultPools returns the built-in themes.
func DefaultPools() *Pools {
	p := NewPools()
	for _, pool := range builtinPools {
		p.Add(Pool{
			Theme:    pool.Theme,
			Keywords: slices.Clone(pool.Keywords),
			Premises: slices.Clone(pool.Premises),
		})
	}
	return p
}

// Add registers a pool. An existing theme is extended: keywords and premises
// not already present are appended. New themes are classified after the
// existing ones.
func (p *Pools) Add(pool Pool) {
	key := strings.TrimSpace(pool.Theme)
	if key == "" {
		return
	}
	existing, ok := p.byTheme[key]
	if !ok {
		existing = &Pool{Theme: key}
		p.byTheme[key] = existing
		p.order = append(p.order, key)
	}
	for _, kw := range pool.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && !slices.Contains(existing.Keywords, kw) {
			existing.Keywords = append(existing.Keywords, kw)
		}
	}
	for _, pr := range pool.Premises {
		pr = strings.TrimSpace(pr)
		if pr != "" && !slices.Contains(existing.Premises, pr) {
			existing.Premises = append(existing.Premises, pr)
		}
	}
}

// Replace swaps a theme's pool wholesale, keeping its classification slot.
func (p *Pools) Replace(pool Pool) {
	key := strings.TrimSpace(pool.Theme)
	if key == "" {
		return
	}
	if _, ok := p.byTheme[key]; ok {
		p.byTheme[key] = &Pool{Theme: key}
	}
	p.Add(pool)
}

// Themes returns theme keys in classification order.
func (p *Pools) Themes() []string {
	return slices.Clone(p.order)
}

// Get returns the pool for a theme.
func (p *Pools) Get(theme string) (Pool, bool) {
	pool, ok := p.byTheme[theme]
	if !ok {
		return Pool{}, false
	}
	return *pool, true
}

// Match classifies a goal by keyword, checking themes in order.
func (p *Pools) Match(goal string) (string, bool) {
	g := strings.ToLower(goal)
	if strings.TrimSpace(g) == "" {
		return "", false
	}
	for _, theme := range p.order {
		for _, kw := range p.byTheme[theme].Keywords {
			if strings.Contains(g, kw) {
				return theme, true
			}
		}
	}
	return "", false
}

var builtinPools = []Pool{
	{
		Theme:    ThemeRevenge,
		Keywords: []string{"revenge", "vengeance", "avenge", "betray"},
		Premises: []string{
			"Take the sect entrance exam and earn qualification.",
			"Survive the sect's brutal outer disciple training.",
			"Win the internal sect tournament to rise in rank.",
			"Investigate rumors about the betrayer's past.",
			"Challenge an inner disciple to gain attention.",
			"Explore the forbidden grounds near the sect.",
			"Uncover a hidden traitor among sect elders.",
			"Rescue a captured ally from a rival sect.",
			"Gain the title of Core Disciple.",
			"Hunt for a forbidden technique sealed by ancient cultivators.",
		},
	},
	{
		Theme:    ThemeImmortality,
		Keywords: []string{"immortal", "eternal life", "longevity", "ascend"},
		Premises: []string{
			"Master the Foundation Building stage.",
			"Find and decode ancient cultivation manuals.",
			"Survive the life-and-death trials of the inner disciples.",
			"Unlock latent talents through forbidden sect trials.",
			"Train under a mysterious hidden master.",
			"Discover an ancient relic said to lead to immortality.",
			"Face a Heart Demon Trial.",
			"Create a unique cultivation technique.",
			"Form a Pillar of Dao to stabilize cultivation.",
			"Enter the secret realm opened once every century.",
		},
	},
	{
		Theme:    ThemePastLife,
		Keywords: []string{"past life", "previous life", "former life", "reincarnat", "lost memories"},
		Premises: []string{
			"Recover fragmented memories from a past life.",
			"Seek remnants of past life treasures.",
			"Battle old enemies who once defeated you.",
			"Uncover the secrets behind your past death.",
			"Rebuild your lost cultivation base.",
			"Reclaim the title once held in your past life.",
			"Unravel hidden betrayals from your old allies.",
			"Find your past life's inheritance trial.",
			"Create a new sect inspired by your former life.",
			"Face the clan that destroyed your old self.",
		},
	},
	{
		Theme:    ThemeUniteClans,
		Keywords: []string{"unite", "unify", "alliance", "clans", "factions"},
		Premises: []string{
			"Travel to different sects and clans to build alliances.",
			"Survive assassination attempts from rival clans.",
			"Prove your strength in inter-sect tournaments.",
			"Unite small sects under your banner through diplomacy or duels.",
			"Discover ancient clan relics needed for unity.",
			"Expose corruption inside the leading martial sects.",
			"Save a declining sect to gain loyalty.",
			"Defeat rival clan leaders in open duels.",
			"Establish your own martial alliance.",
			"Challenge the council of elders from various sects.",
		},
	},
	{
		Theme:    ThemeArtifact,
		Keywords: []string{"artifact", "relic", "treasure", "heirloom"},
		Premises: []string{
			"Decode ancient maps pointing to the artifact.",
			"Survive forbidden secret realm trials.",
			"Battle rival treasure hunters.",
			"Find and protect artifact guardians.",
			"Defeat ancient beasts guarding the artifact.",
			"Solve the riddles of ancient cultivators.",
			"Fight through illusion arrays protecting the artifact.",
			"Gather scattered relic fragments across territories.",
			"Unlock the artifact's hidden powers step-by-step.",
			"Face an ancient sect that claims ownership of the artifact.",
		},
	},
	{
		Theme:    ThemeProtection,
		Keywords: []string{"protect", "defend", "guard", "shield", "safeguard"},
		Premises: []string{
			"Earn the right to stand watch over your home village.",
			"Track the beast tide gathering beyond the mountain pass.",
			"Train the village youths in basic defensive techniques.",
			"Escort refugees safely through bandit territory.",
			"Strengthen the ancestral protective array before it fails.",
			"Uncover the spy feeding patrol routes to the enemy.",
			"Hold the river fortress through a seven-day siege.",
			"Negotiate shelter for the displaced with a proud sect.",
			"Recover the guardian talisman stolen from the shrine.",
			"Face the warlord who marked your people for ruin.",
		},
	},
	{
		Theme:    ThemeUniqueDao,
		Keywords: []string{"dao", "own path", "own way", "enlightenment", "heaven's will"},
		Premises: []string{
			"Question the orthodox teachings of your sect's founder.",
			"Seek insight from a wandering hermit who rejects all sects.",
			"Survive the backlash of fusing two incompatible techniques.",
			"Meditate beneath the waterfall where the first sage awakened.",
			"Debate the elders publicly about the nature of the Dao.",
			"Steal a glimpse of the forbidden scripture of the void.",
			"Endure the heavenly tribulation that punishes heresy.",
			"Gather disciples who share your unorthodox vision.",
			"Defeat a champion of the orthodox path using your own Dao.",
			"Carve your Dao into the ancient stele of ten thousand paths.",
		},
	},
}
