// Package arcs plans story arcs and tracks pacing within them.
//
// A story is split into arcs, each a premise pursued over a fixed number of
// chapters. The planner owns the (arc index, chapters completed) state
// machine stored in story.StoryMemory and renders an advisory pacing
// directive for each request.
package arcs

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/jwebster45206/storyarc/pkg/story"
)

// Config holds planning constants.
type Config struct {
	TotalArcs     int
	TotalChapters int
	// OpenEnded regenerates the final arc's premise when it completes
	// instead of leaving the story saturated in the final arc.
	OpenEnded bool
}

// DefaultConfig matches the service defaults.
func DefaultConfig() Config {
	return Config{TotalArcs: 5, TotalChapters: 35, OpenEnded: true}
}

// ChaptersPerArc is floor(chapters / arcs), never below 1.
func (c Config) ChaptersPerArc() int {
	if c.TotalArcs < 1 {
		return max(1, c.TotalChapters)
	}
	return max(1, c.TotalChapters/c.TotalArcs)
}

// Planner plans arcs and advances pacing state. It is safe for concurrent
// use; each call mutates only the memory passed in.
type Planner struct {
	pools  *Pools
	cfg    Config
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Planner.
type Option func(*Planner)

// WithRand sets the random source, for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(p *Planner) {
		p.rng = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = l
	}
}

// NewPlanner creates a planner. A nil pools uses DefaultPools.
func NewPlanner(pools *Pools, cfg Config, opts ...Option) *Planner {
	if pools == nil {
		pools = DefaultPools()
	}
	if cfg.TotalArcs < 1 {
		cfg.TotalArcs = 1
	}
	if cfg.TotalChapters < cfg.TotalArcs {
		cfg.TotalChapters = cfg.TotalArcs
	}
	now := uint64(time.Now().UnixNano())
	p := &Planner{
		pools:  pools,
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
		rng:    rand.New(rand.NewPCG(now, now>>1|1)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the planning constants.
func (p *Planner) Config() Config {
	return p.cfg
}

// Pools returns the theme pools.
func (p *Planner) Pools() *Pools {
	return p.pools
}

// Classify maps a goal to a theme by keyword. With no keyword match it
// picks a random theme and reports ok=false.
func (p *Planner) Classify(goal string) (theme string, ok bool) {
	if theme, ok := p.pools.Match(goal); ok {
		return theme, true
	}
	themes := p.pools.Themes()
	if len(themes) == 0 {
		return "", false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return themes[p.rng.IntN(len(themes))], false
}

// BigGoal picks a long-term goal for a setting.
func (p *Planner) BigGoal(setting string) string {
	goals := BigGoals(setting)
	if len(goals) == 0 {
		return DefaultBigGoal
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return goals[p.rng.IntN(len(goals))]
}

// Init plans a fresh story: planning constants, goal, theme and the first
// TotalArcs premises. Counters start at zero.
func (p *Planner) Init(mem *story.StoryMemory) {
	mem.TotalArcsPlanned = p.cfg.TotalArcs
	mem.TotalChaptersPlanned = p.cfg.TotalChapters
	mem.ChaptersPerArc = p.cfg.ChaptersPerArc()
	mem.CurrentArcIndex = 0
	mem.ChaptersCompleted = 0

	if mem.BigStoryGoal == "" {
		mem.BigStoryGoal = p.BigGoal(mem.Setting)
	}

	theme, ok := p.Classify(mem.BigStoryGoal)
	if !ok {
		p.logger.Info("No theme keyword matched goal, picked at random", "goal", mem.BigStoryGoal, "theme", theme)
	}
	mem.Theme = theme

	arcs := p.sample(theme, mem.TotalArcsPlanned, mem.ArcHistory)
	if len(arcs) == 0 {
		p.logger.Warn("Arc sampling failed, using default premise", "goal", mem.BigStoryGoal, "theme", theme)
		arcs = []string{DefaultPremise}
	}
	mem.Arcs = arcs
	mem.ArcHistory = append(mem.ArcHistory, arcs...)
}

// Transition describes what Advance did.
type Transition struct {
	// ArcCompleted is set when the chapter just recorded finished an arc.
	ArcCompleted bool
	// NextArc is set when the index moved to the following arc.
	NextArc bool
	// Regenerated is set when an open-ended story got a fresh final premise.
	Regenerated bool
	// Saturated is set when a closed story stays in its final arc.
	Saturated bool

	ArcIndex          int
	ChaptersCompleted int
	Premise           string
}

// Advance records one successfully generated chapter.
func (p *Planner) Advance(mem *story.StoryMemory) Transition {
	p.Repair(mem)

	per := mem.ChaptersPerArc
	last := len(mem.Arcs) - 1

	if !p.cfg.OpenEnded && mem.CurrentArcIndex == last && mem.ChaptersCompleted >= per {
		return p.transition(mem, Transition{Saturated: true})
	}

	mem.ChaptersCompleted++
	if mem.ChaptersCompleted < per {
		return p.transition(mem, Transition{})
	}

	t := Transition{ArcCompleted: true}
	switch {
	case mem.CurrentArcIndex < last && mem.CurrentArcIndex+1 < max(1, mem.TotalArcsPlanned):
		mem.CurrentArcIndex++
		mem.ChaptersCompleted = 0
		t.NextArc = true
		p.logger.Info("Arc completed, advancing", "arc_index", mem.CurrentArcIndex, "premise", mem.CurrentArc())
	case p.cfg.OpenEnded:
		premise := DefaultPremise
		if next := p.sample(mem.Theme, 1, mem.ArcHistory); len(next) > 0 {
			premise = next[0]
		}
		mem.Arcs[mem.CurrentArcIndex] = premise
		mem.ArcHistory = append(mem.ArcHistory, premise)
		mem.ChaptersCompleted = 0
		t.Regenerated = true
		p.logger.Info("Final arc completed, regenerated premise", "arc_index", mem.CurrentArcIndex, "premise", premise)
	default:
		mem.ChaptersCompleted = per
		t.Saturated = true
	}
	return p.transition(mem, t)
}

func (p *Planner) transition(mem *story.StoryMemory, t Transition) Transition {
	t.ArcIndex = mem.CurrentArcIndex
	t.ChaptersCompleted = mem.ChaptersCompleted
	t.Premise = mem.CurrentArc()
	return t
}

// Repair restores the memory invariants in place and reports whether
// anything had to change.
func (p *Planner) Repair(mem *story.StoryMemory) bool {
	repaired := false
	fix := func(field string, from, to any) {
		p.logger.Warn("Repaired inconsistent arc state", "field", field, "from", from, "to", to)
		repaired = true
	}

	if mem.TotalArcsPlanned < 1 {
		to := max(1, len(mem.Arcs))
		fix("total_arcs_planned", mem.TotalArcsPlanned, to)
		mem.TotalArcsPlanned = to
	}
	if mem.TotalChaptersPlanned < mem.TotalArcsPlanned {
		to := mem.TotalArcsPlanned * max(1, mem.ChaptersPerArc)
		fix("total_chapters_planned", mem.TotalChaptersPlanned, to)
		mem.TotalChaptersPlanned = to
	}
	if mem.ChaptersPerArc < 1 {
		to := max(1, mem.TotalChaptersPlanned/mem.TotalArcsPlanned)
		fix("chapters_per_arc", mem.ChaptersPerArc, to)
		mem.ChaptersPerArc = to
	}
	if len(mem.Arcs) == 0 {
		fix("arcs", 0, 1)
		mem.Arcs = []string{DefaultPremise}
		mem.ArcHistory = append(mem.ArcHistory, DefaultPremise)
	}
	if mem.CurrentArcIndex < 0 {
		fix("current_arc_index", mem.CurrentArcIndex, 0)
		mem.CurrentArcIndex = 0
	}
	if limit := min(len(mem.Arcs), mem.TotalArcsPlanned) - 1; mem.CurrentArcIndex > max(0, limit) {
		fix("current_arc_index", mem.CurrentArcIndex, max(0, limit))
		mem.CurrentArcIndex = max(0, limit)
	}
	if mem.ChaptersCompleted < 0 {
		fix("chapters_completed", mem.ChaptersCompleted, 0)
		mem.ChaptersCompleted = 0
	}
	if mem.ChaptersCompleted > mem.ChaptersPerArc {
		fix("chapters_completed", mem.ChaptersCompleted, mem.ChaptersPerArc)
		mem.ChaptersCompleted = mem.ChaptersPerArc
	}
	return repaired
}

// sample draws n premises from a theme pool without replacement, skipping
// anything in history. When the pool runs dry it resets and repeats are
// allowed, though never the premise drawn just before.
func (p *Pools) sample(rng *rand.Rand, theme string, n int, history []string) []string {
	pool, ok := p.Get(theme)
	if !ok || len(pool.Premises) == 0 || n < 1 {
		return nil
	}

	used := make(map[string]bool, len(history))
	for _, h := range history {
		used[h] = true
	}

	out := make([]string, 0, n)
	for len(out) < n {
		var avail []string
		for _, pr := range pool.Premises {
			if !used[pr] {
				avail = append(avail, pr)
			}
		}
		if len(avail) == 0 {
			clear(used)
			if len(out) > 0 && len(pool.Premises) > 1 {
				used[out[len(out)-1]] = true
			} else if len(history) > 0 && len(pool.Premises) > 1 {
				used[history[len(history)-1]] = true
			}
			continue
		}
		pick := avail[rng.IntN(len(avail))]
		used[pick] = true
		out = append(out, pick)
	}
	return out
}

func (p *Planner) sample(theme string, n int, history []string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pools.sample(p.rng, theme, n, slices.Clone(history))
}
