// Package characters pulls supporting characters out of generated story text
// and merges them into a story's memory.
//
// Two sources are recognized. The model is asked to announce newcomers in a
// [NEW CHARACTERS] block; when it does, that block is authoritative and is
// stripped from the narrative. Without a block, a conservative honorific
// heuristic ("Elder Mo", "Professor Hale") picks up obvious names.
package characters

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jwebster45206/storyarc/pkg/story"
)

const (
	BlockOpen  = "[NEW CHARACTERS]"
	BlockClose = "[/NEW CHARACTERS]"

	// HeuristicRelationship is recorded for characters found by the
	// honorific heuristic, which cannot infer how they relate to the hero.
	HeuristicRelationship = "Acquaintance"

	minFieldLen = 2
)

// Stoplist holds capitalized words that are never names.
var Stoplist = []string{"The", "And", "But", "This", "That", "Where", "When", "Who", "What", "Why", "How"}

// DefaultHonorifics are titles that precede a name. Multi-word titles come
// first so the regex alternation prefers them.
var DefaultHonorifics = []string{
	"Senior Brother", "Senior Sister", "Junior Brother", "Junior Sister",
	"Grand Elder", "Sect Master", "Young Master", "Young Lady",
	"Elder", "Master", "Patriarch", "Matriarch", "Grandmaster",
	"Headmaster", "Professor", "Instructor", "Teacher",
	"Captain", "Commander", "General", "Lieutenant", "Sergeant",
	"Lord", "Lady", "Sir", "Dame", "Prince", "Princess",
	"Doctor", "Detective", "Officer",
}

var (
	blockRe     = regexp.MustCompile(`(?is)\[NEW CHARACTERS\](.*?)(?:\[/NEW CHARACTERS\]|\z)`)
	strayTagRe  = regexp.MustCompile(`(?i)\[/NEW CHARACTERS\]`)
	entryBullet = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s*`)
	nameCharsRe = regexp.MustCompile(`^[A-Za-z\s]+$`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
)

// Candidate is a character proposed by the text, before validation.
type Candidate struct {
	Name         string
	Relationship string
	Sect         string
	Role         string
}

// Rejection records a skipped candidate.
type Rejection struct {
	Candidate Candidate
	Reason    string
}

// Outcome summarizes one extraction.
type Outcome struct {
	// Content is the input text with any character block removed.
	Content string
	// BlockFound reports whether a structured block was present.
	BlockFound bool
	Added      []string
	Updated    []string
	Rejected   []Rejection
}

// Extractor finds and merges characters.
type Extractor struct {
	logger    *slog.Logger
	stop      map[string]bool
	honorific map[string]bool
	titleRe   *regexp.Regexp
}

// NewExtractor creates an extractor using DefaultHonorifics.
func NewExtractor(logger *slog.Logger) *Extractor {
	return NewExtractorWithHonorifics(logger, DefaultHonorifics)
}

// NewExtractorWithHonorifics creates an extractor with a custom title list.
func NewExtractorWithHonorifics(logger *slog.Logger, honorifics []string) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Extractor{
		logger:    logger,
		stop:      make(map[string]bool, len(Stoplist)),
		honorific: make(map[string]bool),
	}
	for _, w := range Stoplist {
		e.stop[w] = true
	}

	quoted := make([]string, 0, len(honorifics))
	for _, h := range honorifics {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		for _, w := range strings.Fields(h) {
			e.honorific[w] = true
		}
		quoted = append(quoted, strings.Join(strings.Fields(regexp.QuoteMeta(h)), `\s+`))
	}
	e.titleRe = regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\s+([A-Z][a-z]+)\b`)
	return e
}

// Extract merges characters found in content into mem.Characters and returns
// the content with the character block stripped. No other memory field is
// touched. Running Extract twice on the same content leaves mem unchanged
// after the first run.
func (e *Extractor) Extract(mem *story.StoryMemory, content, protagonist string) Outcome {
	candidates, stripped, found := ParseBlock(content)
	out := Outcome{Content: stripped, BlockFound: found}
	if !found {
		candidates = e.Heuristic(content, protagonist, mem)
	}

	for _, c := range candidates {
		valid, reason := e.Validate(c)
		if reason == "" && isProtagonist(valid.Name, protagonist) {
			reason = "name is the protagonist"
		}
		if reason != "" {
			e.logger.Warn("Rejected character candidate",
				"name", c.Name,
				"relationship", c.Relationship,
				"reason", reason)
			out.Rejected = append(out.Rejected, Rejection{Candidate: c, Reason: reason})
			continue
		}

		added, changed := Merge(mem, valid)
		switch {
		case added:
			e.logger.Info("Added character", "name", valid.Name, "relationship", valid.Relationship)
			out.Added = append(out.Added, valid.Name)
		case changed:
			e.logger.Info("Updated character", "name", valid.Name)
			out.Updated = append(out.Updated, valid.Name)
		}
	}
	return out
}

// ParseBlock splits every [NEW CHARACTERS] block into candidates and returns
// the content with the blocks removed. A missing close tag runs the block to
// the end of the text.
func ParseBlock(content string) ([]Candidate, string, bool) {
	matches := blockRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil, content, false
	}

	var candidates []Candidate
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(content[last:m[0]])
		candidates = append(candidates, parseEntries(content[m[2]:m[3]])...)
		last = m[1]
	}
	b.WriteString(content[last:])

	stripped := strayTagRe.ReplaceAllString(b.String(), "")
	stripped = blankRunRe.ReplaceAllString(stripped, "\n\n")
	return candidates, strings.TrimSpace(stripped), true
}

func parseEntries(body string) []Candidate {
	var out []Candidate
	var cur Candidate
	started := false

	flush := func() {
		if started {
			out = append(out, cur)
		}
		cur = Candidate{}
		started = false
	}

	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		line = entryBullet.ReplaceAllString(line, "")
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.Trim(strings.TrimSpace(key), "*_"))
		value = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "*_"))

		switch {
		case strings.HasPrefix(key, "name"):
			if cur.Name != "" {
				flush()
			}
			cur.Name = value
		case strings.HasPrefix(key, "relation"):
			cur.Relationship = value
		case strings.HasPrefix(key, "sect"):
			cur.Sect = value
		case strings.HasPrefix(key, "role"):
			cur.Role = value
		default:
			continue
		}
		started = true
	}
	flush()
	return out
}

// Heuristic finds honorific + capitalized-name pairs in free text. Known
// characters, the protagonist and stoplisted words are skipped.
func (e *Extractor) Heuristic(content, protagonist string, mem *story.StoryMemory) []Candidate {
	seen := make(map[string]bool)
	var out []Candidate
	for _, m := range e.titleRe.FindAllStringSubmatch(content, -1) {
		title := strings.Join(strings.Fields(m[1]), " ")
		name := m[2]
		switch {
		case seen[name], e.stop[name], e.honorific[name]:
			continue
		case mem != nil && mem.HasCharacter(name):
			continue
		case isProtagonist(name, protagonist):
			continue
		}
		seen[name] = true
		out = append(out, Candidate{Name: name, Relationship: HeuristicRelationship, Role: title})
	}
	return out
}

// Validate trims a candidate and checks it. The returned reason is empty
// for a valid candidate. Sect and role shorter than two characters are
// dropped rather than rejected.
func (e *Extractor) Validate(c Candidate) (Candidate, string) {
	c.Name = strings.TrimSpace(c.Name)
	c.Relationship = strings.TrimSpace(c.Relationship)
	c.Sect = strings.TrimSpace(c.Sect)
	c.Role = strings.TrimSpace(c.Role)

	switch {
	case utf8.RuneCountInString(c.Name) < minFieldLen:
		return c, "name too short or empty"
	case !nameCharsRe.MatchString(c.Name):
		return c, "name contains invalid characters"
	case e.stop[c.Name]:
		return c, "name is a common word"
	case utf8.RuneCountInString(c.Relationship) < minFieldLen:
		return c, "relationship too short or empty"
	}
	if utf8.RuneCountInString(c.Sect) < minFieldLen {
		c.Sect = ""
	}
	if utf8.RuneCountInString(c.Role) < minFieldLen {
		c.Role = ""
	}
	return c, ""
}

// Merge adds c to mem or updates the existing entry with the same name.
// Only non-empty fields overwrite. It reports whether the character was
// added and whether anything changed.
func Merge(mem *story.StoryMemory, c Candidate) (added bool, changed bool) {
	i := mem.FindCharacter(c.Name)
	if i < 0 {
		ch := story.Character{Name: c.Name, Relationship: c.Relationship}
		if c.Sect != "" {
			ch.Sect = story.StrPtr(c.Sect)
		}
		if c.Role != "" {
			ch.Role = story.StrPtr(c.Role)
		}
		mem.Characters = append(mem.Characters, ch)
		return true, true
	}

	existing := &mem.Characters[i]
	if c.Relationship != "" && existing.Relationship != c.Relationship {
		existing.Relationship = c.Relationship
		changed = true
	}
	if c.Sect != "" && (existing.Sect == nil || *existing.Sect != c.Sect) {
		existing.Sect = story.StrPtr(c.Sect)
		changed = true
	}
	if c.Role != "" && (existing.Role == nil || *existing.Role != c.Role) {
		existing.Role = story.StrPtr(c.Role)
		changed = true
	}
	return false, changed
}

func isProtagonist(name, protagonist string) bool {
	protagonist = strings.TrimSpace(protagonist)
	if protagonist == "" {
		return false
	}
	if strings.EqualFold(name, protagonist) {
		return true
	}
	for _, part := range strings.Fields(protagonist) {
		if strings.EqualFold(name, part) {
			return true
		}
	}
	return false
}
