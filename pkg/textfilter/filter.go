package textfilter

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultGenericPhrases are templated choice phrasings that signal the model
// fell back to filler instead of writing a choice grounded in the scene.
var DefaultGenericPhrases = []string{
	"continue your journey",
	"continue the journey",
	"choose your path",
	"choose your own path",
	"make your choice",
	"make a choice",
	"decide what to do next",
	"decide what to do",
	"see what happens",
	"proceed with caution",
	"fight aggressively",
	"plan strategically",
	"explore curiously",
	"do something else",
}

// defaultAlternatives replace a generic choice in lenient contexts.
var defaultAlternatives = []string{
	"study the surroundings for something the others missed",
	"seek out someone who might know more about what just happened",
	"prepare carefully before committing to the next move",
}

// PhraseFilter detects and repairs deny-listed phrases.
type PhraseFilter struct {
	phrases      []string
	regexes      map[string]*regexp.Regexp
	alternatives []string
}

// NewPhraseFilter creates a filter for the given phrases. With no phrases it
// uses DefaultGenericPhrases.
func NewPhraseFilter(phrases ...string) *PhraseFilter {
	if len(phrases) == 0 {
		phrases = DefaultGenericPhrases
	}
	pf := &PhraseFilter{
		regexes:      make(map[string]*regexp.Regexp, len(phrases)),
		alternatives: defaultAlternatives,
	}

	// Pre-compile a case-insensitive word-boundary pattern per phrase.
	// Inner whitespace matches any run of spaces.
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := pf.regexes[p]; dup {
			continue
		}
		words := strings.Fields(p)
		for i := range words {
			words[i] = regexp.QuoteMeta(words[i])
		}
		pattern := `(?i)\b` + strings.Join(words, `\s+`) + `\b`
		pf.regexes[p] = regexp.MustCompile(pattern)
		pf.phrases = append(pf.phrases, p)
	}

	return pf
}

// Match returns the first deny-listed phrase found in text.
func (pf *PhraseFilter) Match(text string) (string, bool) {
	for _, p := range pf.phrases {
		if pf.regexes[p].MatchString(text) {
			return p, true
		}
	}
	return "", false
}

// Contains reports whether text holds any deny-listed phrase.
func (pf *PhraseFilter) Contains(text string) bool {
	_, ok := pf.Match(text)
	return ok
}

// Repair returns text unchanged when it is clean. Otherwise it returns a
// generic but specific-sounding alternative picked by slot, so the three
// choices of one node stay distinct. The casing of the first letter follows
// the original text.
func (pf *PhraseFilter) Repair(text string, slot int) (string, bool) {
	if !pf.Contains(text) {
		return text, false
	}
	if slot < 0 {
		slot = -slot
	}
	alt := pf.alternatives[slot%len(pf.alternatives)]
	return matchLeadingCase(text, alt), true
}

// Phrases returns the normalized deny-list.
func (pf *PhraseFilter) Phrases() []string {
	return append([]string(nil), pf.phrases...)
}

// matchLeadingCase capitalizes replacement when original starts upper-case.
func matchLeadingCase(original, replacement string) string {
	original = strings.TrimSpace(original)
	if original == "" || replacement == "" {
		return replacement
	}
	first := []rune(original)[0]
	if strings.ToUpper(string(first)) != string(first) {
		return replacement
	}

	// Title-case only the first word, leave the rest as written.
	head, tail, _ := strings.Cut(replacement, " ")
	titleCaser := cases.Title(language.English)
	if tail == "" {
		return titleCaser.String(head)
	}
	return titleCaser.String(head) + " " + tail
}
