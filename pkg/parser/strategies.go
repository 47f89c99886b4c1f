package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Strategy is one format-matching policy in the parse cascade.
// Apply fills missing parts of the draft and must leave parts it cannot
// improve untouched.
type Strategy interface {
	Name() string
	Apply(text string, d *Draft, o Options)
}

// Options are the per-call settings visible to strategies.
type Options struct {
	Mode         Mode
	MinChoiceLen int
}

// Draft accumulates content and choices across strategies.
type Draft struct {
	Content string
	Choices []string
	used    []string
}

// Complete reports whether the draft has content and enough choices.
func (d *Draft) Complete() bool {
	return strings.TrimSpace(d.Content) != "" && len(d.Choices) >= ChoiceCount
}

type draftState struct {
	content string
	choices int
}

func (d *Draft) snapshot() draftState {
	return draftState{content: d.Content, choices: len(d.Choices)}
}

// offerContent sets content only when the draft has none.
func (d *Draft) offerContent(content string) {
	content = strings.TrimSpace(content)
	if d.Content == "" && content != "" {
		d.Content = content
	}
}

// offerChoices replaces the draft's choices when the candidate set is larger.
func (d *Draft) offerChoices(choices []string) {
	if len(choices) > len(d.Choices) {
		d.Choices = choices
	}
}

var (
	ordinalRe    = regexp.MustCompile(`^\s*(?:\*\*)?\d+[.)](?:\*\*)?\s*`)
	numberedRe   = regexp.MustCompile(`^\s*(?:\*\*)?\d+[.)](?:\*\*)?\s+`)
	bulletRe     = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s*`)
	markerLineRe = regexp.MustCompile(`(?i)^\s*(?:\*\*)?(?:\[/?STORY\]|\[/?CHOICES\]|\[/?NEW CHARACTERS\]|STORY\s*:?|CHOICES\s*:?)(?:\*\*)?\s*$`)
	bracketTagRe = regexp.MustCompile(`(?i)\[/?(?:STORY|CHOICES|NEW CHARACTERS)\]`)

	storyOpenRe    = regexp.MustCompile(`(?i)\[STORY\]`)
	storyCloseRe   = regexp.MustCompile(`(?i)\[/STORY\]`)
	choicesOpenRe  = regexp.MustCompile(`(?i)\[CHOICES\]`)
	choicesCloseRe = regexp.MustCompile(`(?i)\[/CHOICES\]`)
	leadLabelRe  = regexp.MustCompile(`(?i)^\s*(?:\*\*)?STORY\s*:(?:\*\*)?\s*`)
	tailLabelRe  = regexp.MustCompile(`(?is)(?:\[/STORY\]|\[CHOICES\]|\bCHOICES\s*:).*$`)
	storyLabelRe = regexp.MustCompile(`(?im)^[ \t#*]*STORY\s*:[*]*`)
	choiceLblRe  = regexp.MustCompile(`(?im)^[ \t#*]*CHOICES\s*:[*]*`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// DefaultStrategies returns the standard cascade.
func DefaultStrategies() []Strategy {
	return []Strategy{
		BracketTags{},
		ColonLabels{},
		NumberedLines{},
		TailScan{},
		SalvageProse{},
	}
}

// BracketTags handles [STORY]...[/STORY] [CHOICES]...[/CHOICES].
// Closing tags are optional.
type BracketTags struct{}

func (BracketTags) Name() string { return "bracket-tags" }

func (BracketTags) Apply(text string, d *Draft, o Options) {
	storyLoc := storyOpenRe.FindStringIndex(text)
	choicesLoc := choicesOpenRe.FindStringIndex(text)
	if storyLoc == nil || choicesLoc == nil {
		return
	}

	contentStart, contentEnd := storyLoc[1], choicesLoc[0]
	if contentEnd > contentStart {
		if closeLoc := storyCloseRe.FindStringIndex(text[contentStart:contentEnd]); closeLoc != nil {
			contentEnd = contentStart + closeLoc[0]
		}
		d.offerContent(text[contentStart:contentEnd])
	}

	region := text[choicesLoc[1]:]
	if closeLoc := choicesCloseRe.FindStringIndex(region); closeLoc != nil {
		region = region[:closeLoc[0]]
	}
	d.offerChoices(numberedChoices(region, o.MinChoiceLen))
}

// ColonLabels handles plain STORY: and CHOICES: labels.
type ColonLabels struct{}

func (ColonLabels) Name() string { return "colon-labels" }

func (ColonLabels) Apply(text string, d *Draft, o Options) {
	storyLoc := storyLabelRe.FindStringIndex(text)
	choicesLoc := choiceLblRe.FindStringIndex(text)
	if storyLoc == nil || choicesLoc == nil || choicesLoc[0] < storyLoc[1] {
		return
	}

	d.offerContent(text[storyLoc[1]:choicesLoc[0]])
	d.offerChoices(numberedChoices(text[choicesLoc[1]:], o.MinChoiceLen))
}

// numberedChoices keeps lines with an ordinal prefix whose remaining text is
// longer than minLen.
func numberedChoices(region string, minLen int) []string {
	var out []string
	for _, line := range strings.Split(region, "\n") {
		line = strings.TrimSpace(line)
		if !ordinalRe.MatchString(line) {
			continue
		}
		c := cleanChoice(line)
		if utf8.RuneCountInString(c) > minLen {
			out = append(out, c)
		}
		if len(out) == ChoiceCount {
			break
		}
	}
	return out
}

// NumberedLines classifies every line: numbered lines are choices and the
// unmarked lines before the first of them are content.
type NumberedLines struct{}

func (NumberedLines) Name() string { return "numbered-lines" }

const numberedMinLen = 10

func (NumberedLines) Apply(text string, d *Draft, _ Options) {
	var contentLines []string
	var choices []string
	foundNumbered := false

	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if numberedRe.MatchString(t) {
			c := cleanChoice(t)
			if utf8.RuneCountInString(c) > numberedMinLen {
				foundNumbered = true
				if len(choices) < ChoiceCount {
					choices = append(choices, c)
				}
				continue
			}
		}
		if foundNumbered || t == "" || markerLineRe.MatchString(t) {
			continue
		}
		contentLines = append(contentLines, t)
	}

	if len(contentLines) > 0 {
		content := strings.Join(contentLines, "\n")
		content = leadLabelRe.ReplaceAllString(content, "")
		content = tailLabelRe.ReplaceAllString(content, "")
		d.offerContent(content)
	}
	d.offerChoices(choices)
}

// TailScan looks in the last lines of the text for choice-like lines that
// are not part of the content, topping the draft up to three choices.
type TailScan struct{}

func (TailScan) Name() string { return "tail-scan" }

const (
	tailWindow     = 10
	tailLineMinLen = 15
	tailTextMinLen = 10
)

func (TailScan) Apply(text string, d *Draft, _ Options) {
	if len(d.Choices) >= ChoiceCount {
		return
	}
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) > tailWindow {
		lines = lines[len(lines)-tailWindow:]
	}

	existing := make(map[string]bool, len(d.Choices))
	for _, c := range d.Choices {
		existing[strings.ToLower(c)] = true
	}

	choices := append([]string{}, d.Choices...)
	for _, line := range lines {
		if len(choices) >= ChoiceCount {
			break
		}
		if utf8.RuneCountInString(line) <= tailLineMinLen || markerLineRe.MatchString(line) || rosterFieldRe.MatchString(line) {
			continue
		}
		if d.Content != "" && strings.Contains(d.Content, line) {
			continue
		}
		c := cleanChoice(bulletRe.ReplaceAllString(line, ""))
		if utf8.RuneCountInString(c) <= tailTextMinLen || existing[strings.ToLower(c)] {
			continue
		}
		existing[strings.ToLower(c)] = true
		choices = append(choices, c)
	}
	d.offerChoices(choices)
}

// SalvageProse recovers content from long unnumbered lines when the other
// strategies found too little. Lenient mode only.
type SalvageProse struct{}

func (SalvageProse) Name() string { return "salvage-prose" }

const (
	salvageLineMinLen = 30
	salvageMaxLines   = 3
)

func (SalvageProse) Apply(text string, d *Draft, o Options) {
	if o.Mode != Lenient || utf8.RuneCountInString(cleanContent(d.Content)) >= minViableContent {
		return
	}
	var picked []string
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if utf8.RuneCountInString(t) <= salvageLineMinLen || ordinalRe.MatchString(t) || markerLineRe.MatchString(t) {
			continue
		}
		picked = append(picked, t)
		if len(picked) == salvageMaxLines {
			break
		}
	}
	if len(picked) > 0 {
		d.Content = strings.Join(picked, " ")
	}
}

// cleanChoice strips ordinals, stray tags and emphasis from a choice line.
func cleanChoice(line string) string {
	c := ordinalRe.ReplaceAllString(strings.TrimSpace(line), "")
	c = stripTags(c)
	c = strings.Trim(strings.TrimSpace(c), "*_")
	return strings.TrimSpace(c)
}

// cleanContent removes marker tokens left at the edges or inside content.
func cleanContent(content string) string {
	c := stripTags(content)
	c = leadLabelRe.ReplaceAllString(strings.TrimSpace(c), "")
	c = blankRunRe.ReplaceAllString(c, "\n\n")
	return strings.TrimSpace(c)
}

// stripTags removes section tags until none are left, so removing one tag
// cannot splice the halves of another back together.
func stripTags(s string) string {
	for bracketTagRe.MatchString(s) {
		s = bracketTagRe.ReplaceAllString(s, "")
	}
	return s
}
