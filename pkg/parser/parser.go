// Package parser turns raw model output into narrative content and exactly
// three choices.
//
// Parsing runs an ordered list of strategies against a shared draft. Each
// strategy fills whatever the draft still lacks; the cascade stops as soon as
// the draft holds content and three choices. Strict mode then rejects weak
// results so callers can retry, while lenient mode repairs and pads them so
// callers always get something usable.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jwebster45206/storyarc/pkg/textfilter"
)

// Mode selects how the parser treats incomplete or generic output.
type Mode int

const (
	// Lenient never fails. It repairs generic choices, pads missing ones and
	// salvages prose from unstructured text.
	Lenient Mode = iota
	// Strict fails on short content, missing choices or generic choices.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// ParseMode converts "strict"/"lenient" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return Strict, nil
	case "lenient", "":
		return Lenient, nil
	default:
		return Lenient, fmt.Errorf("unknown parse mode %q", s)
	}
}

const (
	ChoiceCount = 3

	minStrictContent    = 50
	minViableContent    = 20
	strictChoiceMinLen  = 10
	lenientChoiceMinLen = 8

	// PlaceholderFormat is used to pad missing choices in lenient mode.
	PlaceholderFormat = "Take action based on the current situation (Option %d)"

	fallbackContent = "The moment stretches on, heavy with possibility."
)

// ErrParseFailure matches any *ParseFailure via errors.Is.
var ErrParseFailure = errors.New("parse failure")

// ParseFailure is returned by strict parsing when output is unusable.
type ParseFailure struct {
	Reason string
}

func (e *ParseFailure) Error() string {
	return "parse failure: " + e.Reason
}

func (e *ParseFailure) Is(target error) bool {
	return target == ErrParseFailure
}

// Result is a parsed generation.
type Result struct {
	Content string
	Choices []string

	// RealChoices counts choices found in the text, before padding.
	RealChoices int
	// Repaired counts deny-listed choices replaced in lenient mode.
	Repaired int
	// Strategies lists the strategies that contributed, in order.
	Strategies []string
}

// Padded reports how many placeholder choices were synthesized.
func (r *Result) Padded() int {
	return len(r.Choices) - r.RealChoices
}

// Parser applies a strategy cascade and a deny-list.
type Parser struct {
	strategies []Strategy
	filter     *textfilter.PhraseFilter
}

// Option configures a Parser.
type Option func(*Parser)

// WithStrategies replaces the default cascade.
func WithStrategies(s ...Strategy) Option {
	return func(p *Parser) {
		p.strategies = s
	}
}

// WithFilter replaces the default deny-list filter.
func WithFilter(f *textfilter.PhraseFilter) Option {
	return func(p *Parser) {
		p.filter = f
	}
}

// New creates a parser with the default strategy cascade.
func New(opts ...Option) *Parser {
	p := &Parser{
		strategies: DefaultStrategies(),
		filter:     textfilter.NewPhraseFilter(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = New()

// Parse runs the default parser.
func Parse(raw string, mode Mode) (*Result, error) {
	return defaultParser.Parse(raw, mode)
}

// Parse converts raw text into content and exactly three choices.
// In Lenient mode the error is always nil.
func (p *Parser) Parse(raw string, mode Mode) (*Result, error) {
	text := stripCharacterBlocks(normalizeNewlines(raw))
	opts := Options{Mode: mode, MinChoiceLen: lenientChoiceMinLen}
	if mode == Strict {
		opts.MinChoiceLen = strictChoiceMinLen
	}

	d := &Draft{}
	for _, s := range p.strategies {
		if d.Complete() && (mode == Strict || utf8.RuneCountInString(cleanContent(d.Content)) >= minViableContent) {
			break
		}
		before := d.snapshot()
		s.Apply(text, d, opts)
		if d.snapshot() != before {
			d.used = append(d.used, s.Name())
		}
	}

	d.Content = cleanContent(d.Content)
	choices := dedupe(d.Choices)
	if len(choices) > ChoiceCount {
		choices = choices[:ChoiceCount]
	}

	res := &Result{
		Content:     d.Content,
		Choices:     choices,
		RealChoices: len(choices),
		Strategies:  d.used,
	}

	if mode == Strict {
		if err := p.checkStrict(res); err != nil {
			return nil, err
		}
		return res, nil
	}

	p.finishLenient(res, text)
	return res, nil
}

func (p *Parser) checkStrict(res *Result) error {
	if n := utf8.RuneCountInString(res.Content); n < minStrictContent {
		return &ParseFailure{Reason: fmt.Sprintf("content too short: %d characters", n)}
	}
	if res.RealChoices < ChoiceCount {
		return &ParseFailure{Reason: fmt.Sprintf("not enough choices: found %d, need %d", res.RealChoices, ChoiceCount)}
	}
	for i, c := range res.Choices {
		if phrase, ok := p.filter.Match(c); ok {
			return &ParseFailure{Reason: fmt.Sprintf("choice %d uses generic phrase %q", i+1, phrase)}
		}
	}
	return nil
}

func (p *Parser) finishLenient(res *Result, text string) {
	for i, c := range res.Choices {
		if repaired, changed := p.filter.Repair(c, i); changed {
			res.Choices[i] = repaired
			res.Repaired++
		}
	}
	for len(res.Choices) < ChoiceCount {
		res.Choices = append(res.Choices, fmt.Sprintf(PlaceholderFormat, len(res.Choices)+1))
	}

	if res.Content == "" {
		res.Content = cleanContent(stripChoiceLines(text))
	}
	if res.Content == "" {
		res.Content = fallbackContent
	}
}

// IsPlaceholder reports whether a choice was synthesized by lenient padding.
func IsPlaceholder(choice string) bool {
	return placeholderRe.MatchString(choice)
}

var placeholderRe = regexp.MustCompile(`^Take action based on the current situation \(Option \d+\)$`)

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(strings.ReplaceAll(s, "\r", "\n"))
}

func dedupe(choices []string) []string {
	seen := make(map[string]bool, len(choices))
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func stripChoiceLines(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || ordinalRe.MatchString(t) || markerLineRe.MatchString(t) {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, "\n")
}
