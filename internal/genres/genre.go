// Package genres turns story memory into generated chapters. Every
// controller shares one Ladder: strict attempts with retries, then a
// lenient salvage of the last response, then a hand-written fallback.
package genres

import (
	"context"
	"errors"
	"strings"

	"github.com/jwebster45206/storyarc/pkg/arcs"
	"github.com/jwebster45206/storyarc/pkg/prompts"
	"github.com/jwebster45206/storyarc/pkg/story"
)

// Controller generates chapters for one family of settings.
type Controller interface {
	Metadata() Metadata
	GenerateOpening(ctx context.Context, req Request) (*Result, error)
	Continue(ctx context.Context, req Request) (*Result, error)
}

// Metadata describes a controller for listings.
type Metadata struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Settings    []string `json:"settings"`
	Flavor      Flavor   `json:"fallback_flavor"`
}

// Request carries everything a controller needs for one chapter.
type Request struct {
	Memory     *story.StoryMemory
	Tone       string
	Complexity string
	Directive  arcs.Directive

	// Continuations only.
	PreviousContent string
	SelectedChoice  string
}

var errNoMemory = errors.New("request memory is required")

func (r Request) validate(continuation bool) error {
	if r.Memory == nil {
		return errNoMemory
	}
	if continuation && strings.TrimSpace(r.SelectedChoice) == "" {
		return errors.New("selected choice is required to continue a story")
	}
	return nil
}

// Result is a chapter ready to be stored as a node.
type Result struct {
	Content string
	Choices []string
	// Raw is the last generated text, kept so the caller can read the
	// character block. Empty for fallbacks.
	Raw      string
	Source   story.NodeSource
	Attempts int
}

// controller is the shared implementation; variants differ only in data.
type controller struct {
	meta   Metadata
	voice  func(setting string) prompts.Voice
	ladder *Ladder
}

func (c *controller) Metadata() Metadata {
	return c.meta
}

func (c *controller) GenerateOpening(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(false); err != nil {
		return nil, err
	}
	req.PreviousContent, req.SelectedChoice = "", ""
	return c.ladder.Run(ctx, c.voice(req.Memory.Setting), c.meta.Flavor, req)
}

func (c *controller) Continue(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(true); err != nil {
		return nil, err
	}
	return c.ladder.Run(ctx, c.voice(req.Memory.Setting), c.meta.Flavor, req)
}

func staticVoice(v prompts.Voice) func(string) prompts.Voice {
	return func(string) prompts.Voice { return v }
}
