package arcs

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/storyarc/pkg/story"
)

// Phase is the position of the next chapter within its arc.
type Phase string

const (
	PhaseOpening   Phase = "opening"
	PhaseMiddle    Phase = "middle"
	PhaseRising    Phase = "rising"
	PhaseFinale    Phase = "finale"
	PhaseOpenEnded Phase = "open-ended"
)

// Directive is advisory pacing guidance for the next chapter. Nothing checks
// that the generated text follows it.
type Directive struct {
	Phase          Phase
	BigGoal        string
	Premise        string
	PreviousArc    string
	NextArc        string
	ArcNumber      int
	TotalArcs      int
	Chapter        int
	ChaptersPerArc int
}

// Directive computes pacing guidance for the chapter about to be generated.
func (p *Planner) Directive(mem *story.StoryMemory) Directive {
	per := max(1, mem.ChaptersPerArc)
	done := mem.ChaptersCompleted

	d := Directive{
		BigGoal:        mem.BigStoryGoal,
		Premise:        mem.CurrentArc(),
		PreviousArc:    mem.PreviousArc(),
		NextArc:        mem.NextArc(),
		ArcNumber:      mem.CurrentArcIndex + 1,
		TotalArcs:      max(1, mem.TotalArcsPlanned),
		Chapter:        min(done+1, per),
		ChaptersPerArc: per,
	}
	if d.Premise == "" {
		d.Premise = DefaultPremise
	}

	switch {
	case done >= per:
		d.Phase = PhaseOpenEnded
	case done == per-1:
		d.Phase = PhaseFinale
	case done == 0:
		d.Phase = PhaseOpening
	case done == per-2:
		d.Phase = PhaseRising
	default:
		d.Phase = PhaseMiddle
	}
	return d
}

// Text renders the directive as prompt text.
func (d Directive) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Long-term goal: %s\n", d.BigGoal)
	fmt.Fprintf(&b, "Current arc (%d of %d): %s\n", d.ArcNumber, d.TotalArcs, d.Premise)
	if d.Phase != PhaseOpenEnded {
		fmt.Fprintf(&b, "This is chapter %d of %d in this arc.\n", d.Chapter, d.ChaptersPerArc)
	}

	switch d.Phase {
	case PhaseOpening:
		if d.PreviousArc != "" {
			fmt.Fprintf(&b, "The previous arc (%s) has just concluded. Show the transition and establish the new premise.", d.PreviousArc)
		} else {
			b.WriteString("Establish the premise of this arc and what is at stake.")
		}
	case PhaseMiddle:
		b.WriteString("Make incremental progress toward the arc premise. Do not resolve it yet.")
	case PhaseRising:
		b.WriteString("Raise the stakes. Tension should build toward the arc's climax in the next chapter.")
	case PhaseFinale:
		b.WriteString("This is the final chapter of the arc. Resolve the arc premise.")
		if d.NextArc != "" {
			fmt.Fprintf(&b, " You may foreshadow what comes next: %s", d.NextArc)
		}
	case PhaseOpenEnded:
		b.WriteString("The planned arcs are complete. Continue the story freely while keeping the long-term goal in view.")
	}
	return b.String()
}
