package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/storyarc/pkg/arcs"
	"github.com/jwebster45206/storyarc/pkg/story"
)

// PlanCmd previews an arc plan and its pacing directives.
func PlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview the arc plan for a new story",
		Long: `Plan arcs for a story without generating any text, then walk the
chapters and print the pacing phase each one would receive.`,
		Args: cobra.NoArgs,
		RunE: runPlan,
	}
	cmd.Flags().String("setting", "fantasy", "Story setting")
	cmd.Flags().String("goal", "", "Big story goal (random for the setting when empty)")
	cmd.Flags().Int("arcs", 5, "Total arcs")
	cmd.Flags().Int("chapters", 35, "Total chapters")
	cmd.Flags().Bool("open-ended", true, "Regenerate the final arc instead of stopping")
	cmd.Flags().String("themes", "", "Directory of theme pack YAML files")
	cmd.Flags().Int("walk", 0, "Chapters to walk after planning (0 = one full pass)")
	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	setting, _ := cmd.Flags().GetString("setting")
	goal, _ := cmd.Flags().GetString("goal")
	totalArcs, _ := cmd.Flags().GetInt("arcs")
	totalChapters, _ := cmd.Flags().GetInt("chapters")
	openEnded, _ := cmd.Flags().GetBool("open-ended")
	themes, _ := cmd.Flags().GetString("themes")
	walk, _ := cmd.Flags().GetInt("walk")

	pools := arcs.DefaultPools()
	if themes != "" {
		if _, err := pools.LoadPacksDir(themes); err != nil {
			return err
		}
	}
	planner := arcs.NewPlanner(pools, arcs.Config{TotalArcs: totalArcs, TotalChapters: totalChapters, OpenEnded: openEnded})

	mem := story.NewMemory(story.CreationParams{Setting: setting})
	mem.BigStoryGoal = goal
	planner.Init(&mem)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s\n%s %s\n%s %d arcs x %d chapters\n\n",
		heading("Goal:"), mem.BigStoryGoal,
		heading("Theme:"), mem.Theme,
		heading("Plan:"), mem.TotalArcsPlanned, mem.ChaptersPerArc)
	for i, premise := range mem.Arcs {
		fmt.Fprintf(w, "  %d. %s\n", i+1, premise)
	}

	if walk <= 0 {
		walk = mem.TotalArcsPlanned * mem.ChaptersPerArc
	}
	fmt.Fprintf(w, "\n%s\n", heading("Pacing:"))
	for range walk {
		d := planner.Directive(&mem)
		fmt.Fprintf(w, "  arc %d chapter %d/%d  %-10s %s\n", d.ArcNumber, d.Chapter, d.ChaptersPerArc, d.Phase, dim(d.Premise))
		t := planner.Advance(&mem)
		switch {
		case t.Regenerated:
			fmt.Fprintf(w, "  %s\n", warn("final arc regenerated: "+t.Premise))
		case t.Saturated:
			fmt.Fprintf(w, "  %s\n", warn("plan exhausted; final arc continues"))
		}
	}
	return nil
}
