package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/storyarc/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "storyctl",
		Short: "storyctl - tools for StoryArc operators and content authors",
		Long: `storyctl validates theme packs, previews arc plans and response parsing
without calling a model, and inspects the advance request queue.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.ValidateCmd())
	rootCmd.AddCommand(cli.ParseCmd())
	rootCmd.AddCommand(cli.PlanCmd())
	rootCmd.AddCommand(cli.QueueCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
