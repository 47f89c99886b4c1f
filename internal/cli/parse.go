package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/storyarc/pkg/characters"
	"github.com/jwebster45206/storyarc/pkg/parser"
	"github.com/jwebster45206/storyarc/pkg/story"
)

type parseOutput struct {
	Mode        string            `json:"mode"`
	Content     string            `json:"content"`
	Choices     []string          `json:"choices"`
	RealChoices int               `json:"real_choices"`
	Padded      int               `json:"padded"`
	Repaired    int               `json:"repaired"`
	Strategies  []string          `json:"strategies"`
	Characters  []story.Character `json:"characters"`
	Rejected    []string          `json:"rejected,omitempty"`
}

// ParseCmd runs a saved model response through the parser and extractor.
func ParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a model response as the service would",
		Long: `Parse a raw model response (from a file, or stdin when no file is given)
and print the chapter text, choices and any characters found.

Useful for checking why a provider's output was salvaged or fell back.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runParse,
	}
	cmd.Flags().String("mode", "lenient", "Parse mode: strict or lenient")
	cmd.Flags().String("protagonist", "", "Protagonist name, excluded from characters")
	cmd.Flags().Bool("json", false, "Print JSON instead of text")
	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	modeFlag, _ := cmd.Flags().GetString("mode")
	protagonist, _ := cmd.Flags().GetString("protagonist")
	asJSON, _ := cmd.Flags().GetBool("json")

	mode, err := parser.ParseMode(modeFlag)
	if err != nil {
		return err
	}

	var raw []byte
	if len(args) == 1 && args[0] != "-" {
		raw, err = os.ReadFile(args[0])
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// The block may sit outside the story section, so extract from the raw text.
	mem := story.NewMemory(story.CreationParams{CharacterName: protagonist})
	outcome := characters.NewExtractor(nil).Extract(&mem, string(raw), protagonist)

	res, err := parser.Parse(outcome.Content, mode)
	if err != nil {
		return err
	}

	out := parseOutput{
		Mode:        mode.String(),
		Content:     res.Content,
		Choices:     res.Choices,
		RealChoices: res.RealChoices,
		Padded:      res.Padded(),
		Repaired:    res.Repaired,
		Strategies:  res.Strategies,
		Characters:  mem.Characters,
	}
	for _, r := range outcome.Rejected {
		out.Rejected = append(out.Rejected, fmt.Sprintf("%s: %s", r.Candidate.Name, r.Reason))
	}

	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "%s %s\n\n%s\n\n", heading("Mode:"), out.Mode, out.Content)
	fmt.Fprintln(w, heading("Choices:"))
	for i, c := range out.Choices {
		line := fmt.Sprintf("  %d. %s", i+1, c)
		if parser.IsPlaceholder(c) {
			line = warn(line + " (placeholder)")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "%s\n", dim(fmt.Sprintf("strategies: %v, repaired: %d", out.Strategies, out.Repaired)))
	if len(out.Characters) > 0 {
		fmt.Fprintf(w, "\n%s\n", heading("Characters:"))
		for _, c := range out.Characters {
			fmt.Fprintf(w, "  %s (%s)\n", c.Name, c.Relationship)
		}
	}
	for _, r := range out.Rejected {
		fmt.Fprintf(w, "  %s rejected %s\n", failMark, r)
	}
	return nil
}
