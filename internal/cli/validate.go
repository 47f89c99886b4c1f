package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/storyarc/pkg/arcs"
)

var packNameRe = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

// ValidateCmd checks theme pack files before they are deployed.
func ValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <pack.yaml|dir>...",
		Short: "Validate theme pack YAML files",
		Long: `Validate theme packs loaded from THEMES_DIR at startup.

Each file must be lowercase snake_case with a .yaml or .yml extension, parse
as YAML, name a theme and carry at least one unique, non-empty premise.
Directories are searched recursively.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	files, err := packFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no theme pack files found")
	}

	failed := 0
	for _, path := range files {
		pack, err := validatePackFile(path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %s\n    %s\n", failMark, path, err)
			continue
		}
		mode := "extends"
		if pack.Replace {
			mode = "replaces"
		}
		fmt.Fprintf(out, "%s %s %s\n", okMark, path,
			dim(fmt.Sprintf("(%s %q: %d premises, %d keywords)", mode, pack.Theme, len(pack.Premises), len(pack.Keywords))))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d theme packs invalid", failed, len(files))
	}
	fmt.Fprintf(out, "\nAll %d theme packs are valid.\n", len(files))
	return nil
}

func validatePackFile(path string) (arcs.Pack, error) {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if !packNameRe.MatchString(name) {
		return arcs.Pack{}, fmt.Errorf("filename %q must be lowercase snake_case (e.g. heist_capers.yaml)", base)
	}
	return arcs.LoadPackFile(path)
}

func packFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ext := filepath.Ext(path); !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
