package arcs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pack is a YAML theme pack. With Replace set the theme's built-in premises
// and keywords are dropped; otherwise the pack extends them.
type Pack struct {
	Theme    string   `yaml:"theme"`
	Keywords []string `yaml:"keywords"`
	Premises []string `yaml:"premises"`
	Replace  bool     `yaml:"replace"`
}

// Validate checks a pack for obvious mistakes.
func (p Pack) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Theme) == "" {
		problems = append(problems, "theme is required")
	}
	if len(p.Premises) == 0 {
		problems = append(problems, "at least one premise is required")
	}
	seen := make(map[string]bool, len(p.Premises))
	for i, pr := range p.Premises {
		pr = strings.TrimSpace(pr)
		if pr == "" {
			problems = append(problems, fmt.Sprintf("premise %d is empty", i+1))
			continue
		}
		if seen[pr] {
			problems = append(problems, fmt.Sprintf("premise %d is a duplicate: %q", i+1, pr))
		}
		seen[pr] = true
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ParsePack decodes one pack strictly; unknown fields are errors.
func ParsePack(data []byte) (Pack, error) {
	var p Pack
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Pack{}, fmt.Errorf("failed to decode theme pack: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Pack{}, fmt.Errorf("invalid theme pack: %w", err)
	}
	return p, nil
}

// LoadPackFile reads and parses a single pack file.
func LoadPackFile(path string) (Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pack{}, fmt.Errorf("failed to read theme pack %s: %w", path, err)
	}
	p, err := ParsePack(data)
	if err != nil {
		return Pack{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Apply merges a pack into the pools.
func (p *Pools) Apply(pack Pack) {
	pool := Pool{Theme: pack.Theme, Keywords: pack.Keywords, Premises: pack.Premises}
	if pack.Replace {
		p.Replace(pool)
		return
	}
	p.Add(pool)
}

// LoadPacksDir applies every .yaml/.yml pack under dir. A missing directory
// is not an error. All files are attempted; failures are joined.
func (p *Pools) LoadPacksDir(dir string) (int, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}

	loaded := 0
	var errs []error
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
			return nil
		}
		pack, err := LoadPackFile(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		p.Apply(pack)
		loaded++
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("failed to walk theme directory: %w", err)
	}
	return loaded, errors.Join(errs...)
}
