package genres

import (
	"slices"
	"strings"
)

// GeneralKey is the controller used for unknown settings.
const GeneralKey = "general"

// Registry maps settings to controllers. It is built once at startup and
// read-only afterwards.
type Registry struct {
	bySetting   map[string]Controller
	controllers []Controller
	general     Controller
}

// NewRegistry registers the built-in controllers on a shared ladder.
func NewRegistry(l *Ladder) *Registry {
	r := &Registry{bySetting: make(map[string]Controller)}
	r.general = NewGeneralController(l)
	r.Register(NewCultivationController(l))
	r.Register(NewFantasyController(l))
	r.Register(NewAcademyController(l))
	r.Register(r.general)
	return r
}

// Register adds c for each of its settings, replacing earlier entries.
func (r *Registry) Register(c Controller) {
	r.controllers = append(r.controllers, c)
	for _, s := range c.Metadata().Settings {
		r.bySetting[strings.ToLower(s)] = c
	}
}

// Lookup returns the controller for setting, or the general controller.
func (r *Registry) Lookup(setting string) Controller {
	if c, ok := r.bySetting[strings.ToLower(strings.TrimSpace(setting))]; ok {
		return c
	}
	return r.general
}

// Settings lists every registered setting, sorted.
func (r *Registry) Settings() []string {
	out := make([]string, 0, len(r.bySetting))
	for s := range r.bySetting {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Controllers returns metadata for every registered controller.
func (r *Registry) Controllers() []Metadata {
	out := make([]Metadata, 0, len(r.controllers))
	for _, c := range r.controllers {
		out = append(out, c.Metadata())
	}
	return out
}
