package story

// Character is a supporting character the protagonist has met.
type Character struct {
	Name         string  `json:"name"`
	Relationship string  `json:"relationship"`
	Sect         *string `json:"sect"`
	Role         *string `json:"role"`
}

// StoryMemory is the long-lived per-story record that keeps a narrative
// coherent across independent generation calls.
//
// Invariants, repaired by arcs.Planner.Repair when violated:
//   - 0 <= CurrentArcIndex < len(Arcs) whenever Arcs is non-empty
//   - 0 <= ChaptersCompleted <= ChaptersPerArc
//   - ChaptersPerArc >= 1 once planned
//   - no two Characters share a Name
type StoryMemory struct {
	CharacterName   string `json:"character_name"`
	CharacterGender string `json:"character_gender"`
	CharacterOrigin string `json:"character_origin"`
	Setting         string `json:"setting"`

	BigStoryGoal string `json:"big_story_goal"`
	Theme        string `json:"theme,omitempty"`

	Arcs                 []string `json:"arcs"`
	CurrentArcIndex      int      `json:"current_arc_index"`
	ChaptersCompleted    int      `json:"chapters_completed"`
	ChaptersPerArc       int      `json:"chapters_per_arc"`
	TotalArcsPlanned     int      `json:"total_arcs_planned"`
	TotalChaptersPlanned int      `json:"total_chapters_planned"`
	ArcHistory           []string `json:"arc_history"`

	Characters []Character `json:"characters"`
}

// NewMemory seeds the immutable fields of a memory record.
func NewMemory(p CreationParams) StoryMemory {
	return StoryMemory{
		CharacterName:   p.CharacterName,
		CharacterGender: p.CharacterGender,
		CharacterOrigin: p.CharacterOrigin,
		Setting:         p.Setting,
		Arcs:            []string{},
		ArcHistory:      []string{},
		Characters:      []Character{},
	}
}

// CurrentArc returns the premise of the active arc, or "" before planning.
func (m *StoryMemory) CurrentArc() string {
	if m.CurrentArcIndex < 0 || m.CurrentArcIndex >= len(m.Arcs) {
		return ""
	}
	return m.Arcs[m.CurrentArcIndex]
}

// NextArc returns the premise following the active one, if planned.
func (m *StoryMemory) NextArc() string {
	i := m.CurrentArcIndex + 1
	if i < 0 || i >= len(m.Arcs) {
		return ""
	}
	return m.Arcs[i]
}

// PreviousArc returns the premise before the active one, if any.
func (m *StoryMemory) PreviousArc() string {
	i := m.CurrentArcIndex - 1
	if i < 0 || i >= len(m.Arcs) {
		return ""
	}
	return m.Arcs[i]
}

// FindCharacter returns the index of the character with exactly this name.
func (m *StoryMemory) FindCharacter(name string) int {
	for i := range m.Characters {
		if m.Characters[i].Name == name {
			return i
		}
	}
	return -1
}

// HasCharacter reports whether name is already known.
func (m *StoryMemory) HasCharacter(name string) bool {
	return m.FindCharacter(name) >= 0
}

// Clone returns a deep copy.
func (m StoryMemory) Clone() StoryMemory {
	c := m
	c.Arcs = append([]string{}, m.Arcs...)
	c.ArcHistory = append([]string{}, m.ArcHistory...)
	c.Characters = make([]Character, len(m.Characters))
	for i, ch := range m.Characters {
		c.Characters[i] = Character{
			Name:         ch.Name,
			Relationship: ch.Relationship,
			Sect:         copyStr(ch.Sect),
			Role:         copyStr(ch.Role),
		}
	}
	return c
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StrPtr is a small helper for optional character fields.
func StrPtr(s string) *string {
	return &s
}
