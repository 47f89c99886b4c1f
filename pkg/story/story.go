package story

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Choice is one of the follow-up actions offered at the end of a node.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// NodeSource records how a node's content was obtained.
type NodeSource string

const (
	SourceGenerated NodeSource = "generated"
	SourceSalvaged  NodeSource = "salvaged"
	SourceFallback  NodeSource = "fallback"
)

// StoryNode is one chapter of narrative plus its choices.
// Nodes are never edited after creation, except SelectedChoiceID which is
// set when the player acts on the node.
type StoryNode struct {
	ID               string     `json:"id"`
	Content          string     `json:"content"`
	Choices          []Choice   `json:"choices"`
	ParentNodeID     string     `json:"parent_node_id,omitempty"`
	SelectedChoiceID string     `json:"selected_choice_id,omitempty"`
	Source           NodeSource `json:"source,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
}

// FindChoice returns the choice with the given id, if any.
func (n *StoryNode) FindChoice(id string) (Choice, bool) {
	for _, c := range n.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// NewNode builds a node with a fresh id. Choice ids are renumbered 1..n.
func NewNode(content string, choices []string, parentID string, source NodeSource) *StoryNode {
	cs := make([]Choice, 0, len(choices))
	for i, text := range choices {
		cs = append(cs, Choice{ID: fmt.Sprintf("%d", i+1), Text: text})
	}
	return &StoryNode{
		ID:           uuid.New().String(),
		Content:      content,
		Choices:      cs,
		ParentNodeID: parentID,
		Source:       source,
		Timestamp:    time.Now(),
	}
}

// Story aggregates every node ever generated for a playthrough and its memory.
type Story struct {
	ID                 string                `json:"id"`
	Title              string                `json:"title"`
	CharacterName      string                `json:"character_name"`
	CharacterGender    string                `json:"character_gender"`
	Setting            string                `json:"setting"`
	Tone               string                `json:"tone"`
	CharacterOrigin    string                `json:"character_origin"`
	LanguageComplexity string                `json:"language_complexity"`
	Nodes              map[string]*StoryNode `json:"nodes"`
	CurrentNodeID      string                `json:"current_node_id"`
	ProgressStage      string                `json:"progress_stage,omitempty"`
	UserID             string                `json:"user_id,omitempty"`
	ShareToken         string                `json:"share_token,omitempty"`
	IsShareable        bool                  `json:"is_shareable"`
	Memory             StoryMemory           `json:"memory"`
	CreatedAt          time.Time             `json:"created_at"`
	LastUpdated        time.Time             `json:"last_updated"`
}

// New creates an empty story from validated params. The caller appends the
// opening node with SetRoot.
func New(p CreationParams) *Story {
	now := time.Now()
	return &Story{
		ID:                 uuid.New().String(),
		Title:              GenerateTitle(p.CharacterName, p.Setting, p.Tone),
		CharacterName:      p.CharacterName,
		CharacterGender:    p.CharacterGender,
		Setting:            p.Setting,
		Tone:               p.Tone,
		CharacterOrigin:    p.CharacterOrigin,
		LanguageComplexity: p.LanguageComplexity,
		Nodes:              make(map[string]*StoryNode),
		ProgressStage:      InitialProgressStage(p.Setting),
		UserID:             p.UserID,
		Memory:             NewMemory(p),
		CreatedAt:          now,
		LastUpdated:        now,
	}
}

// CurrentNode returns the node the player is currently looking at.
func (s *Story) CurrentNode() (*StoryNode, bool) {
	if s.Nodes == nil {
		return nil, false
	}
	n, ok := s.Nodes[s.CurrentNodeID]
	return n, ok
}

// SetRoot installs the opening node.
func (s *Story) SetRoot(n *StoryNode) {
	if s.Nodes == nil {
		s.Nodes = make(map[string]*StoryNode)
	}
	n.ParentNodeID = ""
	s.Nodes[n.ID] = n
	s.CurrentNodeID = n.ID
	s.Touch()
}

// Append adds n as a child of the current node, records the choice that
// led to it on the parent, and makes n current.
func (s *Story) Append(n *StoryNode, selectedChoiceID string) error {
	parent, ok := s.CurrentNode()
	if !ok {
		return fmt.Errorf("story %s has no current node", s.ID)
	}
	if _, exists := s.Nodes[n.ID]; exists {
		return fmt.Errorf("node %s already exists in story %s", n.ID, s.ID)
	}
	parent.SelectedChoiceID = selectedChoiceID
	n.ParentNodeID = parent.ID
	s.Nodes[n.ID] = n
	s.CurrentNodeID = n.ID
	s.Touch()
	return nil
}

// Path returns the nodes from the root to the current node.
func (s *Story) Path() []*StoryNode {
	var path []*StoryNode
	seen := make(map[string]bool)
	id := s.CurrentNodeID
	for id != "" && !seen[id] {
		n, ok := s.Nodes[id]
		if !ok {
			break
		}
		seen[id] = true
		path = append(path, n)
		id = n.ParentNodeID
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Touch refreshes LastUpdated.
func (s *Story) Touch() {
	s.LastUpdated = time.Now()
}

// Metadata returns the listing view of the story.
func (s *Story) Metadata() Metadata {
	return Metadata{
		ID:            s.ID,
		Title:         s.Title,
		CharacterName: s.CharacterName,
		Setting:       s.Setting,
		LastUpdated:   s.LastUpdated,
		ProgressStage: s.ProgressStage,
		UserID:        s.UserID,
	}
}

// Metadata is the summary returned by story listings.
type Metadata struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	CharacterName string    `json:"character_name"`
	Setting       string    `json:"setting"`
	LastUpdated   time.Time `json:"last_updated"`
	ProgressStage string    `json:"progress_stage,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
}

const maxCharacterNameLength = 60

// CreationParams are the player's choices when starting a story.
type CreationParams struct {
	CharacterName      string `json:"character_name"`
	CharacterGender    string `json:"character_gender,omitempty"`
	Setting            string `json:"setting,omitempty"`
	Tone               string `json:"tone,omitempty"`
	CharacterOrigin    string `json:"character_origin,omitempty"`
	LanguageComplexity string `json:"language_complexity,omitempty"`
	UserID             string `json:"user_id,omitempty"`
}

// Normalize trims fields, lowercases enumerations and applies defaults.
func (p *CreationParams) Normalize() {
	p.CharacterName = strings.TrimSpace(p.CharacterName)
	p.CharacterGender = lowerOr(p.CharacterGender, "unspecified")
	p.Setting = lowerOr(p.Setting, "cultivation")
	p.Tone = lowerOr(p.Tone, "adventure")
	p.CharacterOrigin = lowerOr(p.CharacterOrigin, "normal")
	p.LanguageComplexity = lowerOr(p.LanguageComplexity, "moderate")
	p.UserID = strings.TrimSpace(p.UserID)
}

// Validate reports the first problem with the params.
func (p *CreationParams) Validate() error {
	if p.CharacterName == "" {
		return fmt.Errorf("character_name is required")
	}
	if len([]rune(p.CharacterName)) > maxCharacterNameLength {
		return fmt.Errorf("character_name must be at most %d characters", maxCharacterNameLength)
	}
	return nil
}

func lowerOr(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}
