// Package orchestrator coordinates one story request end to end: load the
// story, run the genre controller, update memory and persist the result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwebster45206/storyarc/internal/genres"
	"github.com/jwebster45206/storyarc/internal/services"
	"github.com/jwebster45206/storyarc/pkg/arcs"
	"github.com/jwebster45206/storyarc/pkg/characters"
	"github.com/jwebster45206/storyarc/pkg/storage"
	"github.com/jwebster45206/storyarc/pkg/story"
)

var (
	ErrStoryNotFound  = errors.New("story not found")
	ErrChoiceNotFound = errors.New("choice not found")
	ErrStoryBusy      = errors.New("story is already being advanced")
	ErrInvalidParams  = errors.New("invalid story parameters")

	// ErrStaleChoice means the story moved past the node a choice was made on.
	ErrStaleChoice = errors.New("choice was made on an earlier chapter")
)

// Orchestrator owns every mutation of a story and its memory.
type Orchestrator struct {
	store     storage.Storage
	registry  *genres.Registry
	planner   *arcs.Planner
	extractor *characters.Extractor
	locker    services.Locker
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New creates an orchestrator. A nil locker uses a process-local one.
func New(store storage.Storage, registry *genres.Registry, planner *arcs.Planner, extractor *characters.Extractor, locker services.Locker, logger *slog.Logger) *Orchestrator {
	if locker == nil {
		locker = services.NewMemoryLocker()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		store:     store,
		registry:  registry,
		planner:   planner,
		extractor: extractor,
		locker:    locker,
		logger:    logger,
		tracer:    otel.Tracer("github.com/jwebster45206/storyarc/internal/orchestrator"),
	}
}

// Registry returns the controller registry.
func (o *Orchestrator) Registry() *genres.Registry {
	return o.registry
}

// StartStory plans a new story, generates its opening and saves both.
func (o *Orchestrator) StartStory(ctx context.Context, params story.CreationParams) (*story.Story, *story.StoryNode, error) {
	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.StartStory", trace.WithAttributes(
		attribute.String("story.setting", params.Setting),
		attribute.String("story.tone", params.Tone),
	))
	defer span.End()

	st := story.New(params)
	span.SetAttributes(attribute.String("story.id", st.ID))

	mem := st.Memory.Clone()
	o.planner.Init(&mem)

	ctrl := o.registry.Lookup(params.Setting)
	res, err := ctrl.GenerateOpening(ctx, genres.Request{
		Memory:     &mem,
		Tone:       params.Tone,
		Complexity: params.LanguageComplexity,
		Directive:  o.planner.Directive(&mem),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, nil, fmt.Errorf("failed to generate opening: %w", err)
	}

	content := o.extractCharacters(&mem, res, params.CharacterName)
	node := story.NewNode(content, res.Choices, "", res.Source)
	o.planner.Advance(&mem)

	st.Memory = mem
	st.SetRoot(node)
	if err := o.store.SaveStory(ctx, st); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return nil, nil, fmt.Errorf("failed to save story: %w", err)
	}

	o.logger.Info("Story started",
		"story_id", st.ID,
		"setting", st.Setting,
		"controller", ctrl.Metadata().Key,
		"goal", mem.BigStoryGoal,
		"source", res.Source,
		"attempts", res.Attempts)
	return st, node, nil
}

// AdvanceStory resolves choiceID against the current node and appends the
// next chapter. Nothing is saved unless a node is in hand.
func (o *Orchestrator) AdvanceStory(ctx context.Context, storyID, choiceID string) (*story.Story, *story.StoryNode, error) {
	return o.AdvanceStoryAt(ctx, storyID, "", choiceID)
}

// AdvanceStoryAt is AdvanceStory for a choice made on nodeID. It fails with
// ErrStaleChoice when the story has moved on since. An empty nodeID means the
// current node.
func (o *Orchestrator) AdvanceStoryAt(ctx context.Context, storyID, nodeID, choiceID string) (*story.Story, *story.StoryNode, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.AdvanceStory", trace.WithAttributes(
		attribute.String("story.id", storyID),
		attribute.String("story.node_id", nodeID),
		attribute.String("story.choice_id", choiceID),
	))
	defer span.End()

	unlock, err := o.lock(ctx, storyID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	defer unlock()

	st, err := o.load(ctx, storyID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	current, ok := st.CurrentNode()
	if !ok {
		return nil, nil, fmt.Errorf("story %s has no current node", storyID)
	}
	if nodeID != "" && nodeID != current.ID {
		return nil, nil, fmt.Errorf("%w: node %s is no longer current", ErrStaleChoice, nodeID)
	}
	choice, ok := current.FindChoice(choiceID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrChoiceNotFound, choiceID)
	}

	// Work on a copy so a failed generation leaves the loaded story intact.
	mem := st.Memory.Clone()
	if o.planner.Repair(&mem) {
		o.logger.Warn("Repaired story memory before advancing", "story_id", storyID)
	}

	ctrl := o.registry.Lookup(st.Setting)
	res, err := ctrl.Continue(ctx, genres.Request{
		Memory:          &mem,
		Tone:            st.Tone,
		Complexity:      st.LanguageComplexity,
		Directive:       o.planner.Directive(&mem),
		PreviousContent: current.Content,
		SelectedChoice:  choice.Text,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, nil, fmt.Errorf("failed to continue story %s: %w", storyID, err)
	}

	content := o.extractCharacters(&mem, res, st.CharacterName)
	node := story.NewNode(content, res.Choices, current.ID, res.Source)
	t := o.planner.Advance(&mem)

	st.Memory = mem
	if err := st.Append(node, choice.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to append node: %w", err)
	}
	if err := o.ensureCurrent(ctx, storyID, current.ID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	if err := o.store.SaveStory(ctx, st); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return nil, nil, fmt.Errorf("failed to save story: %w", err)
	}

	span.SetAttributes(
		attribute.String("story.node_source", string(res.Source)),
		attribute.Int("story.arc_index", t.ArcIndex),
	)
	o.logger.Info("Story advanced",
		"story_id", st.ID,
		"node_id", node.ID,
		"choice_id", choice.ID,
		"source", res.Source,
		"attempts", res.Attempts,
		"arc_index", t.ArcIndex,
		"chapters_completed", t.ChaptersCompleted,
		"arc_completed", t.ArcCompleted)
	return st, node, nil
}

// ShareStory makes a story publicly readable and returns its share token.
// Sharing twice returns the same token.
func (o *Orchestrator) ShareStory(ctx context.Context, storyID string) (string, error) {
	unlock, err := o.lock(ctx, storyID)
	if err != nil {
		return "", err
	}
	defer unlock()

	st, err := o.load(ctx, storyID)
	if err != nil {
		return "", err
	}
	if st.IsShareable && st.ShareToken != "" {
		return st.ShareToken, nil
	}
	if st.ShareToken == "" {
		st.ShareToken = uuid.New().String()
	}
	st.IsShareable = true
	st.Touch()
	if err := o.store.SaveStory(ctx, st); err != nil {
		return "", fmt.Errorf("failed to save story: %w", err)
	}
	o.logger.Info("Story shared", "story_id", storyID)
	return st.ShareToken, nil
}

// GetStory loads a story by id.
func (o *Orchestrator) GetStory(ctx context.Context, storyID string) (*story.Story, error) {
	return o.load(ctx, storyID)
}

// SharedStory loads a story by share token.
func (o *Orchestrator) SharedStory(ctx context.Context, token string) (*story.Story, error) {
	st, err := o.store.LoadStoryByShareToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrStoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shared story: %w", err)
	}
	return st, nil
}

// ListStories returns a user's stories, most recent first.
func (o *Orchestrator) ListStories(ctx context.Context, userID string) ([]story.Metadata, error) {
	list, err := o.store.ListStories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return list, nil
}

// DeleteStory removes a story with its memory and nodes.
func (o *Orchestrator) DeleteStory(ctx context.Context, storyID string) error {
	unlock, err := o.lock(ctx, storyID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := o.load(ctx, storyID); err != nil {
		return err
	}
	if err := o.store.DeleteStory(ctx, storyID); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}

func (o *Orchestrator) lock(ctx context.Context, storyID string) (func(), error) {
	unlock, acquired, err := o.locker.TryLock(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock story %s: %w", storyID, err)
	}
	if !acquired {
		return nil, ErrStoryBusy
	}
	return unlock, nil
}

// ensureCurrent re-reads the story before a save and fails if another
// advance landed while this one was generating.
func (o *Orchestrator) ensureCurrent(ctx context.Context, storyID, nodeID string) error {
	latest, err := o.load(ctx, storyID)
	if err != nil {
		return err
	}
	if latest.CurrentNodeID != nodeID {
		o.logger.Warn("Story advanced concurrently, discarding chapter",
			"story_id", storyID,
			"expected_node_id", nodeID,
			"current_node_id", latest.CurrentNodeID)
		return fmt.Errorf("%w: node %s is no longer current", ErrStaleChoice, nodeID)
	}
	return nil
}

func (o *Orchestrator) load(ctx context.Context, storyID string) (*story.Story, error) {
	st, err := o.store.LoadStory(ctx, storyID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrStoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load story %s: %w", storyID, err)
	}
	return st, nil
}

// extractCharacters merges the roster and returns the content to store.
// The parser may leave the character block outside the story section, in
// which case it is read from the raw response.
func (o *Orchestrator) extractCharacters(mem *story.StoryMemory, res *genres.Result, protagonist string) string {
	if res.Raw != "" && !hasBlock(res.Content) && hasBlock(res.Raw) {
		out := o.extractor.Extract(mem, res.Raw, protagonist)
		o.logExtraction(out)
		return res.Content
	}
	out := o.extractor.Extract(mem, res.Content, protagonist)
	o.logExtraction(out)
	return out.Content
}

func (o *Orchestrator) logExtraction(out characters.Outcome) {
	if len(out.Added)+len(out.Updated)+len(out.Rejected) == 0 {
		return
	}
	o.logger.Debug("Characters extracted",
		"block", out.BlockFound,
		"added", out.Added,
		"updated", out.Updated,
		"rejected", len(out.Rejected))
}

func hasBlock(s string) bool {
	return strings.Contains(strings.ToUpper(s), characters.BlockOpen)
}
