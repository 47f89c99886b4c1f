package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/storyarc/internal/genres"
	"github.com/jwebster45206/storyarc/internal/orchestrator"
	"github.com/jwebster45206/storyarc/pkg/queue"
	"github.com/jwebster45206/storyarc/pkg/story"
)

// Enqueuer accepts async advance requests.
type Enqueuer interface {
	Enqueue(ctx context.Context, req *queue.Request) error
}

// QueuedNotifier announces accepted requests on the story's event channel.
type QueuedNotifier interface {
	PublishRequestQueued(ctx context.Context, storyID, requestID, choiceID string) error
}

// StoryResponse is returned by create and advance.
type StoryResponse struct {
	Story *story.Story     `json:"story"`
	Node  *story.StoryNode `json:"node,omitempty"`
}

// AdvanceAccepted is returned by the async advance endpoint.
type AdvanceAccepted struct {
	RequestID string `json:"request_id"`
	StoryID   string `json:"story_id"`
	ChoiceID  string `json:"choice_id"`
	NodeID    string `json:"node_id"`
	EventsURL string `json:"events_url"`
}

// SharedStoryResponse is the public, read-only view of a shared story.
type SharedStoryResponse struct {
	Title         string             `json:"title"`
	CharacterName string             `json:"character_name"`
	Setting       string             `json:"setting"`
	ProgressStage string             `json:"progress_stage,omitempty"`
	Nodes         []*story.StoryNode `json:"nodes"`
	LastUpdated   time.Time          `json:"last_updated"`
}

// SettingsResponse lists the settings a story can be started in.
type SettingsResponse struct {
	Settings    []string          `json:"settings"`
	Controllers []genres.Metadata `json:"controllers"`
}

type advanceBody struct {
	ChoiceID string `json:"choice_id"`
}

// StoryHandler serves the story endpoints.
type StoryHandler struct {
	orch     *orchestrator.Orchestrator
	queue    Enqueuer
	notifier QueuedNotifier
	logger   *slog.Logger
}

// NewStoryHandler creates the handler. A nil queue disables async advance.
func NewStoryHandler(orch *orchestrator.Orchestrator, q Enqueuer, notifier QueuedNotifier, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{
		orch:     orch,
		queue:    q,
		notifier: notifier,
		logger:   logger,
	}
}

// Settings handles GET /v1/settings
func (h *StoryHandler) Settings(w http.ResponseWriter, r *http.Request) {
	reg := h.orch.Registry()
	writeJSON(w, h.logger, http.StatusOK, SettingsResponse{
		Settings:    reg.Settings(),
		Controllers: reg.Controllers(),
	})
}

// List handles GET /v1/stories
func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.orch.ListStories(r.Context(), userID(r))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, list)
}

// Create handles POST /v1/stories
func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var params story.CreationParams
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&params); err != nil {
		h.logger.Warn("Invalid story request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if params.UserID == "" {
		params.UserID = userID(r)
	}

	st, node, err := h.orch.StartStory(r.Context(), params)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/v1/stories/"+st.ID)
	writeJSON(w, h.logger, http.StatusCreated, StoryResponse{Story: st, Node: node})
}

// Get handles GET /v1/stories/{id}
func (h *StoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, st)
}

// Delete handles DELETE /v1/stories/{id}
func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	st, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.orch.DeleteStory(r.Context(), st.ID); err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Choose handles POST /v1/stories/{id}/choices/{choiceID} and waits for the
// next chapter. The choice is pinned to the node current at request time.
func (h *StoryHandler) Choose(w http.ResponseWriter, r *http.Request) {
	st, ok := h.owned(w, r)
	if !ok {
		return
	}
	updated, node, err := h.orch.AdvanceStoryAt(r.Context(), st.ID, st.CurrentNodeID, chi.URLParam(r, "choiceID"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, StoryResponse{Story: updated, Node: node})
}

// Advance handles POST /v1/stories/{id}/advance. The chapter is generated
// by a worker and announced on the story's event stream.
func (h *StoryHandler) Advance(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Async advance is not available")
		return
	}

	var body advanceBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil || strings.TrimSpace(body.ChoiceID) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "choice_id is required")
		return
	}

	st, ok := h.owned(w, r)
	if !ok {
		return
	}
	// Reject unknown choices now rather than in the worker.
	current, found := st.CurrentNode()
	if !found || !hasChoice(current, body.ChoiceID) {
		writeErr(w, r, h.logger, orchestrator.ErrChoiceNotFound)
		return
	}

	req := queue.NewRequest(st.ID, body.ChoiceID, userID(r))
	req.NodeID = current.ID
	if err := h.queue.Enqueue(r.Context(), req); err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	if h.notifier != nil {
		if err := h.notifier.PublishRequestQueued(r.Context(), st.ID, req.RequestID, req.ChoiceID); err != nil {
			h.logger.Warn("Failed to publish queued event", "error", err, "request_id", req.RequestID)
		}
	}

	h.logger.Info("Advance request queued",
		"story_id", st.ID,
		"request_id", req.RequestID,
		"choice_id", req.ChoiceID)
	writeJSON(w, h.logger, http.StatusAccepted, AdvanceAccepted{
		RequestID: req.RequestID,
		StoryID:   st.ID,
		ChoiceID:  req.ChoiceID,
		NodeID:    req.NodeID,
		EventsURL: "/v1/events/stories/" + st.ID,
	})
}

// Share handles POST /v1/stories/{id}/share
func (h *StoryHandler) Share(w http.ResponseWriter, r *http.Request) {
	st, ok := h.owned(w, r)
	if !ok {
		return
	}
	token, err := h.orch.ShareStory(r.Context(), st.ID)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"share_token": token,
		"shared_url":  "/v1/shared/" + token,
	})
}

// Shared handles GET /v1/shared/{token}
func (h *StoryHandler) Shared(w http.ResponseWriter, r *http.Request) {
	st, err := h.orch.SharedStory(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, SharedStoryResponse{
		Title:         st.Title,
		CharacterName: st.CharacterName,
		Setting:       st.Setting,
		ProgressStage: st.ProgressStage,
		Nodes:         st.Path(),
		LastUpdated:   st.LastUpdated,
	})
}

// owned loads the story in the URL. A story that belongs to another user is
// reported as missing.
func (h *StoryHandler) owned(w http.ResponseWriter, r *http.Request) (*story.Story, bool) {
	st, err := h.orch.GetStory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return nil, false
	}
	if uid := userID(r); uid != "" && st.UserID != "" && uid != st.UserID {
		writeErr(w, r, h.logger, orchestrator.ErrStoryNotFound)
		return nil, false
	}
	return st, true
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

func hasChoice(n *story.StoryNode, id string) bool {
	_, ok := n.FindChoice(id)
	return ok
}
