package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/jwebster45206/storyarc/internal/orchestrator"
	"github.com/jwebster45206/storyarc/internal/services/events"
	"github.com/jwebster45206/storyarc/internal/services/queue"
	queuePkg "github.com/jwebster45206/storyarc/pkg/queue"
	"github.com/jwebster45206/storyarc/pkg/story"
)

const (
	workerTimeout = 5 * time.Second
	requeueDelay  = 250 * time.Millisecond

	// MaxRequeues bounds how often a request waits on a busy story before
	// it is failed.
	MaxRequeues = 40
)

// Advancer is the part of the orchestrator the worker drives.
type Advancer interface {
	AdvanceStoryAt(ctx context.Context, storyID, nodeID, choiceID string) (*story.Story, *story.StoryNode, error)
}

// Stats are the worker's lifetime counters.
type Stats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Requeued  int64 `json:"requeued"`
}

// Worker advances stories from the request queue
type Worker struct {
	id          string
	queue       *queue.RequestQueue
	advancer    Advancer
	broadcaster *events.Broadcaster
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc

	processed atomic.Int64
	failed    atomic.Int64
	requeued  atomic.Int64
}

// New creates a new worker instance
func New(q *queue.RequestQueue, advancer Advancer, broadcaster *events.Broadcaster, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       q,
		advancer:    advancer,
		broadcaster: broadcaster,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker id.
func (w *Worker) ID() string {
	return w.id
}

// Start begins processing requests from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id, "stats", w.Stats())
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				// Continue processing even on error
				w.sleep(time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// Stats returns a snapshot of the counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Failed:    w.failed.Load(),
		Requeued:  w.requeued.Load(),
	}
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	// Block waiting for next request (timeout after 5 seconds to check for shutdown)
	ctx, cancel := context.WithTimeout(w.ctx, workerTimeout)
	defer cancel()

	req, err := w.queue.BlockingDequeue(ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}

	w.log.Info("Received request from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"story_id", req.StoryID,
		"node_id", req.NodeID,
		"choice_id", req.ChoiceID,
	)
	return w.processRequest(req)
}

// processRequest advances one story and reports the outcome on the
// story's event channel.
func (w *Worker) processRequest(req *queuePkg.Request) error {
	start := time.Now()
	// Stop must not abandon a chapter half way; the request is finished or
	// re-queued before the worker exits.
	ctx := context.WithoutCancel(w.ctx)

	// Announce once, not on every re-queue.
	if req.Requeues == 0 {
		// Don't fail the request just because event publishing failed
		if err := w.broadcaster.PublishRequestProcessing(ctx, req.StoryID, req.RequestID, req.ChoiceID); err != nil {
			w.log.Error("Failed to publish processing event", "error", err)
		}
	}

	// A busy story is retried later; the node check then catches requests
	// that another advance has overtaken.
	_, node, err := w.advancer.AdvanceStoryAt(ctx, req.StoryID, req.NodeID, req.ChoiceID)
	if errors.Is(err, orchestrator.ErrStoryBusy) {
		return w.requeue(ctx, req)
	}
	if err != nil {
		w.failed.Inc()
		w.log.Error("Failed to advance story",
			"error", err,
			"worker_id", w.id,
			"request_id", req.RequestID,
			"story_id", req.StoryID,
		)
		w.publishFailed(ctx, req, err.Error())
		return nil
	}

	w.processed.Inc()
	duration := time.Since(start)
	w.log.Info("Story advanced from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"story_id", req.StoryID,
		"node_id", node.ID,
		"source", node.Source,
		"duration_ms", duration.Milliseconds(),
	)

	result := map[string]any{
		"node_id":     node.ID,
		"content":     node.Content,
		"choices":     node.Choices,
		"source":      node.Source,
		"duration_ms": duration.Milliseconds(),
	}
	if err := w.broadcaster.PublishRequestCompleted(ctx, req.StoryID, req.RequestID, result); err != nil {
		w.log.Error("Failed to publish completion event", "error", err)
	}
	return nil
}

// requeue puts a request for a busy story back at the end of the queue.
func (w *Worker) requeue(ctx context.Context, req *queuePkg.Request) error {
	if req.Requeues >= MaxRequeues {
		w.failed.Inc()
		w.log.Warn("Story stayed busy, giving up",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"story_id", req.StoryID,
			"requeues", req.Requeues,
		)
		w.publishFailed(ctx, req, orchestrator.ErrStoryBusy.Error())
		return nil
	}

	req.Requeues++
	w.requeued.Inc()
	w.log.Info("Story busy, re-queueing request",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"story_id", req.StoryID,
		"requeues", req.Requeues,
	)
	if err := w.queue.Enqueue(ctx, req); err != nil {
		return fmt.Errorf("failed to re-queue request: %w", err)
	}
	w.sleep(requeueDelay)
	return nil
}

func (w *Worker) publishFailed(ctx context.Context, req *queuePkg.Request, msg string) {
	if err := w.broadcaster.PublishRequestFailed(ctx, req.StoryID, req.RequestID, msg); err != nil {
		w.log.Error("Failed to publish failure event", "error", err)
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.ctx.Done():
	case <-time.After(d):
	}
}
