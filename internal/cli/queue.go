package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/storyarc/internal/services/queue"
	queuePkg "github.com/jwebster45206/storyarc/pkg/queue"
)

const defaultRedisURL = "redis://localhost:6379"

// QueueCmd inspects and feeds the advance request queue.
func QueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect or feed the advance request queue",
	}
	cmd.PersistentFlags().String("redis", defaultRedisURL, "Redis URL")

	enqueue := &cobra.Command{
		Use:   "enqueue <story-id> <choice-id>",
		Short: "Queue an advance request for the workers",
		Args:  cobra.ExactArgs(2),
		RunE:  runEnqueue,
	}
	enqueue.Flags().String("user", "", "User ID recorded on the request")
	enqueue.Flags().String("node", "", "Node the choice was made on (default: current node when processed)")

	depth := &cobra.Command{
		Use:   "depth",
		Short: "Show how many requests are waiting",
		Args:  cobra.NoArgs,
		RunE:  runDepth,
	}

	cmd.AddCommand(enqueue, depth)
	return cmd
}

func openQueue(cmd *cobra.Command) (*queue.RequestQueue, func(), error) {
	url, _ := cmd.Flags().GetString("redis")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	q, err := queue.Dial(cmd.Context(), url, log)
	if err != nil {
		return nil, nil, err
	}
	return q, func() { _ = q.Close() }, nil
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	req := queuePkg.NewRequest(args[0], args[1], user)
	req.NodeID, _ = cmd.Flags().GetString("node")
	if err := req.Validate(); err != nil {
		return err
	}

	q, closeFn, err := openQueue(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if err := q.Enqueue(ctx, req); err != nil {
		return err
	}
	depth, err := q.Depth(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s Enqueued request %s (story %s, choice %s)\n", okMark, req.RequestID, req.StoryID, req.ChoiceID)
	fmt.Fprintf(w, "%s\n", dim(fmt.Sprintf("queue depth: %d", depth)))
	return nil
}

func runDepth(cmd *cobra.Command, args []string) error {
	q, closeFn, err := openQueue(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	depth, err := q.Depth(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), depth)
	return nil
}
