package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/service"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.PostID == "" {
		return fmt.Errorf("payload has no post id: %w", asynq.SkipRetry)
	}

	post, err := q.publish.PublishPost(ctx, payload.PostID)
	switch {
	case errors.Is(err, service.ErrAlreadyClaimed),
		errors.Is(err, service.ErrAlreadyPublished),
		errors.Is(err, service.ErrNotSchedulable),
		errors.Is(err, service.ErrPostNotFound):
		slog.Info("publish task skipped", "post_id", payload.PostID, "reason", err)
		return nil
	case err != nil:
		return fmt.Errorf("publishing %s: %v: %w", payload.PostID, err, asynq.SkipRetry)
	}

	slog.Info("publish task done", "post_id", post.ID, "status", post.Status)
	return nil
}

func (q *Queue) HandleSweepTask(ctx context.Context, task *asynq.Task) error {
	if _, err := q.sweep.Run(ctx); err != nil {
		return fmt.Errorf("sweep: %v: %w", err, asynq.SkipRetry)
	}
	return nil
}

func (q *Queue) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishPost, q.HandlePublishPostTask)
	mux.HandleFunc(TaskTypeSweep, q.HandleSweepTask)
	return mux
}
