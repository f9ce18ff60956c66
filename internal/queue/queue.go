package queue

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewPublishTask builds a single-shot publish task. Retrying is left to the
// caller since a retried attempt could double-post.
func NewPublishTask(payload PublishPostPayload, timeout time.Duration) (*asynq.Task, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, taskPayload, asynq.MaxRetry(0), asynq.Timeout(timeout)), nil
}

// EnqueuePublish queues a publish-now request. A post that already has a
// queued task reports asynq.ErrTaskIDConflict.
func EnqueuePublish(asynqClient Enqueuer, payload PublishPostPayload, timeout time.Duration) error {
	task, err := NewPublishTask(payload, timeout)
	if err != nil {
		return err
	}

	info, err := asynqClient.Enqueue(task, asynq.TaskID("publish:"+payload.PostID))
	if err != nil {
		return err
	}

	slog.Info("publish task queued", "post_id", payload.PostID, "task_id", info.ID)
	return nil
}

func NewSweepTask(timeout time.Duration) *asynq.Task {
	return asynq.NewTask(TaskTypeSweep, nil, asynq.MaxRetry(0), asynq.Timeout(timeout))
}

// EnqueueSweep queues one sweep. Triggers inside the unique window collapse
// into the task already queued, reported as queued=false.
func EnqueueSweep(asynqClient Enqueuer, timeout, uniqueFor time.Duration) (bool, error) {
	info, err := asynqClient.Enqueue(NewSweepTask(timeout), asynq.Unique(uniqueFor))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	slog.Info("sweep task queued", "task_id", info.ID)
	return true, nil
}
