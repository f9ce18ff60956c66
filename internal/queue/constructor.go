package queue

import (
	"context"

	job "github.com/jhonny218/social-media-scheduler-sub001/internal/jobs"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/service"
)

type Sweeper interface {
	Run(ctx context.Context) (*job.SweepReport, error)
}

type Queue struct {
	publish service.PublishService
	sweep   Sweeper
}

func NewQueue(publish service.PublishService, sweep Sweeper) *Queue {
	return &Queue{
		publish: publish,
		sweep:   sweep,
	}
}

const (
	TaskTypePublishPost = "post:publish"
	TaskTypeSweep       = "post:sweep"
)

type PublishPostPayload struct {
	PostID string `json:"post_id"`
}
