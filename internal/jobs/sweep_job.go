package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/platform"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/repository"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/service"
)

type SweepConfig struct {
	BatchSize int
	Pacing    time.Duration
}

type SweepReport struct {
	RunID     string `json:"run_id"`
	Reclaimed int    `json:"reclaimed"`
	Due       int    `json:"due"`
	Published int    `json:"published"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

// SweepJob publishes due posts one at a time, oldest first.
type SweepJob struct {
	pr      repository.PostRepository
	publish service.PublishService
	cfg     SweepConfig

	now   func() time.Time
	sleep platform.SleepFunc
}

func NewSweepJob(pr repository.PostRepository, publish service.PublishService, cfg SweepConfig) *SweepJob {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &SweepJob{
		pr:      pr,
		publish: publish,
		cfg:     cfg,
		now:     time.Now,
		sleep:   platform.Sleep,
	}
}

func (j *SweepJob) Run(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{RunID: uuid.NewString()}
	log := slog.With("run_id", report.RunID)

	reclaimed, err := j.publish.ReclaimStale(ctx)
	if err != nil {
		log.Error("stale reclaim failed", "error", err)
	}
	report.Reclaimed = len(reclaimed)

	due, err := j.pr.ListDue(ctx, j.now(), j.cfg.BatchSize)
	if err != nil {
		return report, err
	}
	report.Due = len(due)

	for i, p := range due {
		if i > 0 {
			if err := j.sleep(ctx, j.cfg.Pacing); err != nil {
				log.Warn("sweep interrupted", "processed", i, "due", len(due))
				return report, err
			}
		}
		j.publishOne(ctx, log, report, p)
	}

	log.Info("sweep finished",
		"reclaimed", report.Reclaimed,
		"due", report.Due,
		"published", report.Published,
		"failed", report.Failed,
		"skipped", report.Skipped)
	return report, nil
}

func (j *SweepJob) publishOne(ctx context.Context, log *slog.Logger, report *SweepReport, due *models.ScheduledPost) {
	post, err := j.publish.PublishPost(ctx, due.ID)
	switch {
	case errors.Is(err, service.ErrAlreadyClaimed),
		errors.Is(err, service.ErrAlreadyPublished),
		errors.Is(err, service.ErrNotSchedulable),
		errors.Is(err, service.ErrPostNotFound):
		log.Info("post skipped", "post_id", due.ID, "reason", err)
		report.Skipped++
	case err != nil:
		log.Error("post attempt did not finish", "post_id", due.ID, "error", err)
		report.Failed++
	case post.Status == models.PostStatusPublished:
		report.Published++
	default:
		report.Failed++
	}
}
