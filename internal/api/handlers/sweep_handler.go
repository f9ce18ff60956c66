package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/queue"
)

type SweepHandler struct {
	AsynqClient queue.Enqueuer
	taskTimeout time.Duration
	uniqueFor   time.Duration
}

func NewSweepHandler(asynqClient queue.Enqueuer, taskTimeout, uniqueFor time.Duration) *SweepHandler {
	return &SweepHandler{AsynqClient: asynqClient, taskTimeout: taskTimeout, uniqueFor: uniqueFor}
}

func (h *SweepHandler) TriggerSweep(c *fiber.Ctx) error {
	queued, err := queue.EnqueueSweep(h.AsynqClient, h.taskTimeout, h.uniqueFor)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"queued": queued,
	})
}
