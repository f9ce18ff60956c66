package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/queue"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/service"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	publish     service.PublishService
	AsynqClient queue.Enqueuer
	taskTimeout time.Duration
}

func NewPostHandler(s service.PostService, publish service.PublishService, asynqClient queue.Enqueuer, taskTimeout time.Duration) *PostHandler {
	return &PostHandler{s: s, publish: publish, AsynqClient: asynqClient, taskTimeout: taskTimeout}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		return badRequest(c, "Unable to parse request body")
	}

	post, err := h.s.Create(c.Context(), GetUserID(c), &pc)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		return badRequest(c, "Unable to parse request body")
	}

	post, err := h.s.Update(c.Context(), GetUserID(c), c.Params("id"), &pc)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	if posts == nil {
		posts = []*models.ScheduledPost{}
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.s.Get(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	if err := h.s.Remove(c.Context(), GetUserID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RetryPost moves a failed post back to scheduled so the next sweep picks it up.
func (h *PostHandler) RetryPost(c *fiber.Ctx) error {
	postID := c.Params("id")
	if err := h.publish.ResetForRetry(c.Context(), GetUserID(c), postID); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post_id": postID,
		"status":  models.PostStatusScheduled,
	})
}

func (h *PostHandler) PostHistory(c *fiber.Ctx) error {
	entries, err := h.publish.History(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if entries == nil {
		entries = []*models.PostingHistory{}
	}
	return c.Status(fiber.StatusOK).JSON(entries)
}

// PublishPost queues an immediate publish. The attempt itself runs on the worker.
func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	post, err := h.s.Get(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	switch post.Status {
	case models.PostStatusPublished:
		return respondError(c, service.ErrAlreadyPublished)
	case models.PostStatusPublishing:
		return respondError(c, service.ErrAlreadyClaimed)
	case models.PostStatusFailed:
		return respondError(c, service.ErrNotSchedulable)
	}

	if err := queue.EnqueuePublish(h.AsynqClient, queue.PublishPostPayload{PostID: post.ID}, h.taskTimeout); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"post_id": post.ID,
		"status":  "queued",
	})
}
