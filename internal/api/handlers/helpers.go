package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/platform"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/service"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := c.Locals("user_id").(int64)
	return userID
}

func errorStatus(err error) int {
	var (
		verr *service.ValidationError
		perr *platform.Error
	)
	switch {
	case errors.As(err, &verr):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrAccountNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrAlreadyPublished),
		errors.Is(err, service.ErrAlreadyClaimed),
		errors.Is(err, service.ErrNotSchedulable),
		errors.Is(err, service.ErrAccountAlreadyLinked),
		errors.Is(err, asynq.ErrTaskIDConflict):
		return fiber.StatusConflict
	case errors.As(err, &perr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err with the status it maps to. Unexpected errors are
// logged and hidden from the caller.
func respondError(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{
			"error": "Something went wrong",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
