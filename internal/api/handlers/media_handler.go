package handlers

import (
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/service"
)

type MediaHandler struct {
	s service.MediaService
}

func NewMediaHandler(s service.MediaService) *MediaHandler {
	return &MediaHandler{s: s}
}

func (h *MediaHandler) UploadMedia(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file selected")
	}

	fileContent, err := file.Open()
	if err != nil {
		slog.Error(err.Error())
		return badRequest(c, "Unable to read file")
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		slog.Error(err.Error())
		return badRequest(c, "Unable to read file")
	}

	result, err := h.s.Upload(c.Context(), GetUserID(c), fileBytes)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *MediaHandler) ListMedia(c *fiber.Ctx) error {
	assets, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	if assets == nil {
		assets = []*models.MediaAsset{}
	}

	return c.Status(fiber.StatusOK).JSON(assets)
}
