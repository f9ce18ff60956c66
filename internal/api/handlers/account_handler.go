package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/platform"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/service"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/transfer"
)

type AccountHandler struct {
	s service.AccountService
}

func NewAccountHandler(s service.AccountService) *AccountHandler {
	return &AccountHandler{s: s}
}

func (h *AccountHandler) ConnectAccount(c *fiber.Ctx) error {
	var ac transfer.AccountConnection
	if err := c.BodyParser(&ac); err != nil {
		return badRequest(c, "Unable to parse request body")
	}

	account, err := h.s.Connect(c.Context(), GetUserID(c), &ac)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(account)
}

func (h *AccountHandler) ListSocialAccounts(c *fiber.Ctx) error {
	accounts, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	if accounts == nil {
		accounts = []*models.SocialAccount{}
	}

	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *AccountHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	accountID, err := c.ParamsInt("id")
	if err != nil || accountID <= 0 {
		return badRequest(c, "Invalid account id")
	}

	if err := h.s.Delete(c.Context(), GetUserID(c), int64(accountID)); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateAccount reports a token the platform rejects as valid=false rather
// than as a request failure.
func (h *AccountHandler) ValidateAccount(c *fiber.Ctx) error {
	accountID, err := c.ParamsInt("id")
	if err != nil || accountID <= 0 {
		return badRequest(c, "Invalid account id")
	}

	err = h.s.Validate(c.Context(), GetUserID(c), int64(accountID))
	var perr *platform.Error
	if errors.As(err, &perr) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"valid": false,
			"error": perr.Message,
		})
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"valid": true,
	})
}

func (h *AccountHandler) RefreshAccount(c *fiber.Ctx) error {
	accountID, err := c.ParamsInt("id")
	if err != nil || accountID <= 0 {
		return badRequest(c, "Invalid account id")
	}

	account, err := h.s.Refresh(c.Context(), GetUserID(c), int64(accountID))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(account)
}
