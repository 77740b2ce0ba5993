package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/earnhub/backend/internal/middleware"
	"github.com/earnhub/backend/internal/service"
)

// GetMe registers the caller on first contact and returns the profile with
// today's limits.
func (h *Handler) GetMe(c *fiber.Ctx) error {
	telegramUser := middleware.GetTelegramUser(c)
	if telegramUser == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "authorization required",
			"code":    "unauthorized",
		})
	}

	ctx := c.UserContext()
	user, created, err := h.svc.Users.GetOrCreateUser(ctx, service.TelegramUser{
		ID:           telegramUser.UserID,
		Username:     &telegramUser.Username,
		FirstName:    &telegramUser.FirstName,
		LastName:     &telegramUser.LastName,
		LanguageCode: &telegramUser.LanguageCode,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	limits, err := h.svc.Quota.Limits(ctx, user.ID)
	if err != nil {
		return h.writeError(c, err)
	}
	isAdmin, err := h.svc.Admin.IsAdmin(ctx, user.ID)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"user":     user,
		"is_new":   created,
		"is_admin": isAdmin,
		"limits":   limits,
	})
}

// GetBalance returns the committed balance.
func (h *Handler) GetBalance(c *fiber.Ctx) error {
	balance, err := h.svc.Ledger.BalanceOf(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"balance":         balance,
		"currency_symbol": currencySymbol,
	})
}
