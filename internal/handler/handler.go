package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/service"
	"github.com/earnhub/backend/internal/ton"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Users       *service.UserService
	Settings    *service.SettingsService
	Ledger      *service.LedgerService
	Quota       *service.QuotaService
	Earnings    *service.EarningService
	Offers      *service.OfferService
	Withdrawals *service.WithdrawalService
	Admin       *service.AdminService
}

type Handler struct {
	svc   Services
	store Pinger
	log   *zap.Logger
}

func New(svc Services, store Pinger, log *zap.Logger) *Handler {
	return &Handler{svc: svc, store: store, log: log}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.store.Ping(c.UserContext()); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "degraded",
			"database": "unreachable",
		})
	}
	return c.JSON(fiber.Map{
		"status":   "ok",
		"database": "ok",
	})
}

// GetPublicSettings exposes the values the mini-app needs to render limits
// and withdrawal rules.
func (h *Handler) GetPublicSettings(c *fiber.Ctx) error {
	st, err := h.svc.Settings.Current(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"settings":        st,
		"currency_symbol": currencySymbol,
		"payment_methods": []model.PaymentMethod{model.PaymentMethodTON, model.PaymentMethodBkash},
	})
}

const currencySymbol = "৳"

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: the first match wins.
var errorMappings = []errorMapping{
	{service.ErrValidation, fiber.StatusBadRequest, "validation"},
	{service.ErrBelowMinimumWithdrawal, fiber.StatusBadRequest, "below_minimum_withdrawal"},
	{service.ErrInsufficientBalance, fiber.StatusPaymentRequired, "insufficient_balance"},
	{service.ErrQuotaExceeded, fiber.StatusTooManyRequests, "quota_exceeded"},
	{service.ErrInvalidTransition, fiber.StatusConflict, "invalid_transition"},
	{service.ErrInvalidState, fiber.StatusConflict, "invalid_state"},
	{service.ErrAlreadyResolved, fiber.StatusConflict, "already_resolved"},
	{service.ErrConflict, fiber.StatusConflict, "conflict"},
	{service.ErrInvalidOffer, fiber.StatusBadRequest, "invalid_offer"},
	{service.ErrNotFound, fiber.StatusNotFound, "not_found"},
	{service.ErrForbidden, fiber.StatusForbidden, "forbidden"},
	{ton.ErrInvalidAddress, fiber.StatusBadRequest, "validation"},
}

// writeError renders err with the status of the first matching sentinel.
// Unknown errors are logged and reported without detail.
func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
				"code":    m.code,
			})
		}
	}

	h.log.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "internal server error",
		"code":    "internal",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   msg,
		"code":    "validation",
	})
}

func pageFromQuery(c *fiber.Ctx) model.Page {
	return model.NewPage(c.QueryInt("page", 1), c.QueryInt("per_page", model.DefaultPerPage))
}
