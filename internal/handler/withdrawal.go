package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/earnhub/backend/internal/middleware"
	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/service"
)

type withdrawalRequest struct {
	Amount        decimal.Decimal     `json:"amount"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	TONAddress    string              `json:"ton_address"`
	BkashNumber   string              `json:"bkash_number"`
	Destination   string              `json:"destination"`
}

// destination picks the field matching the method; "destination" is a
// method-agnostic fallback.
func (r withdrawalRequest) destination() string {
	switch r.PaymentMethod {
	case model.PaymentMethodTON:
		if r.TONAddress != "" {
			return r.TONAddress
		}
	case model.PaymentMethodBkash:
		if r.BkashNumber != "" {
			return r.BkashNumber
		}
	}
	return r.Destination
}

func (h *Handler) RequestWithdrawal(c *fiber.Ctx) error {
	var req withdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	w, err := h.svc.Withdrawals.Request(c.UserContext(), middleware.GetUserID(c), service.WithdrawalRequest{
		Amount:      req.Amount,
		Method:      req.PaymentMethod,
		Destination: req.destination(),
	})
	if err != nil {
		return h.writeError(c, err)
	}

	balance, err := h.svc.Ledger.BalanceOf(c.UserContext(), w.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"message":     fmt.Sprintf("Withdrawal request for %s%s submitted", currencySymbol, w.Amount.StringFixed(model.MoneyPlaces)),
		"withdrawal":  w,
		"new_balance": balance,
	})
}

func (h *Handler) CancelWithdrawal(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid withdrawal id")
	}

	userID := middleware.GetUserID(c)
	w, err := h.svc.Withdrawals.Cancel(c.UserContext(), userID, id)
	if err != nil {
		return h.writeError(c, err)
	}

	balance, err := h.svc.Ledger.BalanceOf(c.UserContext(), userID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Withdrawal cancelled, funds returned to your balance",
		"withdrawal":  w,
		"new_balance": balance,
	})
}

func (h *Handler) GetWithdrawalHistory(c *fiber.Ctx) error {
	withdrawals, pagination, err := h.svc.Withdrawals.ListForUser(c.UserContext(), middleware.GetUserID(c), pageFromQuery(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"withdrawals": withdrawals,
		"pagination":  pagination,
	})
}
