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

type earnResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Remaining  *int            `json:"remaining,omitempty"`
	Earning    *model.Earning  `json:"earning"`
}

func newEarnResponse(res *service.EarnResult, message string, withRemaining bool) earnResponse {
	out := earnResponse{
		Success:    true,
		Message:    message,
		Amount:     res.Earning.Amount,
		NewBalance: res.Balance,
		Earning:    res.Earning,
	}
	if withRemaining {
		remaining := res.Remaining
		out.Remaining = &remaining
	}
	return out
}

func (h *Handler) WatchAd(c *fiber.Ctx) error {
	res, err := h.svc.Earnings.WatchAd(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	msg := fmt.Sprintf("You earned %s%s for watching an ad!", currencySymbol, res.Earning.Amount.StringFixed(model.MoneyPlaces))
	return c.JSON(newEarnResponse(res, msg, true))
}

func (h *Handler) Spin(c *fiber.Ctx) error {
	res, err := h.svc.Earnings.SpinWheel(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	msg := fmt.Sprintf("You won %s%s!", currencySymbol, res.Earning.Amount.StringFixed(model.MoneyPlaces))
	return c.JSON(newEarnResponse(res, msg, true))
}

type completeOfferRequest struct {
	OfferID string `json:"offer_id"`
}

func (h *Handler) CompleteOffer(c *fiber.Ctx) error {
	var req completeOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	offerID, err := uuid.Parse(req.OfferID)
	if err != nil {
		return badRequest(c, "invalid offer_id")
	}

	res, err := h.svc.Earnings.CompleteOffer(c.UserContext(), middleware.GetUserID(c), offerID)
	if err != nil {
		return h.writeError(c, err)
	}
	msg := fmt.Sprintf("Offer completed! You earned %s%s", currencySymbol, res.Earning.Amount.StringFixed(model.MoneyPlaces))
	return c.JSON(newEarnResponse(res, msg, false))
}

func (h *Handler) GetLimits(c *fiber.Ctx) error {
	limits, err := h.svc.Quota.Limits(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"limits":  limits,
	})
}

func (h *Handler) GetEarningHistory(c *fiber.Ctx) error {
	earnings, pagination, err := h.svc.Ledger.History(c.UserContext(), middleware.GetUserID(c), pageFromQuery(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"earnings":   earnings,
		"pagination": pagination,
	})
}

func (h *Handler) GetEarningStats(c *fiber.Ctx) error {
	stats, err := h.svc.Ledger.Stats(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}

// GetOffers lists the offers a user can still complete.
func (h *Handler) GetOffers(c *fiber.Ctx) error {
	offers, err := h.svc.Offers.List(c.UserContext(), true)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"offers":  offers,
	})
}
