package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/earnhub/backend/internal/middleware"
	"github.com/earnhub/backend/internal/model"
	"github.com/earnhub/backend/internal/service"
	"github.com/earnhub/backend/internal/ton"
)

// AdminHandler handles admin panel requests
type AdminHandler struct {
	*Handler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(h *Handler) *AdminHandler {
	return &AdminHandler{Handler: h}
}

// --- Stats ---

// GetStats returns admin dashboard statistics
func (h *AdminHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.svc.Admin.GetStats(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}

// --- Withdrawals ---

type adminWithdrawal struct {
	model.WithdrawalWithUser
	PayoutLink    string `json:"payout_link,omitempty"`
	PayoutComment string `json:"payout_comment,omitempty"`
	PayoutPayload string `json:"payout_payload,omitempty"`
}

// payoutReference is the comment an admin attaches to a manual TON payout.
func payoutReference(w *model.Withdrawal) string {
	return "withdrawal " + w.ID.String()
}

func (h *AdminHandler) withPayoutInfo(w model.WithdrawalWithUser) adminWithdrawal {
	out := adminWithdrawal{WithdrawalWithUser: w}
	if w.Method != model.PaymentMethodTON || w.Status.IsTerminal() {
		return out
	}
	out.PayoutComment = payoutReference(&w.Withdrawal)
	out.PayoutLink = ton.TransferLink(w.Destination, out.PayoutComment)
	payload, err := ton.CommentPayload(out.PayoutComment)
	if err != nil {
		h.log.Warn("failed to build payout payload", zap.String("withdrawal_id", w.ID.String()), zap.Error(err))
		return out
	}
	out.PayoutPayload = payload
	return out
}

// ListWithdrawals lists withdrawal requests, optionally filtered by status
func (h *AdminHandler) ListWithdrawals(c *fiber.Ctx) error {
	var status *model.WithdrawalStatus
	if raw := c.Query("status"); raw != "" && raw != "all" {
		st, err := model.ParseWithdrawalStatus(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		status = &st
	}

	rows, pagination, err := h.svc.Withdrawals.ListForAdmin(c.UserContext(), status, pageFromQuery(c))
	if err != nil {
		return h.writeError(c, err)
	}

	withdrawals := make([]adminWithdrawal, len(rows))
	for i, w := range rows {
		withdrawals[i] = h.withPayoutInfo(w)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"withdrawals": withdrawals,
		"pagination":  pagination,
	})
}

type updateWithdrawalRequest struct {
	Status     string  `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

// UpdateWithdrawal moves a withdrawal to approved, completed or rejected
func (h *AdminHandler) UpdateWithdrawal(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid withdrawal id")
	}
	var req updateWithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	target, err := model.ParseWithdrawalStatus(req.Status)
	if err != nil {
		return badRequest(c, err.Error())
	}

	w, err := h.svc.Withdrawals.UpdateStatus(c.UserContext(), middleware.GetAdminID(c), id, target, req.AdminNotes)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"message":    "Withdrawal " + string(w.Status),
		"withdrawal": w,
	})
}

type updateNotesRequest struct {
	AdminNotes string `json:"admin_notes"`
}

func (h *AdminHandler) UpdateWithdrawalNotes(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid withdrawal id")
	}
	var req updateNotesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	w, err := h.svc.Withdrawals.UpdateNotes(c.UserContext(), middleware.GetAdminID(c), id, req.AdminNotes)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"withdrawal": w,
	})
}

// --- Settings ---

func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.svc.Settings.List(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"settings": settings,
	})
}

type updateSettingsRequest struct {
	Settings map[string]interface{} `json:"settings"`
}

// UpdateSettings applies a batch of key/value changes. Values may be sent as
// JSON strings or numbers.
func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	var req updateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.Settings) == 0 {
		return badRequest(c, "no settings given")
	}

	changes := make(map[string]string, len(req.Settings))
	for key, v := range req.Settings {
		switch val := v.(type) {
		case string:
			changes[key] = strings.TrimSpace(val)
		case float64:
			changes[key] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			return badRequest(c, "setting "+key+" must be a string or number")
		}
	}

	st, err := h.svc.Settings.Update(c.UserContext(), middleware.GetAdminID(c), changes)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Settings updated",
		"settings": st,
	})
}

// --- CPA offers ---

func (h *AdminHandler) ListOffers(c *fiber.Ctx) error {
	offers, err := h.svc.Offers.List(c.UserContext(), false)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"offers":  offers,
	})
}

type offerRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Link         *string          `json:"link"`
	RewardAmount *decimal.Decimal `json:"reward_amount"`
	IsActive     *bool            `json:"is_active"`
}

func (h *AdminHandler) CreateOffer(c *fiber.Ctx) error {
	var req offerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	in := service.OfferInput{
		Description: req.Description,
		IsActive:    req.IsActive,
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Link != nil {
		in.Link = *req.Link
	}
	if req.RewardAmount != nil {
		in.RewardAmount = *req.RewardAmount
	}

	offer, err := h.svc.Offers.Create(c.UserContext(), middleware.GetAdminID(c), in)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"offer":   offer,
	})
}

func (h *AdminHandler) UpdateOffer(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid offer id")
	}
	var req offerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	offer, err := h.svc.Offers.Update(c.UserContext(), middleware.GetAdminID(c), id, service.OfferPatch{
		Title:        req.Title,
		Description:  req.Description,
		Link:         req.Link,
		RewardAmount: req.RewardAmount,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"offer":   offer,
	})
}

func (h *AdminHandler) DeleteOffer(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid offer id")
	}
	if err := h.svc.Offers.Delete(c.UserContext(), middleware.GetAdminID(c), id); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Offer deleted",
	})
}

// --- Ledger ---

// ReconcileUser replays a user's ledger and compares it with the stored balance
func (h *AdminHandler) ReconcileUser(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	rec, err := h.svc.Ledger.Reconcile(c.UserContext(), userID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"reconciliation": rec,
	})
}

// --- Audit log ---

func (h *AdminHandler) GetLogs(c *fiber.Ctx) error {
	logs, pagination, err := h.svc.Admin.ListLogs(c.UserContext(), pageFromQuery(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"logs":       logs,
		"pagination": pagination,
	})
}
