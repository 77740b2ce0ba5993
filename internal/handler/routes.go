package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/earnhub/backend/internal/middleware"
)

type RouteConfig struct {
	Auth    middleware.AuthConfig
	Limiter *middleware.UserLimiter
}

// Register mounts the public, user and admin APIs on app.
func Register(app *fiber.App, h *Handler, cfg RouteConfig) {
	admin := NewAdminHandler(h)
	auth := middleware.TelegramAuth(cfg.Auth)

	// Public
	app.Get("/health", h.Health)
	app.Get("/api/settings", h.GetPublicSettings)

	// Admin
	adm := app.Group("/api/admin", auth, middleware.AdminAuth(h.svc.Admin))
	adm.Get("/stats", admin.GetStats)
	adm.Get("/withdrawals", admin.ListWithdrawals)
	adm.Put("/withdrawals/:id", admin.UpdateWithdrawal)
	adm.Put("/withdrawals/:id/notes", admin.UpdateWithdrawalNotes)
	adm.Get("/settings", admin.GetSettings)
	adm.Put("/settings", admin.UpdateSettings)
	adm.Get("/cpa-offers", admin.ListOffers)
	adm.Post("/cpa-offers", admin.CreateOffer)
	adm.Put("/cpa-offers/:id", admin.UpdateOffer)
	adm.Delete("/cpa-offers/:id", admin.DeleteOffer)
	adm.Get("/users/:user_id/reconcile", admin.ReconcileUser)
	adm.Get("/logs", admin.GetLogs)

	// Protected API (requires Telegram auth)
	api := app.Group("/api", auth)

	api.Get("/user/me", h.GetMe)
	api.Get("/balance", h.GetBalance)
	api.Get("/offers", h.GetOffers)

	earnings := api.Group("/earnings")
	earnings.Get("/limits", h.GetLimits)
	earnings.Get("/history", h.GetEarningHistory)
	earnings.Get("/stats", h.GetEarningStats)

	// Rate limit only the routes that write.
	limited := func(next fiber.Handler) []fiber.Handler {
		if cfg.Limiter == nil {
			return []fiber.Handler{next}
		}
		return []fiber.Handler{middleware.RateLimit(cfg.Limiter), next}
	}
	earnings.Post("/watch-ad", limited(h.WatchAd)...)
	earnings.Post("/spin", limited(h.Spin)...)
	earnings.Post("/complete-cpa", limited(h.CompleteOffer)...)

	withdrawals := api.Group("/withdrawals")
	withdrawals.Get("/history", h.GetWithdrawalHistory)
	withdrawals.Post("/request", limited(h.RequestWithdrawal)...)
	withdrawals.Post("/cancel/:id", limited(h.CancelWithdrawal)...)
}
