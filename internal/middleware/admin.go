package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

const (
	AdminKey   = "is_admin"
	AdminIDKey = "admin_id"
)

// AdminChecker reports whether a Telegram user may use the admin API.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// AdminAuth middleware checks if the authenticated user is an admin
func AdminAuth(admins AdminChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == 0 {
			return unauthorized(c, "unauthorized")
		}

		isAdmin, err := admins.IsAdmin(c.UserContext(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "failed to check admin status",
				"code":    "internal",
			})
		}

		if !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "access denied",
				"code":    "forbidden",
			})
		}

		c.Locals(AdminKey, true)
		c.Locals(AdminIDKey, userID)

		return c.Next()
	}
}

// GetAdminID returns the admin user ID from context
func GetAdminID(c *fiber.Ctx) int64 {
	adminID, ok := c.Locals(AdminIDKey).(int64)
	if !ok {
		return 0
	}
	return adminID
}
