package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	TelegramUserKey = "telegram_user"
	UserIDKey       = "user_id"
)

var (
	ErrMissingHash = errors.New("missing hash")
	ErrInvalidHash = errors.New("invalid hash")
	ErrAuthExpired = errors.New("auth_date expired")
	ErrInvalidDate = errors.New("invalid auth_date")
	ErrMissingUser = errors.New("missing user")
	ErrInvalidUser = errors.New("invalid user")
	ErrNoBotToken  = errors.New("bot token is not configured")
)

type TelegramInitData struct {
	QueryID      string `json:"query_id"`
	UserID       int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LanguageCode string `json:"language_code"`
	AuthDate     int64  `json:"auth_date"`
	Hash         string `json:"hash"`
}

type AuthConfig struct {
	BotToken string
	// MaxAge bounds how old auth_date may be. Zero disables the check.
	MaxAge time.Duration
	Now    func() time.Time
}

// TelegramAuth verifies the Mini App initData sent in X-Telegram-Init-Data
// or as "Authorization: tma <initData>". Without a bot token every request
// is rejected.
func TelegramAuth(cfg AuthConfig) fiber.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return func(c *fiber.Ctx) error {
		if cfg.BotToken == "" {
			return unauthorized(c, ErrNoBotToken.Error())
		}

		initData := c.Get("X-Telegram-Init-Data")
		if initData == "" {
			initData = strings.TrimPrefix(c.Get("Authorization"), "tma ")
		}

		if initData == "" {
			return unauthorized(c, "missing telegram init data")
		}

		userData, err := ValidateTelegramInitData(initData, cfg.BotToken, cfg.MaxAge, cfg.Now())
		if err != nil {
			return unauthorized(c, "invalid telegram init data: "+err.Error())
		}

		c.Locals(TelegramUserKey, userData)
		c.Locals(UserIDKey, userData.UserID)

		return c.Next()
	}
}

func ValidateTelegramInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*TelegramInitData, error) {
	// An empty key would let anyone sign initData.
	if botToken == "" {
		return nil, ErrNoBotToken
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMissingHash
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if maxAge > 0 && now.Sub(time.Unix(authDate, 0)) > maxAge {
		return nil, ErrAuthExpired
	}

	values.Del("hash")
	if !hmac.Equal([]byte(SignInitData(values, botToken)), []byte(hash)) {
		return nil, ErrInvalidHash
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return nil, ErrMissingUser
	}
	userData := &TelegramInitData{}
	if err := json.Unmarshal([]byte(userJSON), userData); err != nil || userData.UserID == 0 {
		return nil, ErrInvalidUser
	}
	userData.QueryID = values.Get("query_id")
	userData.AuthDate = authDate
	userData.Hash = hash

	return userData, nil
}

// SignInitData computes the hex hash Telegram attaches to initData. values
// must not contain the hash field itself.
func SignInitData(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+values.Get(key))
	}

	secretKey := hmac.New(sha256.New, []byte("WebAppData"))
	secretKey.Write([]byte(botToken))

	h := hmac.New(sha256.New, secretKey.Sum(nil))
	h.Write([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   msg,
		"code":    "unauthorized",
	})
}

func GetUserID(c *fiber.Ctx) int64 {
	userID, ok := c.Locals(UserIDKey).(int64)
	if !ok {
		return 0
	}
	return userID
}

func GetTelegramUser(c *fiber.Ctx) *TelegramInitData {
	userData, ok := c.Locals(TelegramUserKey).(*TelegramInitData)
	if !ok {
		return nil
	}
	return userData
}
