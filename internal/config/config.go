package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Telegram TelegramConfig
	TON      TONConfig
	App      AppConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	AllowOrigins string
	LogLevel     string
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory". The memory store keeps nothing
	// across restarts.
	Driver       string
	URL          string
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type TelegramConfig struct {
	BotToken       string
	WebAppURL      string
	AdminChatID    int64
	InitDataMaxAge time.Duration
}

type TONConfig struct {
	Testnet bool
}

type AppConfig struct {
	// Timezone names the zone whose calendar day resets the daily quotas.
	Timezone       string
	Location       *time.Location
	AdminIDs       []int64
	RateLimitRPS   float64
	RateLimitBurst int
}

func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// LoadDatabase reads only the database settings, for tools that never
// serve mini-app traffic.
func LoadDatabase() (DatabaseConfig, error) {
	_ = godotenv.Load()

	autoMigrate, _ := strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "true"))
	maxOpen, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdle, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))

	driver := strings.ToLower(getEnv("DB_DRIVER", DriverPostgres))
	if driver != DriverPostgres && driver != DriverMemory {
		return DatabaseConfig{}, fmt.Errorf("invalid DB_DRIVER %q: want %s or %s", driver, DriverPostgres, DriverMemory)
	}

	return DatabaseConfig{
		Driver:       driver,
		URL:          getEnv("DATABASE_URL", ""),
		Host:         getEnv("DB_HOST", "localhost"),
		Port:         getEnv("DB_PORT", "5432"),
		User:         getEnv("DB_USER", "earnhub"),
		Password:     getEnv("DB_PASSWORD", "earnhub"),
		Name:         getEnv("DB_NAME", "earnhub"),
		SSLMode:      getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns: maxOpen,
		MaxIdleConns: maxIdle,
		AutoMigrate:  autoMigrate,
	}, nil
}

func Load() (*Config, error) {
	db, err := LoadDatabase()
	if err != nil {
		return nil, err
	}

	tonTestnet, _ := strconv.ParseBool(getEnv("TON_TESTNET", "false"))
	adminChatID, _ := strconv.ParseInt(getEnv("TELEGRAM_ADMIN_CHAT_ID", "0"), 10, 64)
	rps, _ := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "2"), 64)
	burst, _ := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "5"))

	maxAge, err := time.ParseDuration(getEnv("TELEGRAM_INIT_DATA_MAX_AGE", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_INIT_DATA_MAX_AGE: %w", err)
	}

	tz := getEnv("APP_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", tz, err)
	}

	botToken := getEnv("TELEGRAM_BOT_TOKEN", "")
	if botToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required to verify mini-app logins")
	}

	adminIDs, err := parseIDs(getEnv("ADMIN_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_IDS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
		},
		Database: db,
		Telegram: TelegramConfig{
			BotToken:       botToken,
			WebAppURL:      getEnv("TELEGRAM_WEBAPP_URL", ""),
			AdminChatID:    adminChatID,
			InitDataMaxAge: maxAge,
		},
		TON: TONConfig{
			Testnet: tonTestnet,
		},
		App: AppConfig{
			Timezone:       tz,
			Location:       loc,
			AdminIDs:       adminIDs,
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

const (
	RateLimiterCleanupInterval = 10 * time.Minute
	ShutdownTimeout            = 10 * time.Second
)
