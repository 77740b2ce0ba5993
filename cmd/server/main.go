package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/earnhub/backend/internal/clock"
	"github.com/earnhub/backend/internal/config"
	"github.com/earnhub/backend/internal/handler"
	"github.com/earnhub/backend/internal/logger"
	"github.com/earnhub/backend/internal/middleware"
	"github.com/earnhub/backend/internal/repository"
	"github.com/earnhub/backend/internal/repository/memory"
	"github.com/earnhub/backend/internal/service"
	"github.com/earnhub/backend/internal/telegram"
	"github.com/earnhub/backend/internal/ton"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Server.LogLevel, cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	repo, closeStore, err := openStore(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("failed to open store", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	defer closeStore()

	calendar := clock.NewCalendar(clock.System{}, cfg.App.Location)

	// Create services
	settingsSvc := service.NewSettingsService(repo, zlog)
	adminSvc := service.NewAdminService(repo, calendar, zlog)
	userSvc := service.NewUserService(repo)
	ledgerSvc := service.NewLedgerService(repo, settingsSvc, calendar, zlog)
	quotaSvc := service.NewQuotaService(repo, settingsSvc, calendar)
	offerSvc := service.NewOfferService(repo, calendar, zlog)
	earningSvc := service.NewEarningService(repo, ledgerSvc, quotaSvc, offerSvc, settingsSvc, zlog)
	withdrawalSvc := service.NewWithdrawalService(repo, ledgerSvc, calendar, ton.NetworkFor(cfg.TON.Testnet), zlog)

	// Set admin service on the services that write audit logs (to avoid circular dependency)
	settingsSvc.SetAdminService(adminSvc)
	offerSvc.SetAdminService(adminSvc)
	withdrawalSvc.SetAdminService(adminSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := adminSvc.EnsureAdmins(ctx, cfg.App.AdminIDs); err != nil {
		zlog.Fatal("failed to seed admins", zap.Error(err))
	}

	// Create Telegram bot
	bot, err := telegram.NewBot(cfg, userSvc, ledgerSvc, quotaSvc, zlog)
	if err != nil {
		zlog.Warn("failed to create telegram bot", zap.Error(err))
	} else {
		withdrawalSvc.SetNotifier(bot)
		zlog.Info("telegram bot initialized", zap.String("username", bot.GetBotUsername()))
	}

	h := handler.New(handler.Services{
		Users:       userSvc,
		Settings:    settingsSvc,
		Ledger:      ledgerSvc,
		Quota:       quotaSvc,
		Earnings:    earningSvc,
		Offers:      offerSvc,
		Withdrawals: withdrawalSvc,
		Admin:       adminSvc,
	}, repo, zlog)

	limiter := middleware.NewUserLimiter(cfg.App.RateLimitRPS, cfg.App.RateLimitBurst)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Telegram-Init-Data",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	handler.Register(app, h, handler.RouteConfig{
		Auth: middleware.AuthConfig{
			BotToken: cfg.Telegram.BotToken,
			MaxAge:   cfg.Telegram.InitDataMaxAge,
		},
		Limiter: limiter,
	})

	// Start Telegram bot long polling
	if bot != nil {
		go bot.StartPolling(ctx)
		zlog.Info("telegram bot started with long polling")
	}

	go limiter.Run(ctx, config.RateLimiterCleanupInterval)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zlog.Info("shutting down server")
		cancel()
		if err := app.ShutdownWithTimeout(config.ShutdownTimeout); err != nil {
			zlog.Warn("shutdown did not complete cleanly", zap.Error(err))
		}
	}()

	// Start server
	zlog.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("timezone", cfg.App.Timezone))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}

// store is what the services and the health check need from persistence.
type store interface {
	service.Store
	handler.Pinger
}

func openStore(cfg config.DatabaseConfig, zlog *zap.Logger) (store, func(), error) {
	if cfg.Driver == config.DriverMemory {
		zlog.Warn("using in-memory store; data is lost on restart")
		return memory.New(clock.System{}), func() {}, nil
	}

	if cfg.AutoMigrate {
		if err := repository.Migrate(cfg.DSN()); err != nil {
			return nil, nil, err
		}
	}

	repo, err := repository.New(cfg.DSN(), repository.Options{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, nil, err
	}
	return repo, func() { repo.Close() }, nil
}
