package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shopnest/wallet-service/internal/config"
	"github.com/shopnest/wallet-service/internal/directory"
	"github.com/shopnest/wallet-service/internal/gateway"
	"github.com/shopnest/wallet-service/internal/middleware"
	"github.com/shopnest/wallet-service/internal/notification"
	"github.com/shopnest/wallet-service/internal/recharge"
	"github.com/shopnest/wallet-service/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Outside of dev
// mode a database is mandatory; in dev the in-memory repositories stand in.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var walletRepo wallet.Repository
	var rechargeRepo recharge.Repository
	var users directory.Repository
	if d.DB != nil {
		walletRepo = wallet.NewPostgresRepository(d.DB)
		rechargeRepo = recharge.NewPostgresRepository(d.DB)
		users = directory.NewPostgresRepository(d.DB)
	} else {
		walletRepo = wallet.NewMemoryRepository()
		rechargeRepo = recharge.NewMemoryRepository()
		users = directory.NewMemoryRepository()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	walletSvc := wallet.NewService(walletRepo, users, notifier, d.Cache, d.Cfg.StatsCacheTTL)

	var gw gateway.Gateway
	if d.Cfg.GatewayBaseURL != "" {
		gw = gateway.NewREST(d.Cfg.GatewayBaseURL, d.Cfg.GatewayKeyID, d.Cfg.GatewaySecret, d.Cfg.Currency, d.Cfg.GatewayTimeout)
	}
	rechargeSvc, err := recharge.NewService(rechargeRepo, walletSvc, gw, d.Cfg.Currency)
	if err != nil {
		return err
	}

	walletHandler := wallet.NewHandler(walletSvc, users)
	rechargeHandler := recharge.NewHandler(rechargeSvc, walletSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	admin := api.Group("/admin/wallet", middleware.AdminAuth(d.Cfg.JWTSecret))
	admin.Use(middleware.MutationRateLimit(d.Cache, 30))
	if d.Cache != nil {
		admin.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterWalletRoutes(admin, walletHandler)
	RegisterRechargeRoutes(admin, rechargeHandler)

	return nil
}
