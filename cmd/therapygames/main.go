package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ManuelReschke/TherapyGames/app/controllers"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/billing"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/cache"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/config"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/constants"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/database"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/env"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/router"
)

// Webhook bodies are small JSON documents.
const bodyLimit = 1 << 20

func main() {
	if !env.SetupEnvFile() {
		log.Info("No .env file found, using process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		log.Fatal(err)
	}
	log.Fatal(app.Listen(fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)))
}

func NewApplication(cfg *config.Config) (*fiber.App, error) {
	db, err := database.Open(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	cacheOpts := cache.Options{Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password}
	redisClient := cache.NewClient(context.Background(), cacheOpts)
	planCache := cache.NewPlanCache(redisClient, cfg.Cache.PlanTTL)

	if cfg.Billing.SigningSecret == "" {
		log.Error("[Billing Webhook] BILLING_WEBHOOK_SECRET is not set; every webhook will be answered with 500")
	}
	outcomes := counter.NewWebhookCounter(redisClient)
	synchronizer := billing.NewSynchronizer(
		billing.Config{SigningSecret: cfg.Billing.SigningSecret, GatewayTimeout: cfg.Billing.GatewayTimeout},
		billing.DefaultPlanResolver(),
		billing.NewCachedAccountGateway(billing.NewGormAccountGateway(db), planCache),
		billing.NewGormDeliveryJournal(db),
	).WithCounter(outcomes)

	app := fiber.New(fiber.Config{
		BodyLimit: bodyLimit,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	if cfg.Metrics.User != "" {
		guard := basicauth.New(basicauth.Config{
			Authorizer: bcryptAuthorizer(cfg.Metrics.User, cfg.Metrics.PasswordHash),
		})
		app.Get(constants.BillingMetricsRoute, guard, controllers.NewWebhookMetricsController(outcomes.Snapshot).HandleWebhookMetrics)
		app.Get(constants.MetricsRoute, guard, monitor.New())
	}

	// SWAGGER / OPENAPI
	if docPath := findOpenAPIDocument(); docPath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: docPath,
			Path:     "v1",
		}))
	} else {
		log.Warn("OpenAPI document not found, /docs/api/v1 is disabled")
	}

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Webhooks:       controllers.NewBillingWebhookController(synchronizer),
		Health:         controllers.NewHealthController(pinger(db)),
		RateLimit:      cfg.Billing.RateLimit,
		LimiterStorage: newLimiterStorage(redisClient, cfg.Cache),
	})

	return app, nil
}

func bcryptAuthorizer(user, hash string) func(string, string) bool {
	return func(u, p string) bool {
		if u != user {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
	}
}

// newLimiterStorage shares limiter counters through the cache. The storage
// driver panics on an unreachable server, so it is only built after a ping.
func newLimiterStorage(client *redis.Client, cfg config.CacheConfig) fiber.Storage {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("Cache unavailable, limiter counters stay in memory: %v", err)
		return nil
	}
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		log.Warnf("Invalid CACHE_PORT %q, limiter counters stay in memory", cfg.Port)
		return nil
	}
	return redisstorage.New(redisstorage.Config{
		Host:     cfg.Host,
		Port:     port,
		Password: cfg.Password,
		Database: 1,
	})
}

func pinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return database.Ping(ctx, db)
	}
}

func findOpenAPIDocument() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/therapygames to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		candidate := path + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
