package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/library-reservation/internal/config"     // Internal config loader
	"github.com/iliyamo/library-reservation/internal/database"   // MySQL pool construction
	"github.com/iliyamo/library-reservation/internal/gateway"    // API gateway lookup client
	"github.com/iliyamo/library-reservation/internal/handler"    // HTTP handlers
	"github.com/iliyamo/library-reservation/internal/middleware" // Redis cache and rate limiting
	"github.com/iliyamo/library-reservation/internal/queue"      // Broker consumer
	"github.com/iliyamo/library-reservation/internal/repository" // Data access layer
	"github.com/iliyamo/library-reservation/internal/router"     // Internal router setup
	"github.com/iliyamo/library-reservation/internal/service"    // Validator and queue publisher
)

func main() {
	_ = godotenv.Load() // Load .env when present; real env always wins
	cfg := config.Load()

	db, err := database.Open(database.Params{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Redis is optional: a nil client disables caching and rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; response cache and rate limiting disabled")
	}

	gw := gateway.NewClient(cfg.GatewayURL, cfg.LookupTimeout)
	repo := repository.NewReservationRepo(db)
	validator := service.NewValidator(gw)
	events := service.NewPublisher()
	defer events.Close()

	h := handler.NewReservationHandler(repo, validator, gw, events)

	// Consume reservation.created events in the background; the consumer
	// reconnects on its own and never takes the server down.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("reservation consumer stopped: %v", err)
		}
	}()

	cacheCfg := config.LoadCacheConfig()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterReservations(e, h,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewResponseCache(cacheCfg, rdb),
		middleware.NewWriteInvalidator(cacheCfg, rdb),
	)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
