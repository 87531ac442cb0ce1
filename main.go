package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"campusshop/internal/config"
	"campusshop/internal/handlers"
	"campusshop/internal/middleware"
	"campusshop/internal/repositories"
	"campusshop/internal/services"
	"campusshop/internal/session"
	"campusshop/internal/shopapi"
	"campusshop/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- Session store ---
	sessionRepo, closeStore, err := openSessionRepository(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open %s session store: %v", cfg.SessionStore, err)
	}
	defer closeStore()

	// --- Initialize RabbitMQ Client ---
	// Order events are optional; the storefront keeps working without a broker.
	var publisher services.EventPublisher
	if cfg.EventsEnabled() {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange})
		if err != nil {
			log.Printf("Warning: order events disabled: %v", err)
		} else {
			defer mqClient.Close() // Ensure the connection is closed on exit
			publisher = mqClient

			log.Println("Starting RabbitMQ consumer for order events...")
			if err := mqClient.ConsumeOrderEvents(logOrderEvent); err != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", err)
			}
		}
	}

	app, sessions := buildApp(cfg, sessionRepo, publisher)

	// Idle visitor states are dropped from memory; logins stay in the store.
	stopEviction := make(chan struct{})
	go evictIdleSessions(sessions, cfg.SessionTTL, stopEviction)

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s (shop API %s)", cfg.AppPort, cfg.APIBaseURL)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")
	close(stopEviction)

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// buildApp wires services and handlers into a Fiber app. publisher may be nil.
func buildApp(cfg *config.Config, sessionRepo repositories.SessionRepository, publisher services.EventPublisher) (*fiber.App, *session.Manager) {
	// --- Remote shop API ---
	shopClient := shopapi.NewClient(shopapi.Config{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.APITimeout,
		UserAgent: "campusshop-bff",
	})

	// --- Initialize Services ---
	productService := services.NewProductService(shopClient)
	authService := services.NewAuthService(shopClient, cfg.JWTSecret, cfg.SessionTTL)
	orderService := services.NewOrderService(shopClient, publisher, cfg.RabbitMQExchange)
	sessions := session.NewManager(sessionRepo)

	// --- Initialize Handlers ---
	productHandler := handlers.NewProductHandler(productService)
	authHandler := handlers.NewAuthHandler(authService, sessions)
	cartHandler := handlers.NewCartHandler(productService)
	checkoutHandler := handlers.NewCheckoutHandler(shopClient, orderService, cfg.ClearCartAfterOrder)
	orderHandler := handlers.NewOrderHandler(orderService)

	// --- Initialize Fiber App ---
	app := fiber.New(fiber.Config{
		AppName:               "campusshop",
		DisableStartupMessage: true,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New()) // Request logger
	app.Use(cors.New(cors.Config{
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders: middleware.SessionTokenHeader,
	}))

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		events := "disabled"
		if publisher != nil {
			events = "enabled"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":       "healthy",
			"time":         time.Now().Format(time.RFC3339),
			"sessionStore": cfg.SessionStore,
			"sessions":     sessions.Len(),
			"events":       events,
		})
	})

	// --- API Routes ---
	api := app.Group("/api", middleware.SessionRequired(authService, sessions))
	productHandler.RegisterRoutes(api)
	authHandler.RegisterRoutes(api)
	cartHandler.RegisterRoutes(api)
	checkoutHandler.RegisterRoutes(api)
	orderHandler.RegisterRoutes(api)

	return app, sessions
}

// openSessionRepository selects the session store named by the configuration.
// The returned func releases its resources.
func openSessionRepository(ctx context.Context, cfg *config.Config) (repositories.SessionRepository, func(), error) {
	noop := func() {}

	switch cfg.SessionStore {
	case config.StoreMemory:
		return repositories.NewMockSessionRepository(), noop, nil

	case config.StoreSQLite, config.StorePostgres:
		dialector := sqlite.Open(cfg.DatabaseDSN)
		if cfg.SessionStore == config.StorePostgres {
			dialector = postgres.Open(cfg.DatabaseDSN)
		}
		db, err := gorm.Open(dialector, &gorm.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := repositories.NewGORMSessionRepository(db)
		if err := repo.Migrate(); err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return repo, closeDB, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		closeRedis := func() {
			client.Close()
		}
		return repositories.NewRedisSessionRepository(client, cfg.SessionTTL), closeRedis, nil
	}
	return nil, nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
}

func evictIdleSessions(sessions *session.Manager, maxIdle time.Duration, stop <-chan struct{}) {
	interval := maxIdle
	if interval > 10*time.Minute {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := sessions.Evict(context.Background(), maxIdle)
			if err != nil {
				log.Printf("Failed to evict idle sessions: %v", err)
			}
			if n > 0 {
				log.Printf("Evicted %d idle sessions", n)
			}
		}
	}
}

// logOrderEvent records order.submitted events. It is the hook for
// follow-up work such as confirmation mails.
func logOrderEvent(msg amqp.Delivery) error {
	var event services.OrderSubmittedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("failed to decode order event: %w", err)
	}
	log.Printf("Received %s event: order %d for %s, %d items, paid by %s",
		msg.RoutingKey, event.OrderID, event.CustomerEmail, event.ItemCount, event.PaymentMethod.Label())
	return nil
}
