package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"storefront/internal/gateway"
	"storefront/internal/handlers"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("PRODUCTS_FILE", "data/products.json")
	viper.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	viper.SetDefault("CASHFREE_BASE_URL", "https://api.cashfree.com/pg")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")
	publicBaseURL := viper.GetString("PUBLIC_BASE_URL")
	rabbitMQURL := viper.GetString("RABBITMQ_URL")
	databaseDSN := viper.GetString("DATABASE_DSN")

	// --- Product Catalog ---
	// The catalog is loaded once from the static JSON file and is read-only
	// for the rest of the process lifetime.
	catalog, err := repositories.LoadJSONCatalog(viper.GetString("PRODUCTS_FILE"))
	if err != nil {
		log.Fatalf("Failed to load product catalog: %v", err)
	}

	// --- Stores ---
	// With a DSN configured orders live in Postgres and the catalog is
	// seeded into it; otherwise the in-memory store and the JSON catalog
	// keep the process self-contained for local development.
	var orderRepo repositories.OrderRepository
	var productRepo repositories.ProductRepository = catalog
	if databaseDSN != "" {
		db, err := gorm.Open(postgres.Open(databaseDSN), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.AutoMigrate(&models.Order{}, &models.Product{}); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		orderRepo = repositories.NewGORMOrderRepository(db)

		gormCatalog := repositories.NewGORMProductCatalog(db)
		products, err := catalog.GetAll()
		if err != nil {
			log.Fatalf("Failed to read product catalog: %v", err)
		}
		if err := gormCatalog.Seed(products); err != nil {
			log.Fatalf("Failed to seed product catalog: %v", err)
		}
		productRepo = gormCatalog
		log.Println("Order store: postgres")
	} else {
		orderRepo = repositories.NewMockOrderRepository()
		log.Println("Order store: in-memory (no DATABASE_DSN configured)")
	}

	// --- RabbitMQ (optional) ---
	var mqClient *rabbitmq.Client
	if rabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: rabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
	} else {
		log.Println("RABBITMQ_URL not set, payment event publishing disabled")
	}

	// --- Payment Gateway Client ---
	if viper.GetString("CASHFREE_APP_ID") == "" || viper.GetString("CASHFREE_SECRET_KEY") == "" {
		log.Println("Warning: Cashfree credentials are not configured; gateway calls will be rejected upstream")
	}
	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:      viper.GetString("CASHFREE_BASE_URL"),
		ClientID:     viper.GetString("CASHFREE_APP_ID"),
		ClientSecret: viper.GetString("CASHFREE_SECRET_KEY"),
	})

	// --- Services ---
	productService := services.NewProductService(productRepo)
	// EventPublisher is an interface; pass nil explicitly when MQ is off so
	// the service skips publication.
	var events services.EventPublisher
	if mqClient != nil {
		events = mqClient
	}
	orderService := services.NewOrderService(orderRepo, productRepo, gatewayClient, events, services.Config{
		PublicBaseURL: publicBaseURL,
		WebhookSecret: viper.GetString("CASHFREE_WEBHOOK_SECRET"),
	})

	// --- Handlers ---
	productHandler := handlers.NewProductHandler(productService)
	paymentHandler := handlers.NewPaymentHandler(orderService)

	// --- Fiber App ---
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	api := app.Group("/api")
	productHandler.RegisterRoutes(api)
	paymentHandler.RegisterRoutes(api)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Payment Event Consumer ---
	// Fulfillment hook: in production this would send delivery emails and
	// community invites; here it records the transitions.
	if mqClient != nil {
		go func() {
			log.Println("Starting RabbitMQ consumer for payment events...")
			handler := func(msg amqp.Delivery) error {
				log.Printf("Received payment event (Tag: %d): %s", msg.DeliveryTag, string(msg.Body))
				return nil
			}
			if consumerErr := mqClient.ConsumePaymentEvents(handler); consumerErr != nil {
				log.Printf("Failed to start payment event consumer: %v", consumerErr)
			}
		}()
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
