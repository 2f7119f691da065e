package main

import (
	"log"
	"os"

	"storefront/internal/database"
	"storefront/internal/gateway"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDecimal(key, fallback string) decimal.Decimal {
	raw := envOr(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Fatalf("Invalid decimal for %s: %q", key, raw)
	}
	return d
}

// @title           Storefront Order API
// @version         1.0
// @description     Order lifecycle, checkout and inventory reservation API.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "storefront")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Payment gateway client
	gw := gateway.NewHTTPGateway(
		envOr("GATEWAY_BASE_URL", "http://localhost:9090"),
		os.Getenv("GATEWAY_API_KEY"),
	)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	cartRepo := repository.NewCartRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	taxRuleRepo := repository.NewTaxRuleRepository(db)

	shippingPolicy := service.TieredShippingPolicy{
		StandardFee: envDecimal("SHIPPING_STANDARD_FEE", "5.00"),
		ExpressFee:  envDecimal("SHIPPING_EXPRESS_FEE", "15.00"),
		FreeOver:    envDecimal("FREE_SHIPPING_THRESHOLD", "100.00"),
	}
	taxPolicy := service.TableTaxPolicy{
		Rules:        taxRuleRepo,
		FallbackRate: envDecimal("TAX_FALLBACK_RATE", "0.08"),
	}

	inventoryService := service.NewInventoryService(inventoryRepo, txManager, wsHub)
	cartService := service.NewCartService(cartRepo, catalogRepo, inventoryRepo)
	orderService := service.NewOrderService(orderRepo, paymentRepo, inventoryService, txManager, wsHub)
	paymentService := service.NewPaymentService(
		paymentRepo, orderRepo, inventoryService, gw, txManager, wsHub,
		envOr("CURRENCY", "USD"),
		envOr("GATEWAY_NOTIFY_URL", "http://localhost:8080/api/webhooks/payment"),
	)
	checkoutService := service.NewCheckoutService(
		cartService, paymentService, inventoryService,
		orderRepo, cartRepo, addressRepo,
		shippingPolicy, taxPolicy, txManager, wsHub,
	)

	// Initialize Handlers
	checkoutHandler := handler.NewCheckoutHandler(cartService, checkoutService)
	orderHandler := handler.NewOrderHandler(orderService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	checkoutHandler.RegisterRoutes(router.Group(""))
	orderHandler.RegisterRoutes(router.Group(""))
	paymentHandler.RegisterRoutes(router.Group(""))
	inventoryHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "8080")

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
