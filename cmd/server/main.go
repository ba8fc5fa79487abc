package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"inventra-system/config"
	"inventra-system/internal/database"
	"inventra-system/internal/gateway/handlers"
	"inventra-system/internal/gateway/middleware"
	"inventra-system/internal/ledger"
	"inventra-system/internal/repository"
	"inventra-system/internal/utils"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.LoadConfig()
	utils.SetSecret(cfg.Auth.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	var redisClient *redis.Client
	if redisClient, err = config.NewRedisClient(cfg.Redis); err != nil {
		logger.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	engine := ledger.NewEngine(repository.NewGormRepository(db), ledger.BrandScoped, logger)

	authHandler := handlers.NewAuthHTTPHandler(db, time.Duration(cfg.Auth.TokenTTL)*time.Minute, logger)
	catalogHandler := handlers.NewCatalogHTTPHandler(db, logger)
	inventoryHandler := handlers.NewInventoryHTTPHandler(engine, redisClient, logger)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit("100-M"))

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		brands := protected.Group("/brands")
		{
			brands.POST("", catalogHandler.CreateBrand)
			brands.GET("", catalogHandler.ListBrands)
		}

		stores := protected.Group("/stores")
		{
			stores.POST("", catalogHandler.CreateStore)
			stores.GET("", catalogHandler.ListStores)
		}

		products := protected.Group("/products")
		{
			products.POST("", catalogHandler.CreateProduct)
			products.GET("", catalogHandler.ListProducts)
			products.GET("/:id", catalogHandler.GetProduct)
		}

		inventory := protected.Group("/inventory")
		{
			inventory.POST("/movements", inventoryHandler.ApplyMovement)
			inventory.GET("/movements", inventoryHandler.ListMovements)
			inventory.DELETE("/movements", inventoryHandler.PurgeMovements)
			inventory.POST("/stocks", inventoryHandler.CreateStock)
			inventory.GET("/stocks", inventoryHandler.ListStocks)
			inventory.GET("/stocks/:id", inventoryHandler.GetStock)
			inventory.POST("/stocks/:id/reserve", inventoryHandler.ReserveStock)
			inventory.POST("/stocks/:id/release", inventoryHandler.ReleaseStock)
			inventory.GET("/low-stock", inventoryHandler.ListLowStock)
			inventory.GET("/value", inventoryHandler.InventoryValue)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	addr := ":" + cfg.Server.Port
	logger.Info("starting server", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
