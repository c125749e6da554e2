package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/monito/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(RecoveryMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		v1.POST("/match", handler.Match)
		v1.POST("/resolve", handler.Resolve)
		v1.POST("/resolve/batch", handler.ResolveBatch)

		units := v1.Group("/units")
		{
			units.GET("", handler.ListUnits)
			units.GET("/convert", handler.ConvertUnits)
			units.POST("/unit-price", handler.UnitPrice)
		}

		v1.POST("/deals/compare", handler.CompareDeals)

		products := v1.Group("/products")
		{
			products.POST("", handler.CreateProduct)
			products.GET("", handler.ListProducts)
			products.GET("/:id", handler.GetProduct)
			products.GET("/:id/aliases", handler.ListProductAliases)
			products.GET("/:id/prices", handler.ActivePrices)
			products.GET("/:id/prices/:supplierId", handler.PriceHistory)
		}

		aliases := v1.Group("/aliases")
		{
			aliases.POST("", handler.CreateAlias)
			aliases.DELETE("/:id", handler.DeleteAlias)
		}

		prices := v1.Group("/prices")
		{
			prices.POST("/ingest", handler.IngestPrices)
			prices.POST("/upload", handler.UploadPriceList)
		}
	}

	return router
}
