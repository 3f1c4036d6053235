package api

import (
	"bvbit-exchange/internal/api/handlers"
	"bvbit-exchange/internal/api/middleware"
	"bvbit-exchange/internal/api/ws"
	"bvbit-exchange/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter настраивает и возвращает роутер с всеми эндпоинтами
func SetupRouter(
	walletService *service.WalletService,
	jwtMiddleware *middleware.JWTMiddleware,
	streamHandler *ws.StreamHandler,
	logger *logrus.Logger,
	ginMode string,
) *gin.Engine {
	// Установка режима Gin
	gin.SetMode(ginMode)

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// WebSocket трансляция котировок и статистики
	router.GET("/ws", streamHandler.Handle)

	// Инициализация handlers
	authHandler := handlers.NewAuthHandler(walletService, jwtMiddleware, logger)
	walletHandler := handlers.NewWalletHandler(walletService, logger)
	exchangeHandler := handlers.NewExchangeHandler(walletService, logger)
	historyHandler := handlers.NewHistoryHandler(walletService, logger)
	statsHandler := handlers.NewStatsHandler(walletService, logger)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public routes (без авторизации)
		v1.POST("/register", authHandler.Register)
		v1.POST("/login", authHandler.Login)
		v1.GET("/stats", statsHandler.GetStats)
		v1.GET("/prices", statsHandler.GetPrices)

		// Protected routes (требуют авторизации)
		authorized := v1.Group("")
		authorized.Use(jwtMiddleware.Auth())
		{
			// Wallet operations
			authorized.GET("/balance", walletHandler.GetBalance)
			authorized.POST("/wallet/deposit", walletHandler.Deposit)
			authorized.POST("/wallet/withdraw", walletHandler.Withdraw)

			// Exchange operations
			authorized.GET("/exchange/rates", exchangeHandler.GetRates)
			authorized.POST("/exchange", exchangeHandler.Exchange)

			// History
			authorized.GET("/transactions", historyHandler.GetTransactions)
			authorized.GET("/payments", historyHandler.GetPayments)
		}
	}

	return router
}
