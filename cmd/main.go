package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bvbit-exchange/internal/api"
	"bvbit-exchange/internal/api/middleware"
	"bvbit-exchange/internal/api/ws"
	bybitsource "bvbit-exchange/internal/bybit"
	"bvbit-exchange/internal/cache"
	"bvbit-exchange/internal/config"
	"bvbit-exchange/internal/kafka"
	"bvbit-exchange/internal/logger"
	"bvbit-exchange/internal/orders"
	"bvbit-exchange/internal/service"
	"bvbit-exchange/internal/storages"
	"bvbit-exchange/internal/storages/postgres"

	bybitapi "github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// @title BVBit Exchange API
// @version 1.0
// @description Demo cryptocurrency exchange with wallets, conversions and live quotes
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// defaultRates стартовые курсы, которые заводятся в БД при первом запуске.
// Они используются как основа до того, как подтянутся живые котировки.
var defaultRates = map[[2]string]string{
	{"USDT", "ETH"}: "0.0004",
	{"USDT", "BTC"}: "0.000025",
	{"ETH", "BTC"}:  "0.062",
	{"RUB", "USDT"}: "0.011",
}

func main() {
	// Парсинг флагов командной строки
	configPath := flag.String("c", "", "Path to config file")
	flag.Parse()

	// Загрузка конфигурации
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Валидация конфигурации
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	log := logger.New(cfg.Logger.Level)
	log.Info("Starting bvbit-exchange service...")
	log.Infof("Configuration loaded from: %s", *configPath)

	// Подключение к базе данных
	dbConfig := &postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	storage, err := postgres.New(dbConfig, cfg.Exchange.SupportedCurrencies, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer storage.Close()

	// Проверка подключения к БД
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := storage.Ping(ctx); err != nil {
		cancel()
		log.Fatalf("Database ping failed: %v", err)
	}
	cancel()
	log.Info("Database connection established")

	// Стартовые курсы валют
	if err := seedDefaultRates(storage, log); err != nil {
		log.Fatalf("Failed to seed default rates: %v", err)
	}

	// Источник котировок: боевой клиент Bybit либо синтетические цены
	var apiClient *bybitapi.Client
	if cfg.Bybit.Enabled {
		apiClient = bybitapi.NewClient()
		log.Info("Bybit price source enabled")
	} else {
		log.Warn("Bybit price source disabled, serving synthetic quotes")
	}
	priceSource := bybitsource.NewClient(apiClient, cfg.Exchange.PivotCurrency, cfg.Bybit.Assets, log)

	// Инициализация кеша курсов валют
	ratesCache := cache.NewRatesCache(cfg.Cache.RatesTTL)
	log.Info("Rates cache initialized")

	// Инициализация Kafka producer
	kafkaProducer := kafka.NewProducer(
		cfg.Kafka.Brokers,
		cfg.Kafka.Topic,
		cfg.Kafka.TransferThreshold,
		log,
	)
	defer kafkaProducer.Close()

	// Симулятор исполнения заявок и подтверждения платежей
	venue := orders.NewSimulatedVenue(cfg.Payments.ConfirmDelay, log)

	// Создание сервисного слоя
	walletService := service.NewWalletService(
		storage,
		priceSource,
		ratesCache,
		venue,
		kafkaProducer,
		service.Config{
			FeeRate:             cfg.Exchange.FeeRate,
			PivotCurrency:       cfg.Exchange.PivotCurrency,
			SupportedCurrencies: cfg.Exchange.SupportedCurrencies,
			ConfirmTimeout:      cfg.Payments.ConfirmTimeout,
		},
		log,
	)
	log.Info("Wallet service initialized")

	// Создание JWT middleware
	jwtMiddleware := middleware.NewJWTMiddleware(cfg.JWT.Secret, cfg.JWT.Expiration, log)

	// WebSocket трансляция котировок
	streamHandler := ws.NewStreamHandler(walletService, cfg.Stream.Interval, log)

	// Настройка роутера
	router := api.SetupRouter(walletService, jwtMiddleware, streamHandler, log, cfg.Server.GinMode)

	// Создание HTTP сервера
	srv := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	// Запуск HTTP сервера в горутине
	go func() {
		log.Infof("HTTP server is listening on port %s", cfg.Server.HTTPPort)
		log.Infof("Swagger documentation available at: http://localhost:%s/swagger/index.html", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Ожидание сигнала завершения
	<-done
	log.Info("Shutting down server...")

	// Graceful shutdown с таймаутом
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	// Дожидаемся фоновых расчетов по платежам
	walletService.Wait()

	log.Info("Server stopped gracefully")
}

// seedDefaultRates заводит стартовые пары курсов при запуске
func seedDefaultRates(storage storages.Storage, log *logrus.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for pair, value := range defaultRates {
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("invalid default rate for %s_%s: %w", pair[0], pair[1], err)
		}
		if err := storage.UpsertExchangeRate(ctx, &storages.ExchangeRate{
			FromCurrency: pair[0],
			ToCurrency:   pair[1],
			Rate:         rate,
		}); err != nil {
			return fmt.Errorf("seed rate %s_%s: %w", pair[0], pair[1], err)
		}
	}
	log.Infof("Seeded %d default exchange rate pairs", len(defaultRates))
	return nil
}
