package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Exchange ExchangeConfig
	Bybit    BybitConfig
	Payments PaymentsConfig
	Cache    CacheConfig
	Stream   StreamConfig
	Kafka    KafkaConfig
	Logger   LoggerConfig
}

// ServerConfig содержит конфигурацию сервера
type ServerConfig struct {
	HTTPPort string
	GinMode  string
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig содержит конфигурацию JWT
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// ExchangeConfig содержит конфигурацию обмена: комиссия, опорная валюта
// и множество поддерживаемых валют
type ExchangeConfig struct {
	FeeRate             decimal.Decimal
	PivotCurrency       string
	SupportedCurrencies []string
}

// BybitConfig содержит конфигурацию источника котировок
type BybitConfig struct {
	Enabled bool
	Assets  []string
}

// PaymentsConfig содержит настройки подтверждения платежей
type PaymentsConfig struct {
	ConfirmDelay   time.Duration
	ConfirmTimeout time.Duration
}

// CacheConfig содержит конфигурацию кеша курсов
type CacheConfig struct {
	RatesTTL time.Duration
}

// StreamConfig содержит настройки WebSocket-трансляции
type StreamConfig struct {
	Interval time.Duration
}

// KafkaConfig содержит конфигурацию Kafka
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	TransferThreshold decimal.Decimal
}

// LoggerConfig содержит конфигурацию логгера
type LoggerConfig struct {
	Level string
}

// Load загружает конфигурацию из файла окружения
func Load(configPath string) (*Config, error) {
	// Загрузка переменных окружения из файла
	if configPath != "" {
		if err := godotenv.Load(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg := &Config{}

	// Server
	cfg.Server.HTTPPort = getEnv("HTTP_PORT", DefaultHTTPPort)
	cfg.Server.GinMode = getEnv("GIN_MODE", DefaultGinMode)

	// Database
	cfg.Database.Host = getEnv("DB_HOST", DefaultDBHost)
	cfg.Database.Port = getEnvInt("DB_PORT", DefaultDBPort)
	cfg.Database.User = getEnv("DB_USER", DefaultDBUser)
	cfg.Database.Password = getEnv("DB_PASSWORD", DefaultDBPassword)
	cfg.Database.DBName = getEnv("DB_NAME", DefaultDBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", DefaultDBSSLMode)
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", DefaultDBMaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", DefaultDBMaxIdleConns)
	cfg.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", DefaultDBConnMaxLifetime)

	// JWT
	cfg.JWT.Secret = getEnv("JWT_SECRET", DefaultJWTSecret)
	cfg.JWT.Expiration = getEnvDuration("JWT_EXPIRATION", DefaultJWTExpiration)

	// Exchange
	cfg.Exchange.FeeRate = getEnvDecimal("EXCHANGE_FEE_RATE", DefaultFeeRate)
	cfg.Exchange.PivotCurrency = getEnv("EXCHANGE_PIVOT_CURRENCY", DefaultPivotCurrency)
	cfg.Exchange.SupportedCurrencies = getEnvList("EXCHANGE_CURRENCIES", DefaultSupportedCurrencies)

	// Bybit
	cfg.Bybit.Enabled = getEnvBool("BYBIT_ENABLED", DefaultBybitEnabled)
	cfg.Bybit.Assets = getEnvList("BYBIT_ASSETS", DefaultBybitAssets)

	// Payments
	cfg.Payments.ConfirmDelay = getEnvDuration("PAYMENT_CONFIRM_DELAY", DefaultPaymentConfirmDelay)
	cfg.Payments.ConfirmTimeout = getEnvDuration("PAYMENT_CONFIRM_TIMEOUT", DefaultPaymentConfirmTimeout)

	// Cache
	cfg.Cache.RatesTTL = getEnvDuration("CACHE_RATES_TTL", DefaultCacheRatesTTL)

	// Stream
	cfg.Stream.Interval = getEnvDuration("STREAM_INTERVAL", DefaultStreamInterval)

	// Kafka
	cfg.Kafka.Brokers = getEnvList("KAFKA_BROKERS", DefaultKafkaBrokers)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", DefaultKafkaTopic)
	cfg.Kafka.TransferThreshold = getEnvDecimal("KAFKA_TRANSFER_THRESHOLD", DefaultKafkaTransferThreshold)

	// Logger
	cfg.Logger.Level = getEnv("LOG_LEVEL", DefaultLogLevel)

	return cfg, nil
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool получает булеву переменную окружения
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения типа duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvDecimal получает переменную окружения как точное десятичное число
func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	value := getEnv(key, defaultValue)
	if parsed, err := decimal.NewFromString(value); err == nil {
		return parsed
	}
	parsed, _ := decimal.NewFromString(defaultValue)
	return parsed
}

// getEnvList получает переменную окружения как список значений через запятую
func getEnvList(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Server.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET must be set to a secure value")
	}

	if c.Exchange.FeeRate.IsNegative() || c.Exchange.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("EXCHANGE_FEE_RATE must be in [0, 1)")
	}

	if len(c.Exchange.SupportedCurrencies) == 0 {
		return fmt.Errorf("EXCHANGE_CURRENCIES must not be empty")
	}

	pivotSupported := false
	for _, currency := range c.Exchange.SupportedCurrencies {
		if currency == c.Exchange.PivotCurrency {
			pivotSupported = true
			break
		}
	}
	if !pivotSupported {
		return fmt.Errorf("EXCHANGE_PIVOT_CURRENCY %s must be in EXCHANGE_CURRENCIES", c.Exchange.PivotCurrency)
	}

	if _, err := logrus.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Logger.Level)
	}

	return nil
}
