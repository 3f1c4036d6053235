package config

import "time"

// Server defaults
const (
	DefaultHTTPPort = "8080"
	DefaultGinMode  = "release"
	DefaultLogLevel = "info"
)

// Database defaults
const (
	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBUser            = "bvbit_user"
	DefaultDBPassword        = "bvbit_password"
	DefaultDBName            = "bvbit_db"
	DefaultDBSSLMode         = "disable"
	DefaultDBMaxOpenConns    = 25
	DefaultDBMaxIdleConns    = 5
	DefaultDBConnMaxLifetime = 5 * time.Minute
)

// JWT defaults
const (
	DefaultJWTSecret     = "change-me-in-production"
	DefaultJWTExpiration = 24 * time.Hour
)

// Exchange defaults
const (
	DefaultFeeRate             = "0.005" // 0.5%
	DefaultPivotCurrency       = "USDT"
	DefaultSupportedCurrencies = "RUB,USDT,BTC,ETH,BNB,SOL"
)

// Bybit defaults
const (
	DefaultBybitEnabled = true
	DefaultBybitAssets  = "BTC,ETH,BNB,SOL"
)

// Payment settlement defaults
const (
	DefaultPaymentConfirmDelay   = 2 * time.Second
	DefaultPaymentConfirmTimeout = 30 * time.Second
)

// Cache defaults
const (
	DefaultCacheRatesTTL = 5 * time.Second
)

// Stream defaults
const (
	DefaultStreamInterval = 5 * time.Second
)

// Kafka defaults
const (
	DefaultKafkaBrokers           = "localhost:9092"
	DefaultKafkaTopic             = "large-transfers"
	DefaultKafkaTransferThreshold = "30000"
)
