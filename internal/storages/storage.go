package storages

import (
	"context"

	"github.com/shopspring/decimal"
)

// Storage определяет интерфейс для работы с хранилищем данных
type Storage interface {
	// User operations
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, userID int64) (*User, error)

	// Balance operations
	GetBalance(ctx context.Context, userID int64, currency string) (*Balance, error)
	GetAllBalances(ctx context.Context, userID int64) ([]Balance, error)
	CreateBalance(ctx context.Context, balance *Balance) error
	// ApplyDelta атомарно изменяет баланс; операция, уводящая баланс
	// в минус, отклоняется без изменений
	ApplyDelta(ctx context.Context, userID int64, currency string, delta decimal.Decimal) error

	// Transaction operations
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, txID int64) (*Transaction, error)
	GetUserTransactions(ctx context.Context, userID int64, limit int) ([]Transaction, error)
	UpdateTransactionStatus(ctx context.Context, txID int64, status string) error

	// Atomic settlement of exchange: debit from, credit to, mark completed
	SettleExchange(ctx context.Context, txID int64, userID int64, fromCurrency, toCurrency string, fromAmount, toAmount decimal.Decimal) error

	// Payment operations
	CreatePayment(ctx context.Context, payment *Payment) error
	GetPayment(ctx context.Context, paymentID int64) (*Payment, error)
	GetUserPayments(ctx context.Context, userID int64, limit int) ([]Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID int64, status string) error
	// ExecuteWithdrawal атомарно резервирует средства (дебет) и создает
	// платеж в статусе pending
	ExecuteWithdrawal(ctx context.Context, payment *Payment) error
	// CompleteDeposit атомарно зачисляет средства и завершает платеж
	CompleteDeposit(ctx context.Context, paymentID int64) error
	// RevertWithdrawal атомарно возвращает зарезервированные средства
	// и помечает платеж как failed
	RevertWithdrawal(ctx context.Context, paymentID int64) error

	// Base exchange rate operations
	GetAllExchangeRates(ctx context.Context) ([]ExchangeRate, error)
	UpsertExchangeRate(ctx context.Context, rate *ExchangeRate) error

	// Platform statistics
	GetPlatformStats(ctx context.Context) (*PlatformStats, error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}
