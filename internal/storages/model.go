package storages

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет пользователя системы
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Balance представляет баланс пользователя в определенной валюте
type Balance struct {
	ID        int64           `db:"id"`
	UserID    int64           `db:"user_id"`
	Currency  string          `db:"currency"`
	Amount    decimal.Decimal `db:"amount"`
	UpdatedAt time.Time       `db:"updated_at"`
	CreatedAt time.Time       `db:"created_at"`
}

// Transaction представляет операцию обмена валюты
type Transaction struct {
	ID           int64           `db:"id"`
	UserID       int64           `db:"user_id"`
	Type         string          `db:"type"` // exchange, deposit, withdraw
	FromCurrency string          `db:"from_currency"`
	ToCurrency   string          `db:"to_currency"`
	FromAmount   decimal.Decimal `db:"from_amount"`
	ToAmount     decimal.Decimal `db:"to_amount"`
	ExchangeRate decimal.Decimal `db:"exchange_rate"`
	Fee          decimal.Decimal `db:"fee"`
	Status       string          `db:"status"` // pending, completed, failed
	CreatedAt    time.Time       `db:"created_at"`
	CompletedAt  *time.Time      `db:"completed_at"`
}

// Payment представляет пополнение или вывод средств с внешним подтверждением
type Payment struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	Type        string          `db:"type"` // deposit, withdraw
	Currency    string          `db:"currency"`
	Amount      decimal.Decimal `db:"amount"`
	Method      string          `db:"method"`  // card, crypto, ...
	Details     string          `db:"details"` // адрес кошелька, реквизиты
	Status      string          `db:"status"`  // pending, completed, failed
	CreatedAt   time.Time       `db:"created_at"`
	CompletedAt *time.Time      `db:"completed_at"`
}

// ExchangeRate представляет сохраненный базовый курс пары валют
type ExchangeRate struct {
	ID           int64           `db:"id"`
	FromCurrency string          `db:"from_currency"`
	ToCurrency   string          `db:"to_currency"`
	Rate         decimal.Decimal `db:"rate"`
	UpdatedAt    time.Time       `db:"updated_at"`
	CreatedAt    time.Time       `db:"created_at"`
}

// PlatformStats агрегированная статистика платформы
type PlatformStats struct {
	TotalUsers        int64                      `json:"total_users"`
	TotalTransactions int64                      `json:"total_transactions"`
	TotalFees         decimal.Decimal            `json:"total_fees"`
	VolumeByCurrency  map[string]decimal.Decimal `json:"volume_by_currency"`
}

// TransactionType определяет типы операций
const (
	TransactionTypeDeposit  = "deposit"
	TransactionTypeWithdraw = "withdraw"
	TransactionTypeExchange = "exchange"
)

// Статусы транзакций и платежей: pending переходит ровно один раз
// в completed или failed, после чего запись неизменяема
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
