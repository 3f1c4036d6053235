package service

import (
	"errors"

	"bvbit-exchange/internal/storages"
)

// Ошибки сервисного слоя. Ошибки валидации и нехватки средств
// возвращаются синхронно, до создания какого-либо состояния.
var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrSameCurrency        = errors.New("from_currency and to_currency must be different")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUsernameExists      = errors.New("username already exists")
	ErrEmailExists         = errors.New("email already exists")
	ErrSettlementFailed    = errors.New("order placement rejected")

	// ErrInsufficientFunds пробрасывается из хранилища как есть
	ErrInsufficientFunds = storages.ErrInsufficientFunds
)

// IsUserError сообщает, можно ли показать текст ошибки пользователю.
// Внутренние ошибки наружу не раскрываются.
func IsUserError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrSameCurrency),
		errors.Is(err, ErrUnsupportedCurrency),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUsernameExists),
		errors.Is(err, ErrEmailExists),
		errors.Is(err, ErrSettlementFailed),
		errors.Is(err, ErrInsufficientFunds):
		return true
	}
	return false
}
