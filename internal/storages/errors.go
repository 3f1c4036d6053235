package storages

import "errors"

// Ошибки хранилища, на которые опирается сервисный слой
var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyFinalized  = errors.New("record already finalized")
)
