package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bvbit-exchange/internal/cache"
	"bvbit-exchange/internal/rates"
	"bvbit-exchange/internal/storages"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testCurrencies = []string{"RUB", "USDT", "BTC", "ETH"}

// MockStorage хранилище в памяти для тестов сервисного слоя
type MockStorage struct {
	mu           sync.Mutex
	users        map[string]*storages.User
	balances     map[int64]map[string]decimal.Decimal
	transactions map[int64]*storages.Transaction
	payments     map[int64]*storages.Payment
	storedRates  []storages.ExchangeRate
	nextID       int64
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		users:        make(map[string]*storages.User),
		balances:     make(map[int64]map[string]decimal.Decimal),
		transactions: make(map[int64]*storages.Transaction),
		payments:     make(map[int64]*storages.Payment),
	}
}

func (m *MockStorage) nextSeq() int64 {
	m.nextID++
	return m.nextID
}

func (m *MockStorage) CreateUser(ctx context.Context, user *storages.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user.ID = m.nextSeq()
	m.users[user.Username] = user

	// Инициализируем нулевые балансы
	m.balances[user.ID] = make(map[string]decimal.Decimal)
	for _, currency := range testCurrencies {
		m.balances[user.ID][currency] = decimal.Zero
	}

	return nil
}

func (m *MockStorage) GetUserByUsername(ctx context.Context, username string) (*storages.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, exists := m.users[username]; exists {
		return user, nil
	}
	return nil, nil
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*storages.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func (m *MockStorage) GetUserByID(ctx context.Context, userID int64) (*storages.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.ID == userID {
			return user, nil
		}
	}
	return nil, storages.ErrNotFound
}

func (m *MockStorage) GetBalance(ctx context.Context, userID int64, currency string) (*storages.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userBalances, exists := m.balances[userID]
	if !exists {
		return nil, storages.ErrNotFound
	}
	amount, exists := userBalances[currency]
	if !exists {
		return nil, storages.ErrNotFound
	}

	return &storages.Balance{UserID: userID, Currency: currency, Amount: amount}, nil
}

func (m *MockStorage) GetAllBalances(ctx context.Context, userID int64) ([]storages.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []storages.Balance
	for currency, amount := range m.balances[userID] {
		result = append(result, storages.Balance{UserID: userID, Currency: currency, Amount: amount})
	}
	return result, nil
}

func (m *MockStorage) CreateBalance(ctx context.Context, balance *storages.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.balances[balance.UserID]; !exists {
		m.balances[balance.UserID] = make(map[string]decimal.Decimal)
	}
	m.balances[balance.UserID][balance.Currency] = balance.Amount
	return nil
}

func (m *MockStorage) ApplyDelta(ctx context.Context, userID int64, currency string, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.applyDeltaLocked(userID, currency, delta)
}

func (m *MockStorage) applyDeltaLocked(userID int64, currency string, delta decimal.Decimal) error {
	userBalances, exists := m.balances[userID]
	if !exists {
		return storages.ErrNotFound
	}

	updated := userBalances[currency].Add(delta)
	if updated.IsNegative() {
		return storages.ErrInsufficientFunds
	}
	userBalances[currency] = updated
	return nil
}

func (m *MockStorage) CreateTransaction(ctx context.Context, tx *storages.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx.ID = m.nextSeq()
	tx.CreatedAt = time.Now()
	m.transactions[tx.ID] = tx
	return nil
}

func (m *MockStorage) GetTransaction(ctx context.Context, txID int64) (*storages.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, exists := m.transactions[txID]
	if !exists {
		return nil, storages.ErrNotFound
	}
	return tx, nil
}

func (m *MockStorage) GetUserTransactions(ctx context.Context, userID int64, limit int) ([]storages.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []storages.Transaction
	for _, tx := range m.transactions {
		if tx.UserID == userID {
			result = append(result, *tx)
		}
	}
	return result, nil
}

func (m *MockStorage) UpdateTransactionStatus(ctx context.Context, txID int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, exists := m.transactions[txID]
	if !exists {
		return storages.ErrNotFound
	}
	if tx.Status != storages.StatusPending {
		return storages.ErrAlreadyFinalized
	}
	tx.Status = status
	return nil
}

func (m *MockStorage) SettleExchange(ctx context.Context, txID int64, userID int64, fromCurrency, toCurrency string, fromAmount, toAmount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, exists := m.transactions[txID]
	if !exists {
		return storages.ErrNotFound
	}
	if tx.Status != storages.StatusPending {
		return storages.ErrAlreadyFinalized
	}

	if err := m.applyDeltaLocked(userID, fromCurrency, fromAmount.Neg()); err != nil {
		return err
	}
	if err := m.applyDeltaLocked(userID, toCurrency, toAmount); err != nil {
		return err
	}

	tx.Status = storages.StatusCompleted
	now := time.Now()
	tx.CompletedAt = &now
	return nil
}

func (m *MockStorage) CreatePayment(ctx context.Context, payment *storages.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payment.ID = m.nextSeq()
	payment.CreatedAt = time.Now()
	m.payments[payment.ID] = payment
	return nil
}

func (m *MockStorage) GetPayment(ctx context.Context, paymentID int64) (*storages.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payment, exists := m.payments[paymentID]
	if !exists {
		return nil, storages.ErrNotFound
	}
	return payment, nil
}

func (m *MockStorage) GetUserPayments(ctx context.Context, userID int64, limit int) ([]storages.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []storages.Payment
	for _, payment := range m.payments {
		if payment.UserID == userID {
			result = append(result, *payment)
		}
	}
	return result, nil
}

func (m *MockStorage) UpdatePaymentStatus(ctx context.Context, paymentID int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payment, exists := m.payments[paymentID]
	if !exists {
		return storages.ErrNotFound
	}
	if payment.Status != storages.StatusPending {
		return storages.ErrAlreadyFinalized
	}
	payment.Status = status
	return nil
}

func (m *MockStorage) ExecuteWithdrawal(ctx context.Context, payment *storages.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.applyDeltaLocked(payment.UserID, payment.Currency, payment.Amount.Neg()); err != nil {
		return err
	}

	payment.ID = m.nextSeq()
	payment.Type = storages.TransactionTypeWithdraw
	payment.Status = storages.StatusPending
	payment.CreatedAt = time.Now()
	m.payments[payment.ID] = payment
	return nil
}

func (m *MockStorage) CompleteDeposit(ctx context.Context, paymentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payment, exists := m.payments[paymentID]
	if !exists {
		return storages.ErrNotFound
	}
	if payment.Status != storages.StatusPending {
		return storages.ErrAlreadyFinalized
	}

	if err := m.applyDeltaLocked(payment.UserID, payment.Currency, payment.Amount); err != nil {
		return err
	}
	payment.Status = storages.StatusCompleted
	now := time.Now()
	payment.CompletedAt = &now
	return nil
}

func (m *MockStorage) RevertWithdrawal(ctx context.Context, paymentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payment, exists := m.payments[paymentID]
	if !exists {
		return storages.ErrNotFound
	}
	if payment.Status != storages.StatusPending {
		return storages.ErrAlreadyFinalized
	}

	if err := m.applyDeltaLocked(payment.UserID, payment.Currency, payment.Amount); err != nil {
		return err
	}
	payment.Status = storages.StatusFailed
	now := time.Now()
	payment.CompletedAt = &now
	return nil
}

func (m *MockStorage) GetAllExchangeRates(ctx context.Context) ([]storages.ExchangeRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]storages.ExchangeRate(nil), m.storedRates...), nil
}

func (m *MockStorage) UpsertExchangeRate(ctx context.Context, rate *storages.ExchangeRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.storedRates = append(m.storedRates, *rate)
	return nil
}

func (m *MockStorage) GetPlatformStats(ctx context.Context) (*storages.PlatformStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &storages.PlatformStats{
		TotalUsers:        int64(len(m.users)),
		TotalTransactions: int64(len(m.transactions)),
	}, nil
}

func (m *MockStorage) Ping(ctx context.Context) error {
	return nil
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) balance(userID int64, currency string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.balances[userID][currency]
}

// staticPrices источник котировок с фиксированной таблицей
type staticPrices struct {
	table rates.Table
}

func (p *staticPrices) GetTickers(ctx context.Context) rates.Table {
	if p.table == nil {
		return make(rates.Table)
	}
	return p.table.Copy()
}

// stubVenue площадка с мгновенным исполнением и настраиваемыми отказами
type stubVenue struct {
	placeErr   error
	confirmErr error
}

func (v *stubVenue) PlaceOrder(ctx context.Context, tx *storages.Transaction) error {
	return v.placeErr
}

func (v *stubVenue) ConfirmPayment(ctx context.Context, payment *storages.Payment) error {
	return v.confirmErr
}

func newTestService(storage storages.Storage, prices PriceSource, venue Venue) *WalletService {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	return NewWalletService(
		storage,
		prices,
		cache.NewRatesCache(time.Minute),
		venue,
		nil,
		Config{
			FeeRate:             decimal.RequireFromString("0.005"),
			PivotCurrency:       "USDT",
			SupportedCurrencies: testCurrencies,
			ConfirmTimeout:      time.Second,
		},
		logger,
	)
}

func createTestUser(t *testing.T, storage *MockStorage) *storages.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &storages.User{
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: string(hashed),
	}
	require.NoError(t, storage.CreateUser(context.Background(), user))
	return user
}

// Tests

func TestRegisterUser(t *testing.T) {
	storage := NewMockStorage()
	svc := newTestService(storage, &staticPrices{}, &stubVenue{})
	ctx := context.Background()

	err := svc.RegisterUser(ctx, "testuser", "test@example.com", "password123")
	require.NoError(t, err)

	err = svc.RegisterUser(ctx, "testuser", "another@example.com", "password123")
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestAuthenticateUser(t *testing.T) {
	storage := NewMockStorage()
	svc := newTestService(storage, &staticPrices{}, &stubVenue{})
	ctx := context.Background()

	user := createTestUser(t, storage)

	authenticated, err := svc.AuthenticateUser(ctx, user.Username, "password123")
	require.NoError(t, err)
	assert.Equal(t, user.Username, authenticated.Username)

	_, err = svc.AuthenticateUser(ctx, user.Username, "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AuthenticateUser(ctx, "unknown", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExchange(t *testing.T) {
	storage := NewMockStorage()
	prices := &staticPrices{table: make(rates.Table)}
	prices.table.Set("USDT", "BTC", decimal.RequireFromString("0.000025"))

	svc := newTestService(storage, prices, &stubVenue{})
	ctx := context.Background()

	user := createTestUser(t, storage)
	require.NoError(t, storage.ApplyDelta(ctx, user.ID, "USDT", decimal.NewFromInt(1000)))

	result, err := svc.Exchange(ctx, user.ID, "USDT", "BTC", decimal.NewFromInt(100))
	require.NoError(t, err)

	// Комиссия 0.5%: fee = 0.5, зачисление = 99.5 * 0.000025
	assert.True(t, result.Fee.Equal(decimal.RequireFromString("0.5")), "fee: %s", result.Fee)
	assert.True(t, result.Received.Equal(decimal.RequireFromString("0.0024875")), "received: %s", result.Received)
	assert.True(t, result.Rate.Equal(decimal.RequireFromString("0.000025")))

	assert.True(t, storage.balance(user.ID, "USDT").Equal(decimal.NewFromInt(900)))
	assert.True(t, storage.balance(user.ID, "BTC").Equal(decimal.RequireFromString("0.0024875")))

	tx, err := storage.GetTransaction(ctx, result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, storages.StatusCompleted, tx.Status)
	require.NotNil(t, tx.CompletedAt)
}

func TestExchangeSameCurrency(t *testing.T) {
	storage := NewMockStorage()
	svc := newTestService(storage, &staticPrices{}, &stubVenue{})
	ctx := context.Background()

	user := createTestUser(t, storage)

	_, err := svc.Exchange(ctx, user.ID, "USDT", "USDT", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrSameCurrency)
}

func TestExchangeValidation(t *testing.T) {
	storage := NewMockStorage()
	svc := newTestService(storage, &staticPrices{}, &stubVenue{})
	ctx := context.Background()

	user := createTestUser(t, storage)

	_, err := svc.Exchange(ctx, user.ID, "USDT", "BTC", decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Exchange(ctx, user.ID, "USDT", "XYZ", decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)

	// Ошибки валидации не оставляют записей
	transactions, err := storage.GetUserTransactions(ctx, user.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestExchangeInsufficientFunds(t *testing.T) {
	storage := NewMockStorage()
	prices := &staticPrices{table: make(rates.Table)}
	prices.table.Set("USDT", "BTC", decimal.RequireFromString("0.000025"))

	svc := newTestService(storage, prices, &stubVenue{})
	ctx := context.Background()

	user := createTestUser(t, storage)
	require.NoError(t, storage.ApplyDelta(ctx, user.ID, "USDT", decimal.NewFromInt(50)))

	_, err := svc.Exchange(ctx, user.ID, "USDT", "BTC", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Баланс и журнал не тронуты
	assert.True(t, storage.balance(user.ID, "USDT").Equal(decimal.NewFromInt(50)))
	transactions, err := storage.GetUserTransactions(ctx, user.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestExchangeOrderRejected(t *testing.T) {
	storage := NewMockStorage()
	prices := &staticPrices{table: make(rates.Table)}
	prices.table.Set("USDT", "BTC", decimal.RequireFromString("0.000025"))

	venue := &stubVenue{placeErr: errors.New("venue unavailable")}
	svc := newTestService(storage, prices, venue)
	ctx := context.Background()

	user := createTestUser(t, storage)
	require.NoError(t, storage.ApplyDelta(ctx, user.ID, "USDT", decimal.NewFromInt(1000)))

	_, err := svc.Exchange(ctx, user.ID, "USDT", "BTC", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrSettlementFailed)

	// Балансы не изменились, транзакция переходит в failed
	assert.True(t, storage.balance(user.ID, "USDT").Equal(decimal.NewFromInt(1000)))

	transactions, err := storage.GetUserTransactions(ctx, user.ID, 50)
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, storages.StatusFailed, transactions[0].Status)
}

// ctxAwareStorage хранилище, уважающее отмену контекста при расчетах
type ctxAwareStorage struct {
	*MockStorage
}

func (s *ctxAwareStorage) SettleExchange(ctx context.Context, txID int64, userID int64, fromCurrency, toCurrency string, fromAmount, toAmount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MockStorage.SettleExchange(ctx, txID, userID, fromCurrency, toCurrency, fromAmount, toAmount)
}

func (s *ctxAwareStorage) UpdateTransactionStatus(ctx context.Context, txID int64, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MockStorage.UpdateTransactionStatus(ctx, txID, status)
}

// cancelingVenue обрывает контекст запроса во время размещения ордера,
// имитируя отключение клиента посреди обмена
type cancelingVenue struct {
	cancel context.CancelFunc
}

func (v *cancelingVenue) PlaceOrder(ctx context.Context, tx *storages.Transaction) error {
	v.cancel()
	return nil
}

func (v *cancelingVenue) ConfirmPayment(ctx context.Context, payment *storages.Payment) error {
	return nil
}

func TestExchangeFailsTransactionAfterRequestCanceled(t *testing.T) {
	mock := NewMockStorage()
	storage := &ctxAwareStorage{MockStorage: mock}

	prices := &staticPrices{table: make(rates.Table)}
	prices.table.Set("USDT", "BTC", decimal.RequireFromString("0.000025"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := newTestService(storage, prices, &cancelingVenue{cancel: cancel})

	user := createTestUser(t, mock)
	require.NoError(t, mock.ApplyDelta(context.Background(), user.ID, "USDT", decimal.NewFromInt(1000)))

	_, err := svc.Exchange(ctx, user.ID, "USDT", "BTC", decimal.NewFromInt(100))
	require.Error(t, err)

	// Pending-запись обязана получить терминальный статус даже после
	// отмены контекста запроса, балансы не тронуты
	transactions, err := mock.GetUserTransactions(context.Background(), user.ID, 50)
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, storages.StatusFailed, transactions[0].Status)
	assert.True(t, mock.balance(user.ID, "USDT").Equal(decimal.NewFromInt(1000)))
}

// brokenFinalizeStorage хранилище, у которого отказывает финализация депозита
type brokenFinalizeStorage struct {
	*MockStorage
}

func (s *brokenFinalizeStorage) CompleteDeposit(ctx context.Context, paymentID int64) error {
	return errors.New("storage unavailable")
}

func TestDepositFailedWhenFinalizationErrors(t *testing.T) {
	mock := NewMockStorage()
	storage := &brokenFinalizeStorage{MockStorage: mock}

	svc := newTestService(storage, &staticPrices{}, &stubVenue{})
	ctx := context.Background()

	user := createTestUser(t, mock)

	payment, err := svc.Deposit(ctx, user.ID, "USDT", decimal.NewFromInt(100), "card", "")
	require.NoError(t, err)

	svc.Wait()

	// Платеж не завис в pending: ошибка финализации переводит его в failed
	stored, err := mock.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, storages.StatusFailed, stored.Status)
	assert.True(t, mock.balance(user.ID, "USDT").IsZero())
}

func TestExchangeUsesStoredRateFallback(t *testing.T) {
	storage := NewMockStorage()
	ctx := context.Background()

	// Живых котировок нет, работает сохраненная базовая пара
	require.NoError(t, storage.UpsertExchangeRate(ctx, &storages.ExchangeRate{
		FromCurrency: "RUB",
		ToCurrency:   "USDT",
		Rate:         decimal.RequireFromString("0.011"),
	}))

	svc := newTestService(storage, &staticPrices{}, &stubVenue{})

	user := createTestUser(t, storage)
	require.NoError(t, storage.ApplyDelta(ctx, user.ID, "RUB", decimal.NewFromInt(10000)))

	result, err := svc.Exchange(ctx, user.ID, "RUB", "USDT", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, result.Rate.Equal(decimal.RequireFromString("0.011")))
}

func TestDepositCompletesAfterConfirmation(t *testing.T) {
	storage := NewMockStorage()
	svc := newTestService(storage, &staticPrices{}, &stubVenue{})
	ctx := context.Background()

	user := createTestUser(t, storage)

	payment, err := svc.Deposit(ctx, user.ID, "USDT", decimal.NewFromInt(100), "card", "")
	require.NoError(t, err)
	assert.Equal(t, storages.StatusPending, payment.Status)

	// Дожидаемся фонового подтверждения
	svc.Wait()

	stored, err := storage.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, storages.StatusCompleted, stored.Status)
	assert.True(t, storage.balance(user.ID, "USDT").Equal(decimal.NewFromInt(100)))
}

func TestDepositValidation(t *testing.T) {
	storage := NewMockStorage()
	svc := newTestService(storage, &staticPrices{}, &stubVenue{})
	ctx := context.Background()

	user := createTestUser(t, storage)

	_, err := svc.Deposit(ctx, user.ID, "USDT", decimal.Zero, "card", "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Deposit(ctx, user.ID, "XYZ", decimal.NewFromInt(10), "card", "")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestWithdrawReservesFunds(t *testing.T) {
	storage := NewMockStorage()
	svc := newTestService(storage, &staticPrices{}, &stubVenue{})
	ctx := context.Background()

	user := createTestUser(t, storage)
	require.NoError(t, storage.ApplyDelta(ctx, user.ID, "USDT", decimal.NewFromInt(100)))

	payment, err := svc.Withdraw(ctx, user.ID, "USDT", decimal.NewFromInt(40), "crypto", "0xabc")
	require.NoError(t, err)

	// Средства списаны сразу, платеж завершается после подтверждения
	svc.Wait()

	stored, err := storage.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, storages.StatusCompleted, stored.Status)
	assert.True(t, storage.balance(user.ID, "USDT").Equal(decimal.NewFromInt(60)))
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	storage := NewMockStorage()
	svc := newTestService(storage, &staticPrices{}, &stubVenue{})
	ctx := context.Background()

	user := createTestUser(t, storage)
	require.NoError(t, storage.ApplyDelta(ctx, user.ID, "USDT", decimal.NewFromInt(10)))

	_, err := svc.Withdraw(ctx, user.ID, "USDT", decimal.NewFromInt(100), "crypto", "0xabc")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Отказ не оставляет платежа и не трогает баланс
	assert.True(t, storage.balance(user.ID, "USDT").Equal(decimal.NewFromInt(10)))
	payments, err := storage.GetUserPayments(ctx, user.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestWithdrawRevertedOnConfirmationFailure(t *testing.T) {
	storage := NewMockStorage()
	venue := &stubVenue{confirmErr: errors.New("rejected by processor")}
	svc := newTestService(storage, &staticPrices{}, venue)
	ctx := context.Background()

	user := createTestUser(t, storage)
	require.NoError(t, storage.ApplyDelta(ctx, user.ID, "USDT", decimal.NewFromInt(100)))

	payment, err := svc.Withdraw(ctx, user.ID, "USDT", decimal.NewFromInt(40), "crypto", "0xabc")
	require.NoError(t, err)

	svc.Wait()

	// Платеж помечен failed, зарезервированные средства возвращены
	stored, err := storage.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, storages.StatusFailed, stored.Status)
	assert.True(t, storage.balance(user.ID, "USDT").Equal(decimal.NewFromInt(100)))
}

func TestDepositFailedOnConfirmationFailure(t *testing.T) {
	storage := NewMockStorage()
	venue := &stubVenue{confirmErr: errors.New("rejected by processor")}
	svc := newTestService(storage, &staticPrices{}, venue)
	ctx := context.Background()

	user := createTestUser(t, storage)

	payment, err := svc.Deposit(ctx, user.ID, "USDT", decimal.NewFromInt(100), "card", "")
	require.NoError(t, err)

	svc.Wait()

	stored, err := storage.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, storages.StatusFailed, stored.Status)
	assert.True(t, storage.balance(user.ID, "USDT").IsZero())
}

func TestConcurrentDeltasNeverGoNegative(t *testing.T) {
	storage := NewMockStorage()
	ctx := context.Background()

	user := createTestUser(t, storage)
	require.NoError(t, storage.ApplyDelta(ctx, user.ID, "USDT", decimal.NewFromInt(10)))

	// 100 конкурентных списаний по 1 при балансе 10: ровно 10 проходят
	var wg sync.WaitGroup
	var succeeded int64
	var mu sync.Mutex

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := storage.ApplyDelta(ctx, user.ID, "USDT", decimal.NewFromInt(-1)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, succeeded)
	assert.True(t, storage.balance(user.ID, "USDT").IsZero())
}

func TestGetUserBalancesIncludesZeroCurrencies(t *testing.T) {
	storage := NewMockStorage()
	svc := newTestService(storage, &staticPrices{}, &stubVenue{})
	ctx := context.Background()

	user := createTestUser(t, storage)
	require.NoError(t, storage.ApplyDelta(ctx, user.ID, "BTC", decimal.NewFromInt(1)))

	balances, err := svc.GetUserBalances(ctx, user.ID)
	require.NoError(t, err)

	require.Len(t, balances, len(testCurrencies))
	assert.True(t, balances["BTC"].Equal(decimal.NewFromInt(1)))
	assert.True(t, balances["RUB"].IsZero())
}
