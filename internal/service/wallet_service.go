package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bvbit-exchange/internal/cache"
	"bvbit-exchange/internal/exchange"
	"bvbit-exchange/internal/orders"
	"bvbit-exchange/internal/rates"
	"bvbit-exchange/internal/storages"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// PriceSource источник котировок; всегда возвращает рабочую таблицу
type PriceSource interface {
	GetTickers(ctx context.Context) rates.Table
}

// Venue внешняя площадка: исполнение ордеров и подтверждение платежей
type Venue interface {
	orders.Placer
	orders.Confirmer
}

// Notifier отправляет уведомления о крупных операциях
type Notifier interface {
	SendLargeTransferNotification(ctx context.Context, userID int64, transferType, fromCurrency, toCurrency string, amount, fee decimal.Decimal) error
}

// Config параметры обмена и расчетов
type Config struct {
	FeeRate             decimal.Decimal
	PivotCurrency       string
	SupportedCurrencies []string
	ConfirmTimeout      time.Duration
}

// ExchangeResult итог успешного обмена
type ExchangeResult struct {
	TransactionID int64
	Rate          decimal.Decimal
	Fee           decimal.Decimal
	Received      decimal.Decimal
	NewBalances   map[string]decimal.Decimal
}

// WalletService сервисный слой: оркестрация обменов, пополнений и выводов
type WalletService struct {
	storage    storages.Storage
	prices     PriceSource
	resolver   *rates.Resolver
	ratesCache *cache.RatesCache
	venue      Venue
	notifier   Notifier
	cfg        Config
	supported  map[string]bool
	logger     *logrus.Logger
	settling   sync.WaitGroup
}

// NewWalletService создает новый экземпляр сервиса
func NewWalletService(
	storage storages.Storage,
	prices PriceSource,
	ratesCache *cache.RatesCache,
	venue Venue,
	notifier Notifier,
	cfg Config,
	logger *logrus.Logger,
) *WalletService {
	supported := make(map[string]bool, len(cfg.SupportedCurrencies))
	for _, currency := range cfg.SupportedCurrencies {
		supported[currency] = true
	}

	return &WalletService{
		storage:    storage,
		prices:     prices,
		resolver:   rates.NewResolver(cfg.PivotCurrency),
		ratesCache: ratesCache,
		venue:      venue,
		notifier:   notifier,
		cfg:        cfg,
		supported:  supported,
		logger:     logger,
	}
}

// Wait дожидается завершения фоновых расчетов по платежам
func (s *WalletService) Wait() {
	s.settling.Wait()
}

// RegisterUser регистрирует нового пользователя
func (s *WalletService) RegisterUser(ctx context.Context, username, email, password string) error {
	// Проверяем, не существует ли уже пользователь
	existingUser, _ := s.storage.GetUserByUsername(ctx, username)
	if existingUser != nil {
		return ErrUsernameExists
	}

	existingUser, _ = s.storage.GetUserByEmail(ctx, email)
	if existingUser != nil {
		return ErrEmailExists
	}

	// Хешируем пароль
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Errorf("Failed to hash password: %v", err)
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// Создаем пользователя
	user := &storages.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Infof("User registered successfully: %s", username)
	return nil
}

// AuthenticateUser аутентифицирует пользователя
func (s *WalletService) AuthenticateUser(ctx context.Context, username, password string) (*storages.User, error) {
	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	// Проверяем пароль
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warnf("Failed authentication attempt for user: %s", username)
		return nil, ErrInvalidCredentials
	}

	s.logger.Infof("User authenticated successfully: %s", username)
	return user, nil
}

// GetUserBalances возвращает балансы пользователя по всем поддерживаемым валютам
func (s *WalletService) GetUserBalances(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	balances, err := s.storage.GetAllBalances(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}

	result := make(map[string]decimal.Decimal, len(s.cfg.SupportedCurrencies))
	for _, currency := range s.cfg.SupportedCurrencies {
		result[currency] = decimal.Zero
	}
	for _, balance := range balances {
		result[balance.Currency] = balance.Amount
	}

	return result, nil
}

// GetExchangeRates возвращает актуальную таблицу курсов (кеш или источник)
func (s *WalletService) GetExchangeRates(ctx context.Context) (rates.Table, error) {
	return s.rateTable(ctx)
}

// rateTable собирает таблицу курсов: сохраненные базовые пары из БД,
// поверх них живые котировки. Результат кешируется на время TTL, чтобы
// не дергать внешний источник на каждый запрос.
func (s *WalletService) rateTable(ctx context.Context) (rates.Table, error) {
	if table, ok := s.ratesCache.Get(); ok {
		s.logger.Debug("Returning exchange rates from cache")
		return table, nil
	}

	table := make(rates.Table)

	stored, err := s.storage.GetAllExchangeRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stored exchange rates: %w", err)
	}
	for _, rate := range stored {
		table.Set(rate.FromCurrency, rate.ToCurrency, rate.Rate)
	}

	// Живые котировки важнее сохраненных базовых пар
	table.Merge(s.prices.GetTickers(ctx))

	s.ratesCache.Set(table)
	return table.Copy(), nil
}

// Exchange обменивает валюту: проверяет условия, резервирует транзакцию,
// размещает ордер и атомарно проводит расчет по балансам
func (s *WalletService) Exchange(ctx context.Context, userID int64, fromCurrency, toCurrency string, amount decimal.Decimal) (*ExchangeResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	// Одинаковые валюты отклоняются до обращения к курсам
	if fromCurrency == toCurrency {
		return nil, ErrSameCurrency
	}

	if !s.supported[fromCurrency] || !s.supported[toCurrency] {
		return nil, ErrUnsupportedCurrency
	}

	// Предварительная проверка достаточности средств: ошибки валидации
	// не должны оставлять записей
	balance, err := s.storage.GetBalance(ctx, userID, fromCurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance == nil || balance.Amount.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	table, err := s.rateTable(ctx)
	if err != nil {
		return nil, err
	}

	rate := s.resolver.Resolve(fromCurrency, toCurrency, table)
	quote := exchange.Convert(amount, rate, s.cfg.FeeRate)

	// Создаем транзакцию в статусе pending
	tx := &storages.Transaction{
		UserID:       userID,
		Type:         storages.TransactionTypeExchange,
		FromCurrency: fromCurrency,
		ToCurrency:   toCurrency,
		FromAmount:   amount,
		ToAmount:     quote.Received,
		ExchangeRate: rate,
		Fee:          quote.Fee,
		Status:       storages.StatusPending,
	}
	if err := s.storage.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	// Размещаем ордер на внешней площадке
	if err := s.venue.PlaceOrder(ctx, tx); err != nil {
		s.failTransaction(tx.ID)
		s.logger.Warnf("Order placement failed for transaction %d: %v", tx.ID, err)
		return nil, ErrSettlementFailed
	}

	// Атомарный расчет: списание, зачисление и завершение транзакции
	if err := s.storage.SettleExchange(ctx, tx.ID, userID, fromCurrency, toCurrency, amount, quote.Received); err != nil {
		s.failTransaction(tx.ID)
		if errors.Is(err, storages.ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to settle exchange: %w", err)
	}

	s.notify(ctx, userID, storages.TransactionTypeExchange, fromCurrency, toCurrency, amount, quote.Fee)

	s.logger.Infof("Exchange completed: UserID=%d, %s %s -> %s %s (rate: %s, fee: %s)",
		userID, amount, fromCurrency, quote.Received, toCurrency, rate, quote.Fee)

	newBalances, err := s.GetUserBalances(ctx, userID)
	if err != nil {
		s.logger.Warnf("Failed to get updated balances: %v", err)
		newBalances = nil
	}

	return &ExchangeResult{
		TransactionID: tx.ID,
		Rate:          rate,
		Fee:           quote.Fee,
		Received:      quote.Received,
		NewBalances:   newBalances,
	}, nil
}

// Deposit создает заявку на пополнение; зачисление происходит после
// внешнего подтверждения в фоне
func (s *WalletService) Deposit(ctx context.Context, userID int64, currency string, amount decimal.Decimal, method, details string) (*storages.Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if !s.supported[currency] {
		return nil, ErrUnsupportedCurrency
	}

	payment := &storages.Payment{
		UserID:   userID,
		Type:     storages.TransactionTypeDeposit,
		Currency: currency,
		Amount:   amount,
		Method:   method,
		Details:  details,
		Status:   storages.StatusPending,
	}

	if err := s.storage.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	s.settleAsync(payment)

	s.notify(ctx, userID, storages.TransactionTypeDeposit, currency, currency, amount, decimal.Zero)

	s.logger.Infof("Deposit created: PaymentID=%d, UserID=%d, %s %s", payment.ID, userID, amount, currency)
	return payment, nil
}

// Withdraw резервирует средства и создает заявку на вывод; завершение
// или возврат происходят после внешнего подтверждения в фоне
func (s *WalletService) Withdraw(ctx context.Context, userID int64, currency string, amount decimal.Decimal, method, details string) (*storages.Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if !s.supported[currency] {
		return nil, ErrUnsupportedCurrency
	}

	payment := &storages.Payment{
		UserID:   userID,
		Currency: currency,
		Amount:   amount,
		Method:   method,
		Details:  details,
	}

	// Атомарно: проверка достаточности, дебет и pending-платеж.
	// При нехватке средств запись не создается.
	if err := s.storage.ExecuteWithdrawal(ctx, payment); err != nil {
		if errors.Is(err, storages.ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to execute withdrawal: %w", err)
	}

	s.settleAsync(payment)

	s.notify(ctx, userID, storages.TransactionTypeWithdraw, currency, currency, amount, decimal.Zero)

	s.logger.Infof("Withdrawal created: PaymentID=%d, UserID=%d, %s %s", payment.ID, userID, amount, currency)
	return payment, nil
}

// settleAsync запускает фоновое ожидание внешнего подтверждения платежа.
// Окно ожидания ограничено таймаутом: по его истечении пополнение
// помечается failed, а по выводу средства возвращаются на баланс.
func (s *WalletService) settleAsync(payment *storages.Payment) {
	s.settling.Add(1)

	go func() {
		defer s.settling.Done()

		// Жизнь платежа не привязана к HTTP-запросу
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ConfirmTimeout)
		defer cancel()

		if err := s.venue.ConfirmPayment(ctx, payment); err != nil {
			s.logger.Warnf("Payment %d confirmation failed: %v", payment.ID, err)
			s.failPayment(payment)
			return
		}

		// Финализация на собственном контексте: окно подтверждения могло
		// быть выбрано почти целиком
		finCtx, finCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer finCancel()

		var err error
		if payment.Type == storages.TransactionTypeDeposit {
			err = s.storage.CompleteDeposit(finCtx, payment.ID)
		} else {
			err = s.storage.UpdatePaymentStatus(finCtx, payment.ID, storages.StatusCompleted)
		}

		if err != nil {
			if errors.Is(err, storages.ErrAlreadyFinalized) {
				return
			}
			// Платеж не должен остаться pending: переводим в failed,
			// для вывода с возвратом зарезервированных средств
			s.logger.Errorf("Failed to finalize payment %d: %v", payment.ID, err)
			s.failPayment(payment)
			return
		}

		s.logger.Infof("Payment %d completed: %s %s %s", payment.ID, payment.Type, payment.Amount, payment.Currency)
	}()
}

// failPayment помечает платеж как failed; для вывода возвращает
// зарезервированные средства
func (s *WalletService) failPayment(payment *storages.Payment) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if payment.Type == storages.TransactionTypeWithdraw {
		err = s.storage.RevertWithdrawal(ctx, payment.ID)
	} else {
		err = s.storage.UpdatePaymentStatus(ctx, payment.ID, storages.StatusFailed)
	}

	if err != nil && !errors.Is(err, storages.ErrAlreadyFinalized) {
		s.logger.Errorf("Failed to mark payment %d as failed: %v", payment.ID, err)
	}
}

// failTransaction переводит транзакцию в failed, не трогая балансы.
// Работает на собственном контексте: запрос к этому моменту мог быть
// уже отменен, а pending-запись обязана получить терминальный статус.
func (s *WalletService) failTransaction(txID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.storage.UpdateTransactionStatus(ctx, txID, storages.StatusFailed); err != nil &&
		!errors.Is(err, storages.ErrAlreadyFinalized) {
		s.logger.Errorf("Failed to mark transaction %d as failed: %v", txID, err)
	}
}

// notify отправляет уведомление о крупной операции, если настроен notifier
func (s *WalletService) notify(ctx context.Context, userID int64, transferType, fromCurrency, toCurrency string, amount, fee decimal.Decimal) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendLargeTransferNotification(ctx, userID, transferType, fromCurrency, toCurrency, amount, fee); err != nil {
		s.logger.Warnf("Failed to send Kafka notification: %v", err)
	}
}

// GetTransactionHistory возвращает последние транзакции пользователя
func (s *WalletService) GetTransactionHistory(ctx context.Context, userID int64, limit int) ([]storages.Transaction, error) {
	transactions, err := s.storage.GetUserTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return transactions, nil
}

// GetPaymentHistory возвращает последние платежи пользователя
func (s *WalletService) GetPaymentHistory(ctx context.Context, userID int64, limit int) ([]storages.Payment, error) {
	payments, err := s.storage.GetUserPayments(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	return payments, nil
}

// GetPlatformStats возвращает статистику платформы
func (s *WalletService) GetPlatformStats(ctx context.Context) (*storages.PlatformStats, error) {
	stats, err := s.storage.GetPlatformStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get platform stats: %w", err)
	}
	return stats, nil
}
