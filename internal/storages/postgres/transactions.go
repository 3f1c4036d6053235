package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bvbit-exchange/internal/storages"
	"github.com/shopspring/decimal"
)

// CreateTransaction создает новую транзакцию
func (s *PostgresStorage) CreateTransaction(ctx context.Context, tx *storages.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, type, from_currency, to_currency, from_amount, to_amount, exchange_rate, fee, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		tx.UserID,
		tx.Type,
		tx.FromCurrency,
		tx.ToCurrency,
		tx.FromAmount,
		tx.ToAmount,
		tx.ExchangeRate,
		tx.Fee,
		tx.Status,
		now,
	).Scan(&tx.ID)

	if err != nil {
		s.logger.Errorf("Failed to create transaction: %v", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	tx.CreatedAt = now

	s.logger.Infof("Created transaction: ID=%d, Type=%s, User=%d", tx.ID, tx.Type, tx.UserID)
	return nil
}

// GetTransaction возвращает транзакцию по ID
func (s *PostgresStorage) GetTransaction(ctx context.Context, txID int64) (*storages.Transaction, error) {
	query := `
		SELECT id, user_id, type, from_currency, to_currency, from_amount, to_amount, exchange_rate, fee, status, created_at, completed_at
		FROM transactions
		WHERE id = $1
	`

	var tx storages.Transaction
	err := s.db.QueryRowContext(ctx, query, txID).Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Type,
		&tx.FromCurrency,
		&tx.ToCurrency,
		&tx.FromAmount,
		&tx.ToAmount,
		&tx.ExchangeRate,
		&tx.Fee,
		&tx.Status,
		&tx.CreatedAt,
		&tx.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, storages.ErrNotFound
	}

	if err != nil {
		s.logger.Errorf("Failed to get transaction: %v", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}

// GetUserTransactions возвращает транзакции пользователя
func (s *PostgresStorage) GetUserTransactions(ctx context.Context, userID int64, limit int) ([]storages.Transaction, error) {
	query := `
		SELECT id, user_id, type, from_currency, to_currency, from_amount, to_amount, exchange_rate, fee, status, created_at, completed_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		s.logger.Errorf("Failed to query transactions: %v", err)
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []storages.Transaction
	for rows.Next() {
		var tx storages.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Type,
			&tx.FromCurrency,
			&tx.ToCurrency,
			&tx.FromAmount,
			&tx.ToAmount,
			&tx.ExchangeRate,
			&tx.Fee,
			&tx.Status,
			&tx.CreatedAt,
			&tx.CompletedAt,
		)
		if err != nil {
			s.logger.Errorf("Failed to scan transaction: %v", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err = rows.Err(); err != nil {
		s.logger.Errorf("Error iterating transactions: %v", err)
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// UpdateTransactionStatus переводит транзакцию из pending в терминальный
// статус. Повторный перевод уже завершенной транзакции отклоняется.
func (s *PostgresStorage) UpdateTransactionStatus(ctx context.Context, txID int64, status string) error {
	query := `
		UPDATE transactions
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, status, time.Now(), txID, storages.StatusPending)
	if err != nil {
		s.logger.Errorf("Failed to update transaction status: %v", err)
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := s.GetTransaction(ctx, txID); err != nil {
			return err
		}
		return storages.ErrAlreadyFinalized
	}

	s.logger.Debugf("Updated transaction %d status to %s", txID, status)
	return nil
}

// SettleExchange выполняет расчет по обмену атомарно: списывает исходную
// валюту, зачисляет целевую и завершает транзакцию одной транзакцией БД
func (s *PostgresStorage) SettleExchange(ctx context.Context, txID int64, userID int64, fromCurrency, toCurrency string, fromAmount, toAmount decimal.Decimal) error {
	// Начинаем транзакцию
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		s.logger.Errorf("Failed to begin transaction: %v", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Получаем баланс исходной валюты с блокировкой строки
	var fromBalance decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT amount FROM balances
		WHERE user_id = $1 AND currency = $2
		FOR UPDATE
	`, userID, fromCurrency).Scan(&fromBalance)

	if err == sql.ErrNoRows {
		return storages.ErrNotFound
	}

	if err != nil {
		s.logger.Errorf("Failed to get from balance: %v", err)
		return fmt.Errorf("failed to get balance: %w", err)
	}

	// 2. Проверяем достаточность средств
	if fromBalance.LessThan(fromAmount) {
		return storages.ErrInsufficientFunds
	}

	now := time.Now()

	// 3. Уменьшаем баланс исходной валюты
	_, err = tx.ExecContext(ctx, `
		UPDATE balances
		SET amount = amount - $1, updated_at = $2
		WHERE user_id = $3 AND currency = $4
	`, fromAmount, now, userID, fromCurrency)

	if err != nil {
		s.logger.Errorf("Failed to deduct from balance: %v", err)
		return fmt.Errorf("failed to deduct balance: %w", err)
	}

	// 4. Увеличиваем баланс целевой валюты
	_, err = tx.ExecContext(ctx, `
		UPDATE balances
		SET amount = amount + $1, updated_at = $2
		WHERE user_id = $3 AND currency = $4
	`, toAmount, now, userID, toCurrency)

	if err != nil {
		s.logger.Errorf("Failed to add to balance: %v", err)
		return fmt.Errorf("failed to add balance: %w", err)
	}

	// 5. Переводим транзакцию в completed; уже завершенная не трогается
	result, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4
	`, storages.StatusCompleted, now, txID, storages.StatusPending)

	if err != nil {
		s.logger.Errorf("Failed to complete transaction record: %v", err)
		return fmt.Errorf("failed to complete transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return storages.ErrAlreadyFinalized
	}

	// 6. Коммитим транзакцию
	if err := tx.Commit(); err != nil {
		s.logger.Errorf("Failed to commit transaction: %v", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Infof("Exchange settled: User=%d, %s %s -> %s %s",
		userID, fromAmount, fromCurrency, toAmount, toCurrency)

	return nil
}
