package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bvbit-exchange/internal/storages"
	"github.com/shopspring/decimal"
)

// CreatePayment создает новый платеж
func (s *PostgresStorage) CreatePayment(ctx context.Context, payment *storages.Payment) error {
	query := `
		INSERT INTO payments (user_id, type, currency, amount, method, details, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		payment.UserID,
		payment.Type,
		payment.Currency,
		payment.Amount,
		payment.Method,
		payment.Details,
		payment.Status,
		now,
	).Scan(&payment.ID)

	if err != nil {
		s.logger.Errorf("Failed to create payment: %v", err)
		return fmt.Errorf("failed to create payment: %w", err)
	}

	payment.CreatedAt = now

	s.logger.Infof("Created payment: ID=%d, Type=%s, User=%d", payment.ID, payment.Type, payment.UserID)
	return nil
}

// GetPayment возвращает платеж по ID
func (s *PostgresStorage) GetPayment(ctx context.Context, paymentID int64) (*storages.Payment, error) {
	query := `
		SELECT id, user_id, type, currency, amount, method, details, status, created_at, completed_at
		FROM payments
		WHERE id = $1
	`

	var payment storages.Payment
	err := s.db.QueryRowContext(ctx, query, paymentID).Scan(
		&payment.ID,
		&payment.UserID,
		&payment.Type,
		&payment.Currency,
		&payment.Amount,
		&payment.Method,
		&payment.Details,
		&payment.Status,
		&payment.CreatedAt,
		&payment.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, storages.ErrNotFound
	}

	if err != nil {
		s.logger.Errorf("Failed to get payment: %v", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

// GetUserPayments возвращает платежи пользователя
func (s *PostgresStorage) GetUserPayments(ctx context.Context, userID int64, limit int) ([]storages.Payment, error) {
	query := `
		SELECT id, user_id, type, currency, amount, method, details, status, created_at, completed_at
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		s.logger.Errorf("Failed to query payments: %v", err)
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []storages.Payment
	for rows.Next() {
		var payment storages.Payment
		err := rows.Scan(
			&payment.ID,
			&payment.UserID,
			&payment.Type,
			&payment.Currency,
			&payment.Amount,
			&payment.Method,
			&payment.Details,
			&payment.Status,
			&payment.CreatedAt,
			&payment.CompletedAt,
		)
		if err != nil {
			s.logger.Errorf("Failed to scan payment: %v", err)
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}

	if err = rows.Err(); err != nil {
		s.logger.Errorf("Error iterating payments: %v", err)
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	return payments, nil
}

// UpdatePaymentStatus переводит платеж из pending в терминальный статус.
// Уже завершенный платеж повторно не переводится.
func (s *PostgresStorage) UpdatePaymentStatus(ctx context.Context, paymentID int64, status string) error {
	query := `
		UPDATE payments
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, status, time.Now(), paymentID, storages.StatusPending)
	if err != nil {
		s.logger.Errorf("Failed to update payment status: %v", err)
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := s.GetPayment(ctx, paymentID); err != nil {
			return err
		}
		return storages.ErrAlreadyFinalized
	}

	s.logger.Debugf("Updated payment %d status to %s", paymentID, status)
	return nil
}

// ExecuteWithdrawal атомарно резервирует средства под вывод: списывает
// сумму с баланса и создает платеж в статусе pending. Средства уходят
// из доступного баланса до внешнего подтверждения.
func (s *PostgresStorage) ExecuteWithdrawal(ctx context.Context, payment *storages.Payment) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		s.logger.Errorf("Failed to begin transaction: %v", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var balance decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT amount FROM balances
		WHERE user_id = $1 AND currency = $2
		FOR UPDATE
	`, payment.UserID, payment.Currency).Scan(&balance)

	if err == sql.ErrNoRows {
		return storages.ErrNotFound
	}

	if err != nil {
		s.logger.Errorf("Failed to get balance: %v", err)
		return fmt.Errorf("failed to get balance: %w", err)
	}

	if balance.LessThan(payment.Amount) {
		return storages.ErrInsufficientFunds
	}

	now := time.Now()

	_, err = tx.ExecContext(ctx, `
		UPDATE balances
		SET amount = amount - $1, updated_at = $2
		WHERE user_id = $3 AND currency = $4
	`, payment.Amount, now, payment.UserID, payment.Currency)

	if err != nil {
		s.logger.Errorf("Failed to reserve funds: %v", err)
		return fmt.Errorf("failed to reserve funds: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO payments (user_id, type, currency, amount, method, details, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		payment.UserID,
		storages.TransactionTypeWithdraw,
		payment.Currency,
		payment.Amount,
		payment.Method,
		payment.Details,
		storages.StatusPending,
		now,
	).Scan(&payment.ID)

	if err != nil {
		s.logger.Errorf("Failed to create withdrawal payment: %v", err)
		return fmt.Errorf("failed to create withdrawal payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Errorf("Failed to commit transaction: %v", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	payment.Type = storages.TransactionTypeWithdraw
	payment.Status = storages.StatusPending
	payment.CreatedAt = now

	s.logger.Infof("Withdrawal reserved: PaymentID=%d, User=%d, %s %s",
		payment.ID, payment.UserID, payment.Amount, payment.Currency)

	return nil
}

// CompleteDeposit атомарно зачисляет средства по платежу и завершает его
func (s *PostgresStorage) CompleteDeposit(ctx context.Context, paymentID int64) error {
	return s.settlePayment(ctx, paymentID, storages.StatusCompleted, true)
}

// RevertWithdrawal атомарно возвращает зарезервированные средства
// и помечает платеж как failed
func (s *PostgresStorage) RevertWithdrawal(ctx context.Context, paymentID int64) error {
	return s.settlePayment(ctx, paymentID, storages.StatusFailed, true)
}

// settlePayment завершает платеж в статусе status; при credit зачисляет
// сумму платежа на баланс пользователя в той же транзакции БД
func (s *PostgresStorage) settlePayment(ctx context.Context, paymentID int64, status string, credit bool) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		s.logger.Errorf("Failed to begin transaction: %v", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var payment storages.Payment
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, type, currency, amount, status
		FROM payments
		WHERE id = $1
		FOR UPDATE
	`, paymentID).Scan(
		&payment.ID,
		&payment.UserID,
		&payment.Type,
		&payment.Currency,
		&payment.Amount,
		&payment.Status,
	)

	if err == sql.ErrNoRows {
		return storages.ErrNotFound
	}

	if err != nil {
		s.logger.Errorf("Failed to get payment for settlement: %v", err)
		return fmt.Errorf("failed to get payment: %w", err)
	}

	if payment.Status != storages.StatusPending {
		return storages.ErrAlreadyFinalized
	}

	now := time.Now()

	if credit {
		_, err = tx.ExecContext(ctx, `
			UPDATE balances
			SET amount = amount + $1, updated_at = $2
			WHERE user_id = $3 AND currency = $4
		`, payment.Amount, now, payment.UserID, payment.Currency)

		if err != nil {
			s.logger.Errorf("Failed to credit balance: %v", err)
			return fmt.Errorf("failed to credit balance: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, completed_at = $2
		WHERE id = $3
	`, status, now, paymentID)

	if err != nil {
		s.logger.Errorf("Failed to finalize payment: %v", err)
		return fmt.Errorf("failed to finalize payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Errorf("Failed to commit transaction: %v", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Infof("Payment %d settled: %s %s %s (status=%s)",
		paymentID, payment.Type, payment.Amount, payment.Currency, status)

	return nil
}
