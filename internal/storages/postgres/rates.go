package postgres

import (
	"context"
	"fmt"
	"time"

	"bvbit-exchange/internal/storages"
)

// GetAllExchangeRates возвращает все сохраненные базовые курсы
func (s *PostgresStorage) GetAllExchangeRates(ctx context.Context) ([]storages.ExchangeRate, error) {
	query := `
		SELECT id, from_currency, to_currency, rate, updated_at, created_at
		FROM exchange_rates
		ORDER BY from_currency, to_currency
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.Errorf("Failed to query exchange rates: %v", err)
		return nil, fmt.Errorf("failed to query exchange rates: %w", err)
	}
	defer rows.Close()

	var result []storages.ExchangeRate
	for rows.Next() {
		var rate storages.ExchangeRate
		err := rows.Scan(
			&rate.ID,
			&rate.FromCurrency,
			&rate.ToCurrency,
			&rate.Rate,
			&rate.UpdatedAt,
			&rate.CreatedAt,
		)
		if err != nil {
			s.logger.Errorf("Failed to scan exchange rate: %v", err)
			return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
		}
		result = append(result, rate)
	}

	if err = rows.Err(); err != nil {
		s.logger.Errorf("Error iterating exchange rates: %v", err)
		return nil, fmt.Errorf("error iterating exchange rates: %w", err)
	}

	s.logger.Debugf("Retrieved %d exchange rates", len(result))
	return result, nil
}

// UpsertExchangeRate создает или обновляет базовый курс пары валют
func (s *PostgresStorage) UpsertExchangeRate(ctx context.Context, rate *storages.ExchangeRate) error {
	query := `
		INSERT INTO exchange_rates (from_currency, to_currency, rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (from_currency, to_currency)
		DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		rate.FromCurrency,
		rate.ToCurrency,
		rate.Rate,
		now,
		now,
	).Scan(&rate.ID)

	if err != nil {
		s.logger.Errorf("Failed to upsert exchange rate: %v", err)
		return fmt.Errorf("failed to upsert exchange rate: %w", err)
	}

	rate.UpdatedAt = now

	s.logger.Infof("Upserted exchange rate: %s -> %s = %s", rate.FromCurrency, rate.ToCurrency, rate.Rate)
	return nil
}
