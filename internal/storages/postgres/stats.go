package postgres

import (
	"context"
	"fmt"

	"bvbit-exchange/internal/storages"
	"github.com/shopspring/decimal"
)

// GetPlatformStats возвращает агрегированную статистику платформы:
// число пользователей, завершенные транзакции, собранные комиссии
// и суммарные балансы по валютам
func (s *PostgresStorage) GetPlatformStats(ctx context.Context) (*storages.PlatformStats, error) {
	stats := &storages.PlatformStats{
		TotalFees:        decimal.Zero,
		VolumeByCurrency: make(map[string]decimal.Decimal),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM transactions WHERE status = $1),
			(SELECT COALESCE(SUM(fee), 0) FROM transactions WHERE status = $1)
	`, storages.StatusCompleted).Scan(
		&stats.TotalUsers,
		&stats.TotalTransactions,
		&stats.TotalFees,
	)

	if err != nil {
		s.logger.Errorf("Failed to get platform stats: %v", err)
		return nil, fmt.Errorf("failed to get platform stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT currency, COALESCE(SUM(amount), 0)
		FROM balances
		GROUP BY currency
	`)
	if err != nil {
		s.logger.Errorf("Failed to query volume by currency: %v", err)
		return nil, fmt.Errorf("failed to query volume by currency: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var currency string
		var volume decimal.Decimal
		if err := rows.Scan(&currency, &volume); err != nil {
			s.logger.Errorf("Failed to scan volume row: %v", err)
			return nil, fmt.Errorf("failed to scan volume row: %w", err)
		}
		stats.VolumeByCurrency[currency] = volume
	}

	if err = rows.Err(); err != nil {
		s.logger.Errorf("Error iterating volume rows: %v", err)
		return nil, fmt.Errorf("error iterating volume rows: %w", err)
	}

	return stats, nil
}
