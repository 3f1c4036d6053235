package cache

import (
	"sync"
	"time"

	"bvbit-exchange/internal/rates"
	"github.com/shopspring/decimal"
)

// RatesCache кеш таблицы курсов валют с ограниченным временем жизни.
// Ограничивает частоту обращений к внешнему источнику котировок.
type RatesCache struct {
	table  rates.Table
	mu     sync.RWMutex
	ttl    time.Duration
	lastUp time.Time
}

// NewRatesCache создает новый кеш
func NewRatesCache(ttl time.Duration) *RatesCache {
	return &RatesCache{
		table: make(rates.Table),
		ttl:   ttl,
	}
}

// Set сохраняет таблицу курсов в кеш
func (c *RatesCache) Set(table rates.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.table = table
	c.lastUp = time.Now()
}

// Get возвращает таблицу курсов из кеша, если она актуальна
func (c *RatesCache) Get() (rates.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if time.Since(c.lastUp) > c.ttl {
		return nil, false
	}

	// Возвращаем копию, чтобы избежать race condition
	return c.table.Copy(), true
}

// GetRate возвращает конкретный курс из кеша
func (c *RatesCache) GetRate(fromCurrency, toCurrency string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if time.Since(c.lastUp) > c.ttl {
		return decimal.Decimal{}, false
	}

	return c.table.Get(fromCurrency, toCurrency)
}

// Clear очищает кеш
func (c *RatesCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.table = make(rates.Table)
	c.lastUp = time.Time{}
}

// IsValid проверяет, актуален ли кеш
func (c *RatesCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return time.Since(c.lastUp) <= c.ttl && len(c.table) > 0
}
