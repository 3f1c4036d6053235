package rates

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Table таблица курсов валют, ключ в формате "FROM_TO"
type Table map[string]decimal.Decimal

// PairKey формирует ключ таблицы для пары валют
func PairKey(from, to string) string {
	return fmt.Sprintf("%s_%s", from, to)
}

// Set записывает курс для пары валют
func (t Table) Set(from, to string, rate decimal.Decimal) {
	t[PairKey(from, to)] = rate
}

// Get возвращает курс для пары валют, если он есть в таблице
func (t Table) Get(from, to string) (decimal.Decimal, bool) {
	rate, ok := t[PairKey(from, to)]
	return rate, ok
}

// Merge накладывает курсы из other поверх текущей таблицы
func (t Table) Merge(other Table) {
	for key, rate := range other {
		t[key] = rate
	}
}

// Copy возвращает копию таблицы
func (t Table) Copy() Table {
	cp := make(Table, len(t))
	for key, rate := range t {
		cp[key] = rate
	}
	return cp
}

// Resolver вычисляет курс обмена по таблице курсов
type Resolver struct {
	pivot string
}

// NewResolver создает резолвер с опорной валютой для кросс-курсов
func NewResolver(pivot string) *Resolver {
	return &Resolver{pivot: pivot}
}

// Resolve возвращает курс обмена from -> to.
// Порядок поиска: прямая пара, обратная пара (1/rate), кросс-курс через
// опорную валюту. Если пути нет, возвращается 1 — вызывающая сторона
// обязана трактовать такой курс как неизвестный.
func (r *Resolver) Resolve(from, to string, table Table) decimal.Decimal {
	if from == to {
		return decimal.NewFromInt(1)
	}

	if rate, ok := r.lookup(from, to, table); ok {
		return rate
	}

	// Кросс-курс через опорную валюту
	if from != r.pivot && to != r.pivot {
		fromLeg := decimal.NewFromInt(1)
		if rate, ok := r.lookup(from, r.pivot, table); ok {
			fromLeg = rate
		}

		toLeg := decimal.NewFromInt(1)
		if rate, ok := r.lookup(r.pivot, to, table); ok {
			toLeg = rate
		}

		return fromLeg.Mul(toLeg)
	}

	return decimal.NewFromInt(1)
}

// lookup ищет курс по прямой или обратной паре
func (r *Resolver) lookup(from, to string, table Table) (decimal.Decimal, bool) {
	if rate, ok := table.Get(from, to); ok && rate.IsPositive() {
		return rate, true
	}

	if rate, ok := table.Get(to, from); ok && rate.IsPositive() {
		return decimal.NewFromInt(1).Div(rate), true
	}

	return decimal.Decimal{}, false
}
