package cache

import (
	"testing"
	"time"

	"bvbit-exchange/internal/rates"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatesCacheSetGet(t *testing.T) {
	c := NewRatesCache(time.Minute)

	table := make(rates.Table)
	table.Set("BTC", "USDT", decimal.NewFromInt(45000))
	c.Set(table)

	got, ok := c.Get()
	require.True(t, ok)

	rate, ok := got.Get("BTC", "USDT")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(45000)))
}

func TestRatesCacheEmptyIsInvalid(t *testing.T) {
	c := NewRatesCache(time.Minute)

	_, ok := c.Get()
	assert.False(t, ok)
	assert.False(t, c.IsValid())
}

func TestRatesCacheExpires(t *testing.T) {
	c := NewRatesCache(10 * time.Millisecond)

	table := make(rates.Table)
	table.Set("BTC", "USDT", decimal.NewFromInt(45000))
	c.Set(table)

	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get()
	assert.False(t, ok)
	assert.False(t, c.IsValid())
}

func TestRatesCacheGetReturnsCopy(t *testing.T) {
	c := NewRatesCache(time.Minute)

	table := make(rates.Table)
	table.Set("BTC", "USDT", decimal.NewFromInt(45000))
	c.Set(table)

	got, ok := c.Get()
	require.True(t, ok)
	got.Set("BTC", "USDT", decimal.NewFromInt(1))

	rate, ok := c.GetRate("BTC", "USDT")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(45000)))
}

func TestRatesCacheClear(t *testing.T) {
	c := NewRatesCache(time.Minute)

	table := make(rates.Table)
	table.Set("BTC", "USDT", decimal.NewFromInt(45000))
	c.Set(table)
	c.Clear()

	_, ok := c.Get()
	assert.False(t, ok)
}
