package rates

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSameCurrency(t *testing.T) {
	resolver := NewResolver("USDT")
	table := make(Table)

	rate := resolver.Resolve("BTC", "BTC", table)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestResolveDirectPair(t *testing.T) {
	resolver := NewResolver("USDT")
	table := make(Table)
	table.Set("BTC", "USDT", decimal.NewFromInt(45000))

	rate := resolver.Resolve("BTC", "USDT", table)
	assert.True(t, rate.Equal(decimal.NewFromInt(45000)))
}

func TestResolveInversePair(t *testing.T) {
	resolver := NewResolver("USDT")
	table := make(Table)
	table.Set("BTC", "USDT", decimal.NewFromInt(40000))

	// Прямой пары USDT_BTC нет, резолвер берет обратную
	rate := resolver.Resolve("USDT", "BTC", table)

	expected := decimal.NewFromInt(1).Div(decimal.NewFromInt(40000))
	assert.True(t, rate.Equal(expected), "expected %s, got %s", expected, rate)
}

func TestResolveCrossViaPivot(t *testing.T) {
	resolver := NewResolver("USDT")
	table := make(Table)
	table.Set("RUB", "USDT", decimal.RequireFromString("0.011"))
	table.Set("USDT", "ETH", decimal.RequireFromString("0.0004"))

	rate := resolver.Resolve("RUB", "ETH", table)

	expected := decimal.RequireFromString("0.011").Mul(decimal.RequireFromString("0.0004"))
	assert.True(t, rate.Equal(expected), "expected %s, got %s", expected, rate)
}

func TestResolveCrossWithMissingLeg(t *testing.T) {
	resolver := NewResolver("USDT")
	table := make(Table)
	table.Set("RUB", "USDT", decimal.RequireFromString("0.011"))

	// Второго плеча нет, оно считается равным 1
	rate := resolver.Resolve("RUB", "ETH", table)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.011")))
}

func TestResolveUnknownPairFallsBackToOne(t *testing.T) {
	resolver := NewResolver("USDT")
	table := make(Table)

	rate := resolver.Resolve("XYZ", "USDT", table)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestResolveIgnoresNonPositiveRates(t *testing.T) {
	resolver := NewResolver("USDT")
	table := make(Table)
	table.Set("BTC", "USDT", decimal.Zero)

	// Нулевой курс не используется ни напрямую, ни как обратный
	rate := resolver.Resolve("USDT", "BTC", table)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestTableMergeOverwrites(t *testing.T) {
	base := make(Table)
	base.Set("BTC", "USDT", decimal.NewFromInt(40000))
	base.Set("ETH", "USDT", decimal.NewFromInt(2000))

	live := make(Table)
	live.Set("BTC", "USDT", decimal.NewFromInt(45000))

	base.Merge(live)

	rate, ok := base.Get("BTC", "USDT")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(45000)))

	rate, ok = base.Get("ETH", "USDT")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(2000)))
}

func TestTableCopyIsIndependent(t *testing.T) {
	table := make(Table)
	table.Set("BTC", "USDT", decimal.NewFromInt(45000))

	cp := table.Copy()
	cp.Set("BTC", "USDT", decimal.NewFromInt(1))

	rate, ok := table.Get("BTC", "USDT")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(45000)))
}
