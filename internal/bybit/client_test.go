package bybit

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(assets ...string) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return NewClient(nil, "USDT", assets, logger)
}

func TestGetTickersFallsBackToMock(t *testing.T) {
	client := newTestClient("BTC", "ETH")

	table := client.GetTickers(context.Background())

	rate, ok := table.Get("BTC", "USDT")
	require.True(t, ok)
	assert.True(t, rate.IsPositive())
}

func TestMockTickersStayWithinJitter(t *testing.T) {
	client := newTestClient("BTC", "ETH", "BNB", "SOL")

	for i := 0; i < 20; i++ {
		prices := client.mockTickers()
		for asset, price := range prices {
			mock := mockPrices[asset]
			low := decimal.NewFromFloat(mock.base - mock.jitter)
			high := decimal.NewFromFloat(mock.base + mock.jitter)

			assert.True(t, price.GreaterThanOrEqual(low), "%s price %s below %s", asset, price, low)
			assert.True(t, price.LessThanOrEqual(high), "%s price %s above %s", asset, price, high)
		}
	}
}

func TestMockTickersUnknownAssetUsesDefault(t *testing.T) {
	client := newTestClient("XYZ")

	prices := client.mockTickers()
	price, ok := prices["XYZ"]
	require.True(t, ok)

	low := decimal.NewFromFloat(defaultMockPrice.base - defaultMockPrice.jitter)
	high := decimal.NewFromFloat(defaultMockPrice.base + defaultMockPrice.jitter)
	assert.True(t, price.GreaterThanOrEqual(low))
	assert.True(t, price.LessThanOrEqual(high))
}

func TestBuildTableIsConsistent(t *testing.T) {
	client := newTestClient("BTC", "ETH")

	prices := map[string]decimal.Decimal{
		"BTC": decimal.NewFromInt(45000),
		"ETH": decimal.NewFromInt(2500),
	}
	table := client.buildTable(prices)

	// Обе стороны пары с опорной валютой взаимно обратны
	direct, ok := table.Get("BTC", "USDT")
	require.True(t, ok)
	inverse, ok := table.Get("USDT", "BTC")
	require.True(t, ok)

	product := direct.Mul(inverse)
	diff := product.Sub(decimal.NewFromInt(1)).Abs()
	assert.True(t, diff.LessThan(decimal.RequireFromString("0.0000001")), "product: %s", product)

	// Кросс-курс равен отношению котировок
	cross, ok := table.Get("BTC", "ETH")
	require.True(t, ok)
	assert.True(t, cross.Equal(decimal.NewFromInt(45000).Div(decimal.NewFromInt(2500))), "cross: %s", cross)
}
