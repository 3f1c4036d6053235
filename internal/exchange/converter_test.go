package exchange

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	amount := decimal.NewFromInt(100)
	rate := decimal.NewFromInt(2)
	feeRate := decimal.RequireFromString("0.005")

	quote := Convert(amount, rate, feeRate)

	assert.True(t, quote.Fee.Equal(decimal.RequireFromString("0.5")), "fee: %s", quote.Fee)
	assert.True(t, quote.NetSent.Equal(decimal.RequireFromString("99.5")), "net sent: %s", quote.NetSent)
	assert.True(t, quote.Received.Equal(decimal.NewFromInt(199)), "received: %s", quote.Received)
}

func TestConvertZeroFee(t *testing.T) {
	amount := decimal.NewFromInt(50)
	rate := decimal.RequireFromString("0.000025")

	quote := Convert(amount, rate, decimal.Zero)

	assert.True(t, quote.Fee.IsZero())
	assert.True(t, quote.NetSent.Equal(amount))
	assert.True(t, quote.Received.Equal(decimal.RequireFromString("0.00125")), "received: %s", quote.Received)
}

func TestConvertKeepsPrecision(t *testing.T) {
	amount := decimal.NewFromInt(100)
	rate := decimal.RequireFromString("0.000025")
	feeRate := decimal.RequireFromString("0.005")

	quote := Convert(amount, rate, feeRate)

	// 100 - 0.5 = 99.5, 99.5 * 0.000025 = 0.0024875
	assert.True(t, quote.Received.Equal(decimal.RequireFromString("0.0024875")), "received: %s", quote.Received)
}
