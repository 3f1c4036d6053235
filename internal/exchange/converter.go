package exchange

import (
	"github.com/shopspring/decimal"
)

// Quote результат расчета обмена
type Quote struct {
	Fee      decimal.Decimal // комиссия в исходной валюте
	NetSent  decimal.Decimal // сумма после вычета комиссии
	Received decimal.Decimal // сумма к получению в целевой валюте
}

// Convert рассчитывает комиссию и сумму к получению.
// Чистая арифметика: достаточность баланса проверяет вызывающая сторона.
// Округление не выполняется, точность сохраняется до записи в леджер.
func Convert(amount, rate, feeRate decimal.Decimal) Quote {
	fee := amount.Mul(feeRate)
	netSent := amount.Sub(fee)

	return Quote{
		Fee:      fee,
		NetSent:  netSent,
		Received: netSent.Mul(rate),
	}
}
