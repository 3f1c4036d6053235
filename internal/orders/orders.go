package orders

import (
	"context"
	"time"

	"bvbit-exchange/internal/storages"
	"github.com/sirupsen/logrus"
)

// Placer размещает ордер на внешней площадке по созданной транзакции
type Placer interface {
	PlaceOrder(ctx context.Context, tx *storages.Transaction) error
}

// Confirmer дожидается внешнего подтверждения платежа.
// Возврат ошибки означает отказ внешней стороны: платеж должен быть
// помечен как failed, а зарезервированные средства возвращены.
type Confirmer interface {
	ConfirmPayment(ctx context.Context, payment *storages.Payment) error
}

// SimulatedVenue имитация внешней площадки: исполнение ордеров и
// подтверждение платежей с фиксированной задержкой. Контракт
// оркестратора одинаков для имитации и реальной интеграции.
type SimulatedVenue struct {
	delay  time.Duration
	logger *logrus.Logger
}

// NewSimulatedVenue создает имитацию внешней площадки
func NewSimulatedVenue(delay time.Duration, logger *logrus.Logger) *SimulatedVenue {
	return &SimulatedVenue{
		delay:  delay,
		logger: logger,
	}
}

// PlaceOrder имитирует размещение ордера
func (v *SimulatedVenue) PlaceOrder(ctx context.Context, tx *storages.Transaction) error {
	select {
	case <-time.After(v.delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	v.logger.Debugf("Simulated order placed: TxID=%d, %s %s -> %s",
		tx.ID, tx.FromAmount, tx.FromCurrency, tx.ToCurrency)
	return nil
}

// ConfirmPayment имитирует внешнее подтверждение платежа
func (v *SimulatedVenue) ConfirmPayment(ctx context.Context, payment *storages.Payment) error {
	select {
	case <-time.After(v.delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	v.logger.Debugf("Simulated payment confirmation: PaymentID=%d, %s %s",
		payment.ID, payment.Amount, payment.Currency)
	return nil
}
