package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LargeTransferMessage сообщение о крупной операции
type LargeTransferMessage struct {
	UserID       int64           `json:"user_id"`
	Type         string          `json:"type"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Amount       decimal.Decimal `json:"amount"`
	Fee          decimal.Decimal `json:"fee"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Producer Kafka producer для отправки уведомлений
type Producer struct {
	writer    *kafka.Writer
	threshold decimal.Decimal
	logger    *logrus.Logger
}

// NewProducer создает новый Kafka producer
func NewProducer(brokers []string, topic string, threshold decimal.Decimal, logger *logrus.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Асинхронная отправка для производительности
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
	}

	logger.Infof("Kafka producer initialized for topic: %s", topic)

	return &Producer{
		writer:    writer,
		threshold: threshold,
		logger:    logger,
	}
}

// SendLargeTransferNotification отправляет уведомление об операции,
// если ее сумма в исходной валюте превышает порог
func (p *Producer) SendLargeTransferNotification(ctx context.Context, userID int64, transferType, fromCurrency, toCurrency string, amount, fee decimal.Decimal) error {
	if amount.LessThan(p.threshold) {
		p.logger.Debugf("Transfer amount %s is below threshold %s, skipping Kafka notification", amount, p.threshold)
		return nil
	}

	message := LargeTransferMessage{
		UserID:       userID,
		Type:         transferType,
		FromCurrency: fromCurrency,
		ToCurrency:   toCurrency,
		Amount:       amount,
		Fee:          fee,
		Timestamp:    time.Now(),
	}

	// Сериализуем сообщение в JSON
	messageBytes, err := json.Marshal(message)
	if err != nil {
		p.logger.Errorf("Failed to marshal Kafka message: %v", err)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// Отправляем сообщение в Kafka
	kafkaMessage := kafka.Message{
		Key:   []byte(fmt.Sprintf("user_%d", userID)),
		Value: messageBytes,
		Time:  time.Now(),
	}

	err = p.writer.WriteMessages(ctx, kafkaMessage)
	if err != nil {
		p.logger.Errorf("Failed to send message to Kafka: %v", err)
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Infof("Sent large transfer notification to Kafka: UserID=%d, Amount=%s %s",
		userID, amount, fromCurrency)

	return nil
}

// Close закрывает Kafka producer
func (p *Producer) Close() error {
	if p.writer != nil {
		p.logger.Info("Closing Kafka producer")
		return p.writer.Close()
	}
	return nil
}
