package ws

import (
	"context"
	"net/http"
	"time"

	"bvbit-exchange/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// updateMessage сообщение для подписчиков: котировки и статистика платформы
type updateMessage struct {
	Type   string      `json:"type"`
	Prices interface{} `json:"prices"`
	Stats  interface{} `json:"stats"`
}

// StreamHandler транслирует котировки и статистику по WebSocket
type StreamHandler struct {
	service  *service.WalletService
	interval time.Duration
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

// NewStreamHandler создает новый обработчик трансляции
func NewStreamHandler(service *service.WalletService, interval time.Duration, logger *logrus.Logger) *StreamHandler {
	return &StreamHandler{
		service:  service,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Демонстрационная площадка открыта для любых страниц
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handle апгрейдит соединение и периодически шлет обновления,
// пока клиент не отключится
func (h *StreamHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	h.logger.Info("WebSocket client connected")

	done := make(chan struct{})

	// Читатель нужен только для обнаружения закрытия соединения
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-done:
			h.logger.Info("WebSocket client disconnected")
			return
		case <-ticker.C:
			if err := h.sendUpdate(conn); err != nil {
				h.logger.Debugf("WebSocket write failed: %v", err)
				return
			}
		}
	}
}

// sendUpdate собирает и отправляет очередное обновление
func (h *StreamHandler) sendUpdate(conn *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.interval)
	defer cancel()

	prices, err := h.service.GetExchangeRates(ctx)
	if err != nil {
		h.logger.Warnf("Failed to get prices for stream: %v", err)
		return nil
	}

	stats, err := h.service.GetPlatformStats(ctx)
	if err != nil {
		h.logger.Warnf("Failed to get stats for stream: %v", err)
		return nil
	}

	return conn.WriteJSON(updateMessage{
		Type:   "update",
		Prices: prices,
		Stats:  stats,
	})
}
