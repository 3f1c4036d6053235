package handlers

import (
	"net/http"

	"bvbit-exchange/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StatsHandler обработчик публичной статистики и котировок
type StatsHandler struct {
	service *service.WalletService
	logger  *logrus.Logger
}

// NewStatsHandler создает новый обработчик статистики
func NewStatsHandler(service *service.WalletService, logger *logrus.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger,
	}
}

// GetStats возвращает статистику платформы
// @Summary Get platform statistics
// @Tags stats
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /api/v1/stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetPlatformStats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetPrices возвращает текущие котировки
// @Summary Get current prices
// @Tags stats
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /api/v1/prices [get]
func (h *StatsHandler) GetPrices(c *gin.Context) {
	prices, err := h.service.GetExchangeRates(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, prices)
}
