package handlers

import (
	"net/http"

	"bvbit-exchange/internal/api/middleware"
	"bvbit-exchange/internal/service"
	"bvbit-exchange/pkg"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ExchangeHandler обработчик для обмена валют
type ExchangeHandler struct {
	service *service.WalletService
	logger  *logrus.Logger
}

// NewExchangeHandler создает новый обработчик обмена
func NewExchangeHandler(service *service.WalletService, logger *logrus.Logger) *ExchangeHandler {
	return &ExchangeHandler{
		service: service,
		logger:  logger,
	}
}

// ExchangeRequest запрос на обмен валюты
type ExchangeRequest struct {
	FromCurrency string          `json:"from_currency" binding:"required"`
	ToCurrency   string          `json:"to_currency" binding:"required"`
	Amount       decimal.Decimal `json:"from_amount" binding:"required"`
}

// GetRates возвращает курсы валют
// @Summary Get exchange rates
// @Description Get current exchange rates for all known currency pairs
// @Tags exchange
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/exchange/rates [get]
func (h *ExchangeHandler) GetRates(c *gin.Context) {
	rates, err := h.service.GetExchangeRates(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

// Exchange обменивает валюту
// @Summary Exchange currency
// @Description Exchange one currency for another
// @Tags exchange
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body ExchangeRequest true "Exchange data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/exchange [post]
func (h *ExchangeHandler) Exchange(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.service.Exchange(
		c.Request.Context(),
		userID,
		pkg.NormalizeCurrency(req.FromCurrency),
		pkg.NormalizeCurrency(req.ToCurrency),
		req.Amount,
	)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Exchange successful",
		"transaction_id":   result.TransactionID,
		"rate":             result.Rate,
		"fee":              result.Fee,
		"exchanged_amount": result.Received,
		"new_balance":      result.NewBalances,
	})
}
