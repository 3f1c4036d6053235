package handlers

import (
	"net/http"
	"strconv"

	"bvbit-exchange/internal/api/middleware"
	"bvbit-exchange/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryHandler обработчик истории операций
type HistoryHandler struct {
	service *service.WalletService
	logger  *logrus.Logger
}

// NewHistoryHandler создает новый обработчик истории
func NewHistoryHandler(service *service.WalletService, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger,
	}
}

// GetTransactions возвращает последние транзакции пользователя
// @Summary Get transaction history
// @Tags history
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Maximum number of records" default(50)
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /api/v1/transactions [get]
func (h *HistoryHandler) GetTransactions(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	transactions, err := h.service.GetTransactionHistory(c.Request.Context(), userID, queryLimit(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetPayments возвращает последние платежи пользователя
// @Summary Get payment history
// @Tags history
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Maximum number of records" default(50)
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /api/v1/payments [get]
func (h *HistoryHandler) GetPayments(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	payments, err := h.service.GetPaymentHistory(c.Request.Context(), userID, queryLimit(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// queryLimit читает limit из query-параметров, ограничивая его сверху
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
